package services

import (
	"fmt"
	"log"

	"github.com/prepnest/prepnest-api/config"
	"gopkg.in/gomail.v2"
)

// EmailService relays transactional email over SMTP. A multi-recipient send
// is a single call: one relay failure fails the whole batch.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewEmailService creates a new email service instance
func NewEmailService(env *config.Env) *EmailService {
	return &EmailService{
		host:     env.SMTP_HOST,
		port:     env.SMTP_PORT,
		username: env.SMTP_USERNAME,
		password: env.SMTP_PASSWORD,
		from:     env.SMTP_FROM,
	}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// Send relays one HTML email to every address in a single message
func (e *EmailService) Send(to []string, subject, htmlBody string) error {
	if !e.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("PrepNest <%s>", e.from))
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(e.host, e.port, e.username, e.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Email sent to %d recipient(s): %s", len(to), subject)
	return nil
}

// SendOTPEmail sends a verification code to a single address
func (e *EmailService) SendOTPEmail(to, name, code string) error {
	if name == "" {
		name = "there"
	}

	subject := "Your PrepNest verification code"
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1a3c6e;">PrepNest</h2>
    <p>Hi %s,</p>
    <p>Your verification code is:</p>
    <p style="font-size: 28px; font-weight: 700; letter-spacing: 4px;">%s</p>
    <p>The code expires in 10 minutes. If you didn't request it, you can safely ignore this email.</p>
    <p style="color: #666; font-size: 12px; margin-top: 30px;">PrepNest &middot; your exam prep companion</p>
</body>
</html>`, name, code)

	return e.Send([]string{to}, subject, body)
}

// BuildNotificationEmail renders the templated HTML body for a broadcast
// notification
func BuildNotificationEmail(title, message, imageURL string) string {
	img := ""
	if imageURL != "" {
		img = fmt.Sprintf(`<p><img src="%s" alt="" style="max-width: 100%%; border-radius: 6px;"></p>`, imageURL)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1a3c6e;">%s</h2>
    %s
    <p>%s</p>
    <p style="color: #666; font-size: 12px; margin-top: 30px;">PrepNest &middot; your exam prep companion</p>
</body>
</html>`, title, img, message)
}
