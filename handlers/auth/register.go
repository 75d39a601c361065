package auth

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	authutil "github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/response"
)

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Phone    string `json:"phone" validate:"omitempty,min=10,max=20"`
}

// Register handles POST /api/v1/auth/register.
// Creates an unverified account and emails a verification code.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existing model.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return response.Conflict(c, "An account with this email already exists")
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	user := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         model.RoleStudent,
		Status:       model.UserStatusActive,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to create account")
	}

	if err := h.sendVerificationCode(c, &user); err != nil {
		log.Printf("Failed to send verification code to %s: %v", user.Email, err)
	}

	return response.Created(c, fiber.Map{
		"user":    toUserResponse(&user),
		"message": "Account created. Check your email for the verification code.",
	})
}

// ResendOTP handles POST /api/v1/auth/resend-otp
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Do not reveal whether the account exists
		return response.Success(c, fiber.Map{"message": "If the account exists, a code has been sent"})
	}
	if user.Verified {
		return response.BadRequest(c, "Account is already verified")
	}

	if err := h.sendVerificationCode(c, &user); err != nil {
		return response.InternalServerError(c, "Failed to send verification code")
	}

	return response.Success(c, fiber.Map{"message": "If the account exists, a code has been sent"})
}

// VerifyEmailRequest carries the emailed verification code
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// VerifyEmail handles POST /api/v1/auth/verify.
// A correct code marks the account verified and signs the user in.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	stored, err := h.cache.Get(c.Context(), otpCacheKey(req.Email))
	if err != nil || stored != req.Code {
		return response.BadRequest(c, "Invalid or expired verification code")
	}

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.NotFound(c, "Account not found")
	}

	if !user.Verified {
		if err := h.db.Model(&user).Update("verified", true).Error; err != nil {
			return response.InternalServerError(c, "Failed to verify account")
		}
		user.Verified = true
	}

	_ = h.cache.Delete(c.Context(), otpCacheKey(req.Email))
	h.db.Model(&model.Otp{}).
		Where("email = ? AND code = ? AND used_at IS NULL", req.Email, req.Code).
		Update("used_at", time.Now())

	return h.issueTokens(c, &user)
}

func (h *AuthHandler) sendVerificationCode(c *fiber.Ctx, user *model.User) error {
	code, err := authutil.GenerateOTP(otpLength)
	if err != nil {
		return err
	}

	if err := h.cache.Set(c.Context(), otpCacheKey(user.Email), code, otpTTL); err != nil {
		return err
	}

	// Audit row; Redis is the lookup path
	otp := model.Otp{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := h.db.Create(&otp).Error; err != nil {
		log.Printf("Failed to record otp for %s: %v", user.Email, err)
	}

	if !h.email.IsConfigured() {
		log.Printf("SMTP not configured, verification code for %s not sent", user.Email)
		return nil
	}

	return h.email.SendOTPEmail(user.Email, user.Name, code)
}
