package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/prepnest/prepnest-api/model"
)

// stalePaymentWindow is how long a payment may sit pending before it is
// written off as failed. Matches the gateway's own order expiry.
const stalePaymentWindow = 24 * time.Hour

// PromoteScheduledNotifications flips scheduled in-app notifications whose
// time has come to sent and pushes them to connected recipients.
// Runs every minute.
func (m *CronManager) PromoteScheduledNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	jobName := "promote_scheduled_notifications"

	promoted, err := m.notifications.PromoteDue(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to promote notifications: %w", err))
		return
	}

	if promoted == 0 {
		m.logJobComplete(jobName, "No due notifications")
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Promoted %d notification(s)", promoted))
}

// CloseEndedLiveSessions marks live sessions whose end time has passed.
// Runs every 10 minutes.
func (m *CronManager) CloseEndedLiveSessions() {
	jobName := "close_ended_live_sessions"

	result := m.db.Model(&model.LiveSession{}).
		Where("status = ? AND ends_at < ?", model.LiveSessionUpcoming, time.Now()).
		Update("status", model.LiveSessionEnded)
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to close sessions: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Closed %d session(s)", result.RowsAffected))
}

// ExpireStalePayments fails payments that never received a confirmation.
// Only rows still pending are touched, so a webhook landing concurrently
// wins the status race.
// Runs hourly.
func (m *CronManager) ExpireStalePayments() {
	jobName := "expire_stale_payments"

	cutoff := time.Now().Add(-stalePaymentWindow)
	result := m.db.Model(&model.Payment{}).
		Where("status = ? AND created_at < ?", model.PaymentStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":     model.PaymentStatusFailed,
			"settled_at": time.Now(),
		})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to expire payments: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Expired %d stale payment(s)", result.RowsAffected))
}

// CleanupOldData removes old data to keep the database clean.
// Runs daily at 2 AM.
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"

	totalCleaned := 0

	// 1. Expired or consumed OTP rows older than a day; Redis is the hot
	// path, the rows exist for audit only
	cutoffOtps := time.Now().Add(-24 * time.Hour)
	result := m.db.Where("expires_at < ?", cutoffOtps).Delete(&model.Otp{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to clean otps: %w", result.Error))
		return
	}
	totalCleaned += int(result.RowsAffected)

	// 2. Cron job logs older than 90 days
	cutoffLogs := time.Now().Add(-90 * 24 * time.Hour)
	result = m.db.Unscoped().Where("created_at < ?", cutoffLogs).Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to clean cron logs: %w", result.Error))
		return
	}
	totalCleaned += int(result.RowsAffected)

	// 3. Live sessions that ended more than 30 days ago
	cutoffSessions := time.Now().Add(-30 * 24 * time.Hour)
	result = m.db.Where("status = ? AND ends_at < ?", model.LiveSessionEnded, cutoffSessions).
		Delete(&model.LiveSession{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to clean live sessions: %w", result.Error))
		return
	}
	totalCleaned += int(result.RowsAffected)

	m.logJobComplete(jobName, fmt.Sprintf("Cleaned up %d total records", totalCleaned))
}
