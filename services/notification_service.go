package services

import (
	"context"
	"log"
	"time"

	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services/media"
	"github.com/prepnest/prepnest-api/services/realtime"
	"github.com/prepnest/prepnest-api/utils/apperr"
	"gorm.io/gorm"
)

// NotificationService owns the notification lifecycle: audience resolution,
// immediate or scheduled delivery, per-recipient read tracking, and purge of
// fully-read notifications.
type NotificationService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	email  *EmailService
	spaces *media.SpacesClient
}

// NewNotificationService creates a new notification service. spaces may be
// nil when media storage is not configured; image cleanup is skipped then.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, email *EmailService, spaces *media.SpacesClient) *NotificationService {
	return &NotificationService{
		db:     db,
		hub:    hub,
		email:  email,
		spaces: spaces,
	}
}

// CreateNotificationInput carries the admin's compose request
type CreateNotificationInput struct {
	Title       string                    `json:"title" validate:"required,max=255"`
	Message     string                    `json:"message" validate:"required"`
	ImageURL    string                    `json:"image_url" validate:"omitempty,url,max=500"`
	Type        model.NotificationType    `json:"type" validate:"required,oneof=announcement reminder"`
	Channel     model.NotificationChannel `json:"channel" validate:"required,oneof=in_app email"`
	Audience    model.AudienceKind        `json:"audience" validate:"required,oneof=all course student"`
	CourseID    *uint                     `json:"course_id" validate:"required_if=Audience course"`
	UserID      *uint                     `json:"user_id" validate:"required_if=Audience student"`
	ScheduledAt *time.Time                `json:"scheduled_at"`
}

// Create records a notification for its resolved audience. In-app messages
// scheduled in the future are parked as pending for the scheduler to promote;
// everything else is delivered before Create returns.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*model.Notification, error) {
	recipientIDs, err := s.resolveAudience(ctx, input.Audience, input.CourseID, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return nil, apperr.Validation("audience resolves to no recipients")
	}

	// Scheduling applies to the in-app channel only
	deferred := input.Channel == model.ChannelInApp &&
		input.ScheduledAt != nil && input.ScheduledAt.After(time.Now())

	status := model.NotificationStatusPending
	if !deferred {
		status = model.NotificationStatusSent
	}

	notification := model.Notification{
		Title:            input.Title,
		Message:          input.Message,
		ImageURL:         input.ImageURL,
		Type:             input.Type,
		Channel:          input.Channel,
		Status:           status,
		AudienceKind:     input.Audience,
		AudienceCourseID: input.CourseID,
		AudienceUserID:   input.UserID,
		ScheduledAt:      input.ScheduledAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		recipients := make([]model.NotificationRecipient, 0, len(recipientIDs))
		for _, id := range recipientIDs {
			recipients = append(recipients, model.NotificationRecipient{
				NotificationID: notification.ID,
				UserID:         id,
			})
		}
		return tx.CreateInBatches(recipients, 200).Error
	})
	if err != nil {
		return nil, apperr.Internal("failed to create notification", err)
	}

	if deferred {
		log.Printf("Notification %d scheduled for %s (%d recipients)",
			notification.ID, input.ScheduledAt.Format(time.RFC3339), len(recipientIDs))
		return &notification, nil
	}

	s.deliver(ctx, &notification, recipientIDs)
	return &notification, nil
}

// deliver pushes the notification over its channel and records the outcome.
// A delivery failure marks the row failed but never removes it; the admin
// can resend.
func (s *NotificationService) deliver(ctx context.Context, notification *model.Notification, recipientIDs []uint) {
	var deliveryErr error

	switch notification.Channel {
	case model.ChannelInApp:
		s.hub.Emit(recipientIDs, "notification", notification.ToResponse(false))
	case model.ChannelEmail:
		deliveryErr = s.deliverEmail(ctx, notification, recipientIDs)
	}

	status := model.NotificationStatusSent
	if deliveryErr != nil {
		status = model.NotificationStatusFailed
		log.Printf("Notification %d delivery failed: %v", notification.ID, deliveryErr)
	}

	notification.Status = status
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", notification.ID).
		Update("status", status).Error; err != nil {
		log.Printf("Failed to record delivery status for notification %d: %v", notification.ID, err)
	}
}

func (s *NotificationService) deliverEmail(ctx context.Context, notification *model.Notification, recipientIDs []uint) error {
	var emails []string
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id IN ? AND status = ?", recipientIDs, model.UserStatusActive).
		Pluck("email", &emails).Error; err != nil {
		return err
	}
	if len(emails) == 0 {
		return nil
	}

	body := BuildNotificationEmail(notification.Title, notification.Message, notification.ImageURL)
	return s.email.Send(emails, notification.Title, body)
}

// resolveAudience expands the audience descriptor into concrete user IDs.
// Only active students receive notifications.
func (s *NotificationService) resolveAudience(ctx context.Context, kind model.AudienceKind, courseID, userID *uint) ([]uint, error) {
	var ids []uint

	switch kind {
	case model.AudienceAll:
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("role = ? AND status = ?", model.RoleStudent, model.UserStatusActive).
			Pluck("id", &ids).Error; err != nil {
			return nil, apperr.Internal("failed to resolve audience", err)
		}

	case model.AudienceCourse:
		if courseID == nil {
			return nil, apperr.ValidationField("course_id", "course_id is required for course audience")
		}
		var course model.Course
		if err := s.db.WithContext(ctx).First(&course, *courseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperr.NotFound("course not found")
			}
			return nil, apperr.Internal("failed to load course", err)
		}
		if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
			Distinct("enrollments.user_id").
			Joins("JOIN users ON users.id = enrollments.user_id").
			Where("enrollments.course_id = ? AND enrollments.status = ? AND users.status = ?",
				*courseID, model.EnrollmentStatusActive, model.UserStatusActive).
			Pluck("enrollments.user_id", &ids).Error; err != nil {
			return nil, apperr.Internal("failed to resolve audience", err)
		}

	case model.AudienceStudent:
		if userID == nil {
			return nil, apperr.ValidationField("user_id", "user_id is required for student audience")
		}
		var user model.User
		if err := s.db.WithContext(ctx).First(&user, *userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperr.NotFound("user not found")
			}
			return nil, apperr.Internal("failed to load user", err)
		}
		if !user.IsActive() {
			return nil, apperr.Validation("user is not active")
		}
		ids = []uint{*userID}

	default:
		return nil, apperr.ValidationField("audience", "unknown audience kind")
	}

	return ids, nil
}

// MarkRead records the caller's read mark. When the caller is the last unread
// recipient, the notification and its recipient rows are purged in the same
// transaction; any attached image is removed from storage after commit.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uint) error {
	var purgedImageURL string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipient model.NotificationRecipient
		if err := tx.Where("notification_id = ? AND user_id = ?", notificationID, userID).
			First(&recipient).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				var exists int64
				if err := tx.Model(&model.Notification{}).
					Where("id = ?", notificationID).
					Count(&exists).Error; err != nil {
					return apperr.Internal("failed to load notification", err)
				}
				if exists == 0 {
					return apperr.NotFound("notification not found")
				}
				return apperr.Authorization("not a recipient of this notification")
			}
			return apperr.Internal("failed to load recipient", err)
		}

		if recipient.IsRead() {
			return nil // repeat mark-read is a no-op
		}

		now := time.Now()
		if err := tx.Model(&model.NotificationRecipient{}).
			Where("notification_id = ? AND user_id = ?", notificationID, userID).
			Update("read_at", now).Error; err != nil {
			return apperr.Internal("failed to mark read", err)
		}

		// Unread count is taken inside this transaction so two concurrent
		// last readers cannot both skip the purge
		var unread int64
		if err := tx.Model(&model.NotificationRecipient{}).
			Where("notification_id = ? AND read_at IS NULL", notificationID).
			Count(&unread).Error; err != nil {
			return apperr.Internal("failed to count unread", err)
		}
		if unread > 0 {
			return nil
		}

		var notification model.Notification
		if err := tx.First(&notification, notificationID).Error; err != nil {
			return apperr.Internal("failed to load notification", err)
		}
		purgedImageURL = notification.ImageURL

		if err := tx.Where("notification_id = ?", notificationID).
			Delete(&model.NotificationRecipient{}).Error; err != nil {
			return apperr.Internal("failed to purge recipients", err)
		}
		if err := tx.Unscoped().Delete(&model.Notification{}, notificationID).Error; err != nil {
			return apperr.Internal("failed to purge notification", err)
		}

		log.Printf("Notification %d fully read, purged", notificationID)
		return nil
	})
	if err != nil {
		return err
	}

	// Storage cleanup is best-effort and happens outside the transaction;
	// a leaked object never blocks the read path
	if purgedImageURL != "" && s.spaces != nil {
		if err := s.spaces.Delete(ctx, purgedImageURL); err != nil {
			log.Printf("Failed to delete notification image %s: %v", purgedImageURL, err)
		}
	}

	return nil
}

// ListForUser returns the caller's unread notifications, newest first.
// Marking a notification read removes it from this list immediately; the
// full purge only happens once every recipient has read it. Pending
// (scheduled, not yet promoted) notifications are hidden too.
func (s *NotificationService) ListForUser(ctx context.Context, userID uint, page, limit int) ([]model.NotificationResponse, int64, error) {
	base := s.db.WithContext(ctx).Model(&model.NotificationRecipient{}).
		Joins("JOIN notifications ON notifications.id = notification_recipients.notification_id").
		Where("notification_recipients.user_id = ?", userID).
		Where("notification_recipients.read_at IS NULL").
		Where("notifications.status <> ?", model.NotificationStatusPending).
		Where("notifications.deleted_at IS NULL")

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count notifications", err)
	}

	var recipients []model.NotificationRecipient
	if err := base.Preload("Notification").
		Order("notifications.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&recipients).Error; err != nil {
		return nil, 0, apperr.Internal("failed to fetch notifications", err)
	}

	responses := make([]model.NotificationResponse, 0, len(recipients))
	for _, r := range recipients {
		responses = append(responses, r.Notification.ToResponse(r.IsRead()))
	}
	return responses, total, nil
}

// UnreadCount returns how many delivered notifications the user has not read
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.NotificationRecipient{}).
		Joins("JOIN notifications ON notifications.id = notification_recipients.notification_id").
		Where("notification_recipients.user_id = ? AND notification_recipients.read_at IS NULL", userID).
		Where("notifications.status <> ?", model.NotificationStatusPending).
		Where("notifications.deleted_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, apperr.Internal("failed to count unread", err)
	}
	return count, nil
}

// Resend re-resolves the stored audience and restarts the read lifecycle
// from zero: every read mark is cleared, the creation time is restamped so
// the notification sorts as new, and students who joined the audience since
// the first send get recipient rows.
func (s *NotificationService) Resend(ctx context.Context, notificationID uint) (*model.Notification, error) {
	var notification model.Notification
	if err := s.db.WithContext(ctx).First(&notification, notificationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("notification not found")
		}
		return nil, apperr.Internal("failed to load notification", err)
	}

	recipientIDs, err := s.resolveAudience(ctx, notification.AudienceKind,
		notification.AudienceCourseID, notification.AudienceUserID)
	if err != nil {
		return nil, err
	}
	if len(recipientIDs) == 0 {
		return nil, apperr.Validation("audience resolves to no recipients")
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uint
		if err := tx.Model(&model.NotificationRecipient{}).
			Where("notification_id = ?", notificationID).
			Pluck("user_id", &existing).Error; err != nil {
			return err
		}
		known := make(map[uint]struct{}, len(existing))
		for _, id := range existing {
			known[id] = struct{}{}
		}

		var added []model.NotificationRecipient
		for _, id := range recipientIDs {
			if _, ok := known[id]; !ok {
				added = append(added, model.NotificationRecipient{
					NotificationID: notificationID,
					UserID:         id,
				})
			}
		}
		if len(added) > 0 {
			if err := tx.CreateInBatches(added, 200).Error; err != nil {
				return err
			}
		}

		// Every recipient re-enters the lifecycle unread; the purge counter
		// starts over from the full audience
		if err := tx.Model(&model.NotificationRecipient{}).
			Where("notification_id = ?", notificationID).
			Update("read_at", nil).Error; err != nil {
			return err
		}

		return tx.Model(&model.Notification{}).
			Where("id = ?", notificationID).
			Update("created_at", now).Error
	})
	if err != nil {
		return nil, apperr.Internal("failed to update recipients", err)
	}
	notification.CreatedAt = now

	s.deliver(ctx, &notification, recipientIDs)
	return &notification, nil
}

// Delete removes a notification and its recipient rows (admin path)
func (s *NotificationService) Delete(ctx context.Context, notificationID uint) error {
	var imageURL string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var notification model.Notification
		if err := tx.First(&notification, notificationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("notification not found")
			}
			return apperr.Internal("failed to load notification", err)
		}
		imageURL = notification.ImageURL

		if err := tx.Where("notification_id = ?", notificationID).
			Delete(&model.NotificationRecipient{}).Error; err != nil {
			return apperr.Internal("failed to delete recipients", err)
		}
		if err := tx.Unscoped().Delete(&model.Notification{}, notificationID).Error; err != nil {
			return apperr.Internal("failed to delete notification", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if imageURL != "" && s.spaces != nil {
		if err := s.spaces.Delete(ctx, imageURL); err != nil {
			log.Printf("Failed to delete notification image %s: %v", imageURL, err)
		}
	}

	return nil
}

// ListAll returns every notification for the admin dashboard
func (s *NotificationService) ListAll(ctx context.Context, page, limit int) ([]model.Notification, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count notifications", err)
	}

	var notifications []model.Notification
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, 0, apperr.Internal("failed to fetch notifications", err)
	}
	return notifications, total, nil
}

// PromoteDue flips due scheduled notifications to sent and pushes them to
// their recipients. Called by the scheduler; the conditional update is the
// guard against double promotion when ticks overlap.
func (s *NotificationService) PromoteDue(ctx context.Context) (int, error) {
	var due []model.Notification
	if err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			model.NotificationStatusPending, time.Now()).
		Find(&due).Error; err != nil {
		return 0, err
	}

	promoted := 0
	for i := range due {
		n := &due[i]

		res := s.db.WithContext(ctx).Model(&model.Notification{}).
			Where("id = ? AND status = ?", n.ID, model.NotificationStatusPending).
			Update("status", model.NotificationStatusSent)
		if res.Error != nil {
			log.Printf("Failed to promote notification %d: %v", n.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue // another tick already took it
		}

		var recipientIDs []uint
		if err := s.db.WithContext(ctx).Model(&model.NotificationRecipient{}).
			Where("notification_id = ?", n.ID).
			Pluck("user_id", &recipientIDs).Error; err != nil {
			log.Printf("Failed to load recipients for notification %d: %v", n.ID, err)
			continue
		}

		n.Status = model.NotificationStatusSent
		s.hub.Emit(recipientIDs, "notification", n.ToResponse(false))
		promoted++
	}

	return promoted, nil
}
