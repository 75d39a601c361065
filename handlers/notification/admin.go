package notification

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/response"
)

// CreateRequest is the admin compose request
type CreateRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Message     string     `json:"message" validate:"required"`
	ImageURL    string     `json:"image_url" validate:"omitempty,url,max=500"`
	Type        string     `json:"type" validate:"required,oneof=announcement reminder"`
	Channel     string     `json:"channel" validate:"required,oneof=in_app email"`
	Audience    string     `json:"audience" validate:"required,oneof=all course student"`
	CourseID    *uint      `json:"course_id"`
	UserID      *uint      `json:"user_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// Create handles POST /api/v1/admin/notifications
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	notification, err := h.notifications.Create(c.Context(), services.CreateNotificationInput{
		Title:       req.Title,
		Message:     req.Message,
		ImageURL:    req.ImageURL,
		Type:        model.NotificationType(req.Type),
		Channel:     model.NotificationChannel(req.Channel),
		Audience:    model.AudienceKind(req.Audience),
		CourseID:    req.CourseID,
		UserID:      req.UserID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, notification)
}

// ListAll handles GET /api/v1/admin/notifications
func (h *NotificationHandler) ListAll(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := h.notifications.ListAll(c.Context(), page, limit)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, notifications, response.CalculatePagination(page, limit, total))
}

// Resend handles POST /api/v1/admin/notifications/:id/resend.
// Re-resolves the stored audience and delivers again.
func (h *NotificationHandler) Resend(c *fiber.Ctx) error {
	notificationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	notification, err := h.notifications.Resend(c.Context(), uint(notificationID))
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, notification)
}

// Delete handles DELETE /api/v1/admin/notifications/:id
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	notificationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notifications.Delete(c.Context(), uint(notificationID)); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "Notification deleted"})
}
