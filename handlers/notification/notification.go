package notification

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notifications *services.NotificationService
	validator     *validation.Validator
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		validator:     validation.NewValidator(),
	}
}

// List handles GET /api/v1/notifications.
// Returns the caller's notifications with read flags, newest first.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := h.notifications.ListForUser(c.Context(), userID, page, limit)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, notifications, response.CalculatePagination(page, limit, total))
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notifications.UnreadCount(c.Context(), userID)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"unread_count": count})
}

// MarkRead handles POST /api/v1/notifications/:id/read.
// Marking the last unread copy purges the notification entirely.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	notificationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notifications.MarkRead(c.Context(), uint(notificationID), userID); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "Notification marked as read"})
}
