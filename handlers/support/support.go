package support

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
	"gorm.io/gorm"
)

// SupportHandler handles support tickets and course feedback
type SupportHandler struct {
	db          *gorm.DB
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewSupportHandler creates a new support handler
func NewSupportHandler(db *gorm.DB, enrollments *services.EnrollmentService) *SupportHandler {
	return &SupportHandler{
		db:          db,
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// CreateTicketRequest opens a new support ticket
type CreateTicketRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required"`
}

// CreateTicket handles POST /api/v1/support/tickets
func (h *SupportHandler) CreateTicket(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ticket := model.SupportTicket{
		UserID:  userID,
		Subject: req.Subject,
		Message: req.Message,
		Status:  model.TicketOpen,
	}
	if err := h.db.Create(&ticket).Error; err != nil {
		return response.InternalServerError(c, "Failed to create ticket")
	}

	return response.Created(c, ticket)
}

// MyTickets handles GET /api/v1/support/tickets
func (h *SupportHandler) MyTickets(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var tickets []model.SupportTicket
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&tickets).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	return response.Success(c, tickets)
}

// ListTickets handles GET /api/v1/admin/support/tickets
func (h *SupportHandler) ListTickets(c *fiber.Ctx) error {
	status := c.Query("status")

	query := h.db.Preload("User").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tickets []model.SupportTicket
	if err := query.Find(&tickets).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	return response.Success(c, tickets)
}

// ReplyTicketRequest carries the admin's response
type ReplyTicketRequest struct {
	Reply  string `json:"reply" validate:"required"`
	Status string `json:"status" validate:"required,oneof=open resolved closed"`
}

// ReplyTicket handles POST /api/v1/admin/support/tickets/:id/reply
func (h *SupportHandler) ReplyTicket(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	var req ReplyTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var ticket model.SupportTicket
	if err := h.db.First(&ticket, uint(ticketID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to fetch ticket")
	}

	if err := h.db.Model(&ticket).Updates(map[string]interface{}{
		"reply":  req.Reply,
		"status": req.Status,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update ticket")
	}

	return response.Success(c, ticket)
}

// SubmitFeedbackRequest rates a course
type SubmitFeedbackRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment  string `json:"comment"`
}

// SubmitFeedback handles POST /api/v1/feedback.
// One feedback per user per course; resubmission updates it.
func (h *SupportHandler) SubmitFeedback(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req SubmitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrolled, err := h.enrollments.IsEnrolled(c.Context(), userID, req.CourseID)
	if err != nil {
		return response.FromAppError(c, err)
	}
	if !enrolled {
		return response.Forbidden(c, "Enroll in the course to leave feedback")
	}

	var feedback model.Feedback
	err = h.db.Where("user_id = ? AND course_id = ?", userID, req.CourseID).First(&feedback).Error
	if err == gorm.ErrRecordNotFound {
		feedback = model.Feedback{
			UserID:   userID,
			CourseID: req.CourseID,
			Rating:   req.Rating,
			Comment:  req.Comment,
		}
		if err := h.db.Create(&feedback).Error; err != nil {
			return response.InternalServerError(c, "Failed to submit feedback")
		}
		return response.Created(c, feedback)
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to check feedback")
	}

	if err := h.db.Model(&feedback).Updates(map[string]interface{}{
		"rating":  req.Rating,
		"comment": req.Comment,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update feedback")
	}

	return response.Success(c, feedback)
}

// CourseFeedback handles GET /api/v1/courses/:id/feedback
func (h *SupportHandler) CourseFeedback(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var feedback []model.Feedback
	if err := h.db.Preload("User").
		Where("course_id = ?", uint(courseID)).
		Order("created_at DESC").
		Find(&feedback).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch feedback")
	}

	var avg struct{ Avg float64 }
	h.db.Model(&model.Feedback{}).Select("COALESCE(AVG(rating), 0) as avg").
		Where("course_id = ?", uint(courseID)).Scan(&avg)

	return response.Success(c, fiber.Map{
		"feedback":       feedback,
		"average_rating": avg.Avg,
	})
}
