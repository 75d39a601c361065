package enrollment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
)

// EnrollmentHandler handles enrollment endpoints
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// EnrollFree handles POST /api/v1/courses/:id/enroll.
// Free courses only; paid courses go through the payment flow.
func (h *EnrollmentHandler) EnrollFree(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	enrollment, err := h.enrollments.EnrollFree(c.Context(), userID, uint(courseID))
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, enrollment)
}

// MyCourses handles GET /api/v1/enrollments
func (h *EnrollmentHandler) MyCourses(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollments, err := h.enrollments.ListForUser(c.Context(), userID)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, enrollments)
}

// ListForCourse handles GET /api/v1/admin/courses/:id/enrollments
func (h *EnrollmentHandler) ListForCourse(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	enrollments, err := h.enrollments.ListForCourse(c.Context(), uint(courseID))
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, enrollments)
}

// Expire handles POST /api/v1/admin/enrollments/:id/expire
func (h *EnrollmentHandler) Expire(c *fiber.Ctx) error {
	enrollmentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	if err := h.enrollments.Expire(c.Context(), uint(enrollmentID)); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "Enrollment expired"})
}

// Delete handles DELETE /api/v1/admin/enrollments/:id
func (h *EnrollmentHandler) Delete(c *fiber.Ctx) error {
	enrollmentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	if err := h.enrollments.Delete(c.Context(), uint(enrollmentID)); err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, fiber.Map{"message": "Enrollment deleted"})
}
