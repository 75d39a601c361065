package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services/media"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles course catalog endpoints
type CourseHandler struct {
	db        *gorm.DB
	spaces    *media.SpacesClient
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, spaces *media.SpacesClient) *CourseHandler {
	return &CourseHandler{
		db:        db,
		spaces:    spaces,
		validator: validation.NewValidator(),
	}
}

// List handles GET /api/v1/courses.
// Students see published courses only; everything is visible to admins via
// the admin listing.
func (h *CourseHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.Model(&model.Course{}).Where("status = ?", model.CourseStatusPublished)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	var courses []model.Course
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// Get handles GET /api/v1/courses/:id
func (h *CourseHandler) Get(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, uint(courseID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if course.Status != model.CourseStatusPublished {
		return response.NotFound(c, "Course not found")
	}

	return response.Success(c, course)
}

// CreateCourseRequest carries a new course definition
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	MaxSeats    int     `json:"max_seats" validate:"gte=0"`
}

// Create handles POST /api/v1/admin/courses
func (h *CourseHandler) Create(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course := model.Course{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		MaxSeats:    req.MaxSeats,
		Status:      model.CourseStatusDraft,
	}
	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// UpdateCourseRequest carries editable course fields
type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	MaxSeats    *int     `json:"max_seats" validate:"omitempty,gte=0"`
	Status      *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
}

// Update handles PATCH /api/v1/admin/courses/:id
func (h *CourseHandler) Update(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, uint(courseID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.MaxSeats != nil {
		updates["max_seats"] = *req.MaxSeats
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := h.db.Model(&course).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.Success(c, course)
}

// ListAll handles GET /api/v1/admin/courses (all statuses)
func (h *CourseHandler) ListAll(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := h.db.Model(&model.Course{}).Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	var courses []model.Course
	if err := h.db.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// UploadThumbnail handles POST /api/v1/admin/courses/:id/thumbnail
func (h *CourseHandler) UploadThumbnail(c *fiber.Ctx) error {
	if h.spaces == nil {
		return response.InternalServerError(c, "Media storage is not configured")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, uint(courseID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	fileHeader, err := c.FormFile("thumbnail")
	if err != nil {
		return response.BadRequest(c, "Thumbnail file is required")
	}
	if fileHeader.Size > 5*1024*1024 {
		return response.BadRequest(c, "Thumbnail must be under 5MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.spaces.Upload(c.Context(), "thumbnails", fileHeader.Filename, file, contentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to store thumbnail")
	}

	old := course.ThumbnailURL
	if err := h.db.Model(&course).Update("thumbnail_url", url).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}
	if old != "" {
		_ = h.spaces.Delete(c.Context(), old)
	}

	return response.Success(c, fiber.Map{"thumbnail_url": url})
}

// Delete handles DELETE /api/v1/admin/courses/:id
func (h *CourseHandler) Delete(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, uint(courseID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	// Archive instead of delete when anyone ever enrolled; history stays
	var enrollmentCount int64
	if err := h.db.Model(&model.Enrollment{}).Where("course_id = ?", course.ID).
		Count(&enrollmentCount).Error; err != nil {
		return response.InternalServerError(c, "Failed to check enrollments")
	}
	if enrollmentCount > 0 {
		if err := h.db.Model(&course).Update("status", model.CourseStatusArchived).Error; err != nil {
			return response.InternalServerError(c, "Failed to archive course")
		}
		return response.Success(c, fiber.Map{"message": "Course has enrollments; archived instead of deleted"})
	}

	if err := h.db.Delete(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}
	if course.ThumbnailURL != "" && h.spaces != nil {
		_ = h.spaces.Delete(c.Context(), course.ThumbnailURL)
	}

	return response.Success(c, fiber.Map{"message": "Course deleted"})
}
