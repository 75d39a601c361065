package content

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/services/media"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
	"gorm.io/gorm"
)

// ContentHandler handles course content endpoints: videos, notes and live
// sessions. All student reads are enrollment-gated.
type ContentHandler struct {
	db          *gorm.DB
	enrollments *services.EnrollmentService
	spaces      *media.SpacesClient
	validator   *validation.Validator
}

// NewContentHandler creates a new content handler
func NewContentHandler(db *gorm.DB, enrollments *services.EnrollmentService, spaces *media.SpacesClient) *ContentHandler {
	return &ContentHandler{
		db:          db,
		enrollments: enrollments,
		spaces:      spaces,
		validator:   validation.NewValidator(),
	}
}

func (h *ContentHandler) gate(c *fiber.Ctx) (uint, error) {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, response.BadRequest(c, "Invalid course ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return 0, response.Unauthorized(c, "User not authenticated")
	}

	enrolled, err := h.enrollments.IsEnrolled(c.Context(), userID, uint(courseID))
	if err != nil {
		return 0, response.FromAppError(c, err)
	}
	if !enrolled {
		return 0, response.Forbidden(c, "Enroll in the course to access its content")
	}

	return uint(courseID), nil
}

// ListVideos handles GET /api/v1/courses/:id/videos
func (h *ContentHandler) ListVideos(c *fiber.Ctx) error {
	courseID, errResp := h.gate(c)
	if courseID == 0 {
		return errResp
	}

	var videos []model.Video
	if err := h.db.Where("course_id = ?", courseID).
		Order("created_at ASC").Find(&videos).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch videos")
	}

	return response.Success(c, videos)
}

// ListNotes handles GET /api/v1/courses/:id/notes
func (h *ContentHandler) ListNotes(c *fiber.Ctx) error {
	courseID, errResp := h.gate(c)
	if courseID == 0 {
		return errResp
	}

	var notes []model.Note
	if err := h.db.Where("course_id = ?", courseID).
		Order("created_at ASC").Find(&notes).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch notes")
	}

	return response.Success(c, notes)
}

// ListLiveSessions handles GET /api/v1/courses/:id/live-sessions
func (h *ContentHandler) ListLiveSessions(c *fiber.Ctx) error {
	courseID, errResp := h.gate(c)
	if courseID == 0 {
		return errResp
	}

	var sessions []model.LiveSession
	if err := h.db.Where("course_id = ?", courseID).
		Order("starts_at ASC").Find(&sessions).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch live sessions")
	}

	return response.Success(c, sessions)
}

// AddVideoRequest defines a new recorded lecture
type AddVideoRequest struct {
	CourseID    uint   `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	URL         string `json:"url" validate:"required,url,max=500"`
	DurationSec int    `json:"duration_sec" validate:"gte=0"`
}

// AddVideo handles POST /api/v1/admin/videos
func (h *ContentHandler) AddVideo(c *fiber.Ctx) error {
	var req AddVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.courseExists(req.CourseID); err != nil {
		return response.NotFound(c, "Course not found")
	}

	video := model.Video{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		DurationSec: req.DurationSec,
	}
	if err := h.db.Create(&video).Error; err != nil {
		return response.InternalServerError(c, "Failed to create video")
	}

	return response.Created(c, video)
}

// UploadNote handles POST /api/v1/admin/notes.
// Accepts a multipart file upload, stores it, then records the note.
func (h *ContentHandler) UploadNote(c *fiber.Ctx) error {
	if h.spaces == nil {
		return response.InternalServerError(c, "Media storage is not configured")
	}

	courseID, err := strconv.ParseUint(c.FormValue("course_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	title := c.FormValue("title")
	if title == "" {
		return response.BadRequest(c, "Title is required")
	}

	if err := h.courseExists(uint(courseID)); err != nil {
		return response.NotFound(c, "Course not found")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Note file is required")
	}
	if fileHeader.Size > 25*1024*1024 {
		return response.BadRequest(c, "Note must be under 25MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.spaces.Upload(c.Context(), "notes", fileHeader.Filename, file, contentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to store note")
	}

	note := model.Note{
		CourseID: uint(courseID),
		Title:    title,
		FileURL:  url,
	}
	if err := h.db.Create(&note).Error; err != nil {
		_ = h.spaces.Delete(c.Context(), url)
		return response.InternalServerError(c, "Failed to create note")
	}

	return response.Created(c, note)
}

// ScheduleLiveSessionRequest defines a new live class
type ScheduleLiveSessionRequest struct {
	CourseID uint      `json:"course_id" validate:"required"`
	Title    string    `json:"title" validate:"required,max=255"`
	JoinURL  string    `json:"join_url" validate:"required,url,max=500"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// ScheduleLiveSession handles POST /api/v1/admin/live-sessions
func (h *ContentHandler) ScheduleLiveSession(c *fiber.Ctx) error {
	var req ScheduleLiveSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.StartsAt.Before(time.Now()) {
		return response.BadRequest(c, "Session must start in the future")
	}
	if err := h.courseExists(req.CourseID); err != nil {
		return response.NotFound(c, "Course not found")
	}

	session := model.LiveSession{
		CourseID: req.CourseID,
		Title:    req.Title,
		JoinURL:  req.JoinURL,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Status:   model.LiveSessionUpcoming,
	}
	if err := h.db.Create(&session).Error; err != nil {
		return response.InternalServerError(c, "Failed to schedule session")
	}

	return response.Created(c, session)
}

// DeleteVideo handles DELETE /api/v1/admin/videos/:id
func (h *ContentHandler) DeleteVideo(c *fiber.Ctx) error {
	return h.deleteByID(c, &model.Video{}, "Video")
}

// DeleteNote handles DELETE /api/v1/admin/notes/:id
func (h *ContentHandler) DeleteNote(c *fiber.Ctx) error {
	noteID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid note ID")
	}

	var note model.Note
	if err := h.db.First(&note, uint(noteID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Note not found")
		}
		return response.InternalServerError(c, "Failed to fetch note")
	}

	if err := h.db.Delete(&note).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete note")
	}
	if note.FileURL != "" && h.spaces != nil {
		_ = h.spaces.Delete(c.Context(), note.FileURL)
	}

	return response.Success(c, fiber.Map{"message": "Note deleted"})
}

// DeleteLiveSession handles DELETE /api/v1/admin/live-sessions/:id
func (h *ContentHandler) DeleteLiveSession(c *fiber.Ctx) error {
	return h.deleteByID(c, &model.LiveSession{}, "Live session")
}

func (h *ContentHandler) deleteByID(c *fiber.Ctx, m interface{}, label string) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ID")
	}

	res := h.db.Delete(m, uint(id))
	if res.Error != nil {
		return response.InternalServerError(c, "Failed to delete "+label)
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, label+" not found")
	}

	return response.Success(c, fiber.Map{"message": label + " deleted"})
}

func (h *ContentHandler) courseExists(courseID uint) error {
	var course model.Course
	return h.db.Select("id").First(&course, courseID).Error
}
