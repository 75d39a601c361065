package test

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestHandler handles mock test endpoints
type TestHandler struct {
	db          *gorm.DB
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewTestHandler creates a new test handler
func NewTestHandler(db *gorm.DB, enrollments *services.EnrollmentService) *TestHandler {
	return &TestHandler{
		db:          db,
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// requireEnrollment loads the test and checks the caller can access its course
func (h *TestHandler) requireEnrollment(c *fiber.Ctx, testID uint) (*model.Test, error) {
	var t model.Test
	if err := h.db.First(&t, testID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NotFound(c, "Test not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch test")
	}

	userID, _ := middleware.GetUserID(c)
	enrolled, err := h.enrollments.IsEnrolled(c.Context(), userID, t.CourseID)
	if err != nil {
		return nil, response.FromAppError(c, err)
	}
	if !enrolled {
		return nil, response.Forbidden(c, "Enroll in the course to access its tests")
	}

	return &t, nil
}

// ListForCourse handles GET /api/v1/courses/:id/tests
func (h *TestHandler) ListForCourse(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrolled, err := h.enrollments.IsEnrolled(c.Context(), userID, uint(courseID))
	if err != nil {
		return response.FromAppError(c, err)
	}
	if !enrolled {
		return response.Forbidden(c, "Enroll in the course to access its tests")
	}

	var tests []model.Test
	if err := h.db.Where("course_id = ?", uint(courseID)).
		Order("created_at DESC").Find(&tests).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tests")
	}

	return response.Success(c, tests)
}

// Get handles GET /api/v1/tests/:id.
// Questions are returned without their answers.
func (h *TestHandler) Get(c *fiber.Ctx) error {
	testID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid test ID")
	}

	t, errResp := h.requireEnrollment(c, uint(testID))
	if t == nil {
		return errResp
	}

	var questions []model.Question
	if err := h.db.Where("test_id = ?", t.ID).Order("id ASC").Find(&questions).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch questions")
	}
	t.Questions = questions

	return response.Success(c, t)
}

// SubmittedAnswer is one answer in a submission. Single-choice answers use
// Selected; multi-choice use SelectedMulti.
type SubmittedAnswer struct {
	QuestionID    uint     `json:"question_id" validate:"required"`
	Selected      string   `json:"selected"`
	SelectedMulti []string `json:"selected_multi"`
}

// SubmitRequest carries a full test submission
type SubmitRequest struct {
	Answers []SubmittedAnswer `json:"answers" validate:"required,dive"`
}

// Submit handles POST /api/v1/tests/:id/submit.
// Grades the submission server-side and stores the result.
func (h *TestHandler) Submit(c *fiber.Ctx) error {
	testID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid test ID")
	}

	t, errResp := h.requireEnrollment(c, uint(testID))
	if t == nil {
		return errResp
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var questions []model.Question
	if err := h.db.Where("test_id = ?", t.ID).Find(&questions).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch questions")
	}

	answered := make(map[uint]SubmittedAnswer, len(req.Answers))
	for _, a := range req.Answers {
		answered[a.QuestionID] = a
	}

	userID, _ := middleware.GetUserID(c)
	result := model.TestResult{
		TestID: t.ID,
		UserID: userID,
	}

	for _, q := range questions {
		result.TotalMarks += q.Marks

		a, ok := answered[q.ID]
		if !ok || (a.Selected == "" && len(a.SelectedMulti) == 0) {
			result.Unanswered++
			continue
		}

		correct, err := q.DecodeAnswer()
		if err != nil {
			return response.InternalServerError(c, "Failed to grade submission")
		}

		if correct.Matches(q.Kind, a.Selected, a.SelectedMulti) {
			result.Correct++
			result.Score += q.Marks
		} else {
			result.Incorrect++
		}
	}

	result.SubmittedAt = time.Now()
	if err := h.db.Create(&result).Error; err != nil {
		return response.InternalServerError(c, "Failed to store result")
	}

	return response.Created(c, result)
}

// MyResults handles GET /api/v1/tests/results
func (h *TestHandler) MyResults(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var results []model.TestResult
	if err := h.db.Preload("Test").
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch results")
	}

	return response.Success(c, results)
}

// CreateTestRequest defines a new test
type CreateTestRequest struct {
	CourseID    uint   `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	DurationMin int    `json:"duration_min" validate:"gte=1,lte=480"`
}

// Create handles POST /api/v1/admin/tests
func (h *TestHandler) Create(c *fiber.Ctx) error {
	var req CreateTestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	t := model.Test{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		DurationMin: req.DurationMin,
	}
	if err := h.db.Create(&t).Error; err != nil {
		return response.InternalServerError(c, "Failed to create test")
	}

	return response.Created(c, t)
}

// AddQuestionRequest defines one question. Answer carries a single option
// string for single_choice and an array of options for multi_choice.
type AddQuestionRequest struct {
	Text    string          `json:"text" validate:"required"`
	Kind    string          `json:"kind" validate:"required,oneof=single_choice multi_choice"`
	Options []string        `json:"options" validate:"required,min=2,max=10"`
	Answer  json.RawMessage `json:"answer" validate:"required"`
	Marks   int             `json:"marks" validate:"gte=1,lte=100"`
}

// AddQuestion handles POST /api/v1/admin/tests/:id/questions
func (h *TestHandler) AddQuestion(c *fiber.Ctx) error {
	testID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid test ID")
	}

	var t model.Test
	if err := h.db.First(&t, uint(testID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Test not found")
		}
		return response.InternalServerError(c, "Failed to fetch test")
	}

	var req AddQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	options := make(map[string]struct{}, len(req.Options))
	for _, opt := range req.Options {
		options[opt] = struct{}{}
	}

	// The answer shape must match the question kind, and every referenced
	// option must exist
	switch model.QuestionKind(req.Kind) {
	case model.QuestionSingleChoice:
		var single string
		if err := json.Unmarshal(req.Answer, &single); err != nil {
			return response.BadRequest(c, "Answer must be a single option string")
		}
		if _, ok := options[single]; !ok {
			return response.BadRequest(c, "Answer must be one of the options")
		}
	case model.QuestionMultiChoice:
		var multi []string
		if err := json.Unmarshal(req.Answer, &multi); err != nil || len(multi) == 0 {
			return response.BadRequest(c, "Answer must be a non-empty array of options")
		}
		for _, opt := range multi {
			if _, ok := options[opt]; !ok {
				return response.BadRequest(c, "Every answer must be one of the options")
			}
		}
	}

	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return response.InternalServerError(c, "Failed to encode options")
	}

	q := model.Question{
		TestID:  t.ID,
		Text:    req.Text,
		Kind:    model.QuestionKind(req.Kind),
		Options: datatypes.JSON(optionsJSON),
		Answer:  datatypes.JSON(req.Answer),
		Marks:   req.Marks,
	}
	if err := h.db.Create(&q).Error; err != nil {
		return response.InternalServerError(c, "Failed to create question")
	}

	return response.Created(c, q)
}

// DeleteQuestion handles DELETE /api/v1/admin/questions/:id
func (h *TestHandler) DeleteQuestion(c *fiber.Ctx) error {
	questionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid question ID")
	}

	res := h.db.Delete(&model.Question{}, uint(questionID))
	if res.Error != nil {
		return response.InternalServerError(c, "Failed to delete question")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Question not found")
	}

	return response.Success(c, fiber.Map{"message": "Question deleted"})
}

// Delete handles DELETE /api/v1/admin/tests/:id
func (h *TestHandler) Delete(c *fiber.Ctx) error {
	testID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid test ID")
	}

	res := h.db.Delete(&model.Test{}, uint(testID))
	if res.Error != nil {
		return response.InternalServerError(c, "Failed to delete test")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Test not found")
	}

	return response.Success(c, fiber.Map{"message": "Test deleted"})
}
