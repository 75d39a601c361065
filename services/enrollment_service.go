package services

import (
	"context"
	"time"

	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/utils/apperr"
	"gorm.io/gorm"
)

// EnrollmentService grants and revokes course access. Paid enrollments are
// created by the payment settlement transaction; this service covers the
// free-course path and admin management.
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// EnrollFree grants access to a zero-priced course. Runs the same uniqueness
// and capacity checks as the paid path, but inside its own transaction since
// there is no payment to settle.
func (s *EnrollmentService) EnrollFree(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment *model.Enrollment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("course not found")
			}
			return apperr.Internal("failed to load course", err)
		}

		if !course.IsEnrollable() {
			return apperr.Validation("course is not open for enrollment")
		}
		if course.Price > 0 {
			return apperr.Validation("course requires payment")
		}

		var existing int64
		if err := tx.Model(&model.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentStatusActive).
			Count(&existing).Error; err != nil {
			return apperr.Internal("failed to check enrollment", err)
		}
		if existing > 0 {
			return apperr.Conflict("already enrolled in this course")
		}

		if course.MaxSeats > 0 {
			var seatCount int64
			if err := tx.Model(&model.Enrollment{}).
				Where("course_id = ? AND status = ?", courseID, model.EnrollmentStatusActive).
				Count(&seatCount).Error; err != nil {
				return apperr.Internal("failed to check seats", err)
			}
			if seatCount >= int64(course.MaxSeats) {
				return apperr.Validation("course is full")
			}
		}

		enrollment = &model.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			EnrolledAt: time.Now(),
			Status:     model.EnrollmentStatusActive,
		}
		if err := tx.Create(enrollment).Error; err != nil {
			return apperr.Internal("failed to create enrollment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return enrollment, nil
}

// ListForUser returns the caller's enrollments with their courses
func (s *EnrollmentService) ListForUser(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, apperr.Internal("failed to fetch enrollments", err)
	}
	return enrollments, nil
}

// IsEnrolled reports whether the user holds an active enrollment for the course
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentStatusActive).
		Count(&count).Error; err != nil {
		return false, apperr.Internal("failed to check enrollment", err)
	}
	return count > 0, nil
}

// Expire marks an enrollment expired without deleting its history
func (s *EnrollmentService) Expire(ctx context.Context, enrollmentID uint) error {
	res := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", enrollmentID, model.EnrollmentStatusActive).
		Update("status", model.EnrollmentStatusExpired)
	if res.Error != nil {
		return apperr.Internal("failed to expire enrollment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("active enrollment not found")
	}
	return nil
}

// Delete removes an enrollment entirely (admin correction path)
func (s *EnrollmentService) Delete(ctx context.Context, enrollmentID uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Enrollment{}, enrollmentID)
	if res.Error != nil {
		return apperr.Internal("failed to delete enrollment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}

// ListForCourse returns every enrollment on a course (admin view)
func (s *EnrollmentService) ListForCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).Preload("User").
		Where("course_id = ?", courseID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, apperr.Internal("failed to fetch enrollments", err)
	}
	return enrollments, nil
}
