package model

import (
	"time"

	"gorm.io/gorm"
)

// EnrollmentStatus represents the state of an access grant
type EnrollmentStatus string

const (
	EnrollmentStatusActive  EnrollmentStatus = "active"
	EnrollmentStatusExpired EnrollmentStatus = "expired"
)

// Enrollment represents a user's access grant to a course.
// At most one active enrollment may exist per (user, course) pair;
// creation is guarded by a check inside the payment settlement transaction.
type Enrollment struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `gorm:"index" json:"-"`
	UserID     uint             `gorm:"not null;index:idx_enrollment_user_course" json:"user_id"`
	CourseID   uint             `gorm:"not null;index:idx_enrollment_user_course" json:"course_id"`
	EnrolledAt time.Time        `gorm:"not null" json:"enrolled_at"`
	Status     EnrollmentStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
