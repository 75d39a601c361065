package model

import (
	"time"

	"gorm.io/gorm"
)

// CourseStatus represents the publication state of a course
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// Course represents a purchasable test-preparation course
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Price        float64        `gorm:"not null" json:"price"`      // tax-inclusive
	MaxSeats     int            `gorm:"default:0" json:"max_seats"` // 0 = unlimited
	Status       CourseStatus   `gorm:"type:varchar(20);default:'draft'" json:"status"`
	ThumbnailURL string         `gorm:"type:varchar(500)" json:"thumbnail_url"`

	// Relationships
	Enrollments  []Enrollment  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Payments     []Payment     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Tests        []Test        `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"tests,omitempty"`
	Videos       []Video       `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Notes        []Note        `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	LiveSessions []LiveSession `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// IsEnrollable reports whether new enrollments are accepted
func (c *Course) IsEnrollable() bool {
	return c.Status == CourseStatusPublished
}
