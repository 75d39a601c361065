package model

import (
	"time"

	"gorm.io/gorm"
)

// Video represents a recorded lecture attached to a course
type Video struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	URL         string         `gorm:"type:varchar(500);not null" json:"url"`
	DurationSec int            `json:"duration_sec"`

	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Video
func (Video) TableName() string {
	return "videos"
}

// Note represents downloadable study material attached to a course
type Note struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Title     string         `gorm:"not null" json:"title"`
	FileURL   string         `gorm:"type:varchar(500);not null" json:"file_url"`

	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Note
func (Note) TableName() string {
	return "notes"
}

// LiveSessionStatus represents the state of a scheduled live class
type LiveSessionStatus string

const (
	LiveSessionUpcoming LiveSessionStatus = "upcoming"
	LiveSessionEnded    LiveSessionStatus = "ended"
)

// LiveSession represents a scheduled live class for a course
type LiveSession struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt gorm.DeletedAt    `gorm:"index" json:"-"`
	CourseID  uint              `gorm:"not null;index" json:"course_id"`
	Title     string            `gorm:"not null" json:"title"`
	JoinURL   string            `gorm:"type:varchar(500);not null" json:"join_url"`
	StartsAt  time.Time         `gorm:"not null;index" json:"starts_at"`
	EndsAt    time.Time         `gorm:"not null" json:"ends_at"`
	Status    LiveSessionStatus `gorm:"type:varchar(20);default:'upcoming'" json:"status"`

	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for LiveSession
func (LiveSession) TableName() string {
	return "live_sessions"
}
