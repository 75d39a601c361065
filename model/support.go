package model

import (
	"time"

	"gorm.io/gorm"
)

// TicketStatus represents the state of a support ticket
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketResolved TicketStatus = "resolved"
	TicketClosed   TicketStatus = "closed"
)

// SupportTicket represents a help request raised by a user
type SupportTicket struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Subject   string         `gorm:"type:varchar(255);not null" json:"subject"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Status    TicketStatus   `gorm:"type:varchar(20);default:'open'" json:"status"`
	Reply     string         `gorm:"type:text" json:"reply,omitempty"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for SupportTicket
func (SupportTicket) TableName() string {
	return "support_tickets"
}

// Feedback represents a course rating and comment from an enrolled user
type Feedback struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Rating    int            `gorm:"not null" json:"rating"` // 1-5
	Comment   string         `gorm:"type:text" json:"comment"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Feedback
func (Feedback) TableName() string {
	return "feedback"
}
