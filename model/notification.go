package model

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType represents the kind of message being sent
type NotificationType string

const (
	NotificationTypeAnnouncement NotificationType = "announcement"
	NotificationTypeReminder     NotificationType = "reminder"
)

// NotificationChannel represents how a notification is delivered
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

// NotificationStatus represents the delivery state of a notification.
// pending only occurs for in-app notifications scheduled in the future;
// every other combination resolves to sent or failed at creation time.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// AudienceKind is the tagged recipient-class descriptor: the whole student
// body, one course's enrolled students, or a single student.
type AudienceKind string

const (
	AudienceAll     AudienceKind = "all"
	AudienceCourse  AudienceKind = "course"
	AudienceStudent AudienceKind = "student"
)

// Notification represents one message fanned out to one or more recipients
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	ImageURL  string         `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	Type      NotificationType    `gorm:"type:varchar(20);not null" json:"type"`
	Channel   NotificationChannel `gorm:"type:varchar(10);not null" json:"channel"`
	Status    NotificationStatus  `gorm:"type:varchar(10);not null;index" json:"status"`

	// Audience is recorded so an admin resend can re-resolve it later.
	AudienceKind     AudienceKind `gorm:"type:varchar(10);not null" json:"audience_kind"`
	AudienceCourseID *uint        `json:"audience_course_id,omitempty"`
	AudienceUserID   *uint        `json:"audience_user_id,omitempty"`

	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at,omitempty"`

	// Relationships
	Recipients []NotificationRecipient `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"recipients,omitempty"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// NotificationRecipient links a notification to one recipient and carries the
// per-recipient read mark. The composite primary key makes duplicate read
// marks impossible (set semantics).
type NotificationRecipient struct {
	NotificationID uint       `gorm:"primaryKey" json:"notification_id"`
	UserID         uint       `gorm:"primaryKey" json:"user_id"`
	ReadAt         *time.Time `json:"read_at,omitempty"`

	// Relationships
	Notification Notification `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"-"`
	User         User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for NotificationRecipient
func (NotificationRecipient) TableName() string {
	return "notification_recipients"
}

// IsRead reports whether the recipient has read the notification
func (r *NotificationRecipient) IsRead() bool {
	return r.ReadAt != nil
}

// NotificationResponse represents the API response format for a notification
type NotificationResponse struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	ImageURL    string              `json:"image_url,omitempty"`
	Type        NotificationType    `json:"type"`
	Channel     NotificationChannel `json:"channel"`
	Status      NotificationStatus  `json:"status"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Read        bool                `json:"read"`
}

// ToResponse converts a Notification plus the caller's read state
func (n *Notification) ToResponse(read bool) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		ImageURL:    n.ImageURL,
		Type:        n.Type,
		Channel:     n.Channel,
		Status:      n.Status,
		ScheduledAt: n.ScheduledAt,
		CreatedAt:   n.CreatedAt,
		Read:        read,
	}
}
