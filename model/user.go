package model

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the role assigned to a user
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// UserStatus represents the account state of a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Phone        string         `gorm:"type:varchar(20)" json:"phone"`
	Role         UserRole       `gorm:"type:varchar(20);default:'student'" json:"role"`
	Status       UserStatus     `gorm:"type:varchar(20);default:'active'" json:"status"`
	Verified     bool           `gorm:"default:false" json:"verified"`

	// Relationships
	Enrollments   []Enrollment            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"enrollments,omitempty"`
	Payments      []Payment               `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notifications []NotificationRecipient `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TestResults   []TestResult            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account can use the platform
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
