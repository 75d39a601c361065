package model

import (
	"time"

	"gorm.io/gorm"
)

// Otp stores email verification codes. Redis is the hot path for lookup;
// the row is kept for audit.
type Otp struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Email     string         `gorm:"index;not null" json:"email"`
	Code      string         `gorm:"type:varchar(10);not null" json:"-"`
	ExpiresAt time.Time      `gorm:"index;not null" json:"expires_at"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
}

// TableName specifies the table name for Otp
func (Otp) TableName() string {
	return "otps"
}

// IsExpired checks if the code has expired
func (o *Otp) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}

// MarkAsUsed marks the code as used
func (o *Otp) MarkAsUsed() {
	now := time.Now()
	o.UsedAt = &now
}
