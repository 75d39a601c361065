package model

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus represents the lifecycle state of a payment attempt.
// Transitions are pending→completed or pending→failed, never reversed.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment represents one attempt to pay for one course by one user
type Payment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	CourseID      uint           `gorm:"not null;index" json:"course_id"`
	Amount        float64        `gorm:"not null" json:"amount"`
	Currency      string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status        PaymentStatus  `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CFOrderID     string         `gorm:"type:varchar(100);uniqueIndex" json:"cf_order_id"`
	CFPaymentID   string         `gorm:"type:varchar(100)" json:"cf_payment_id"`
	PaymentMethod string         `gorm:"type:varchar(50)" json:"payment_method"`
	SettledAt     *time.Time     `json:"settled_at"`

	// Invoice snapshot captured at initiation so invoice display is
	// independent of later course-price changes.
	InvoiceNo   string    `gorm:"type:varchar(50)" json:"invoice_no"`
	BasePrice   float64   `json:"base_price"`
	Tax         float64   `json:"tax"`
	Total       float64   `json:"total"`
	PurchasedAt time.Time `json:"purchased_at"`
	PayerName   string    `gorm:"type:varchar(255)" json:"payer_name"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// IsSettled reports whether the payment has reached a terminal state
func (p *Payment) IsSettled() bool {
	return p.Status != PaymentStatusPending
}
