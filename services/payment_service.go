package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services/cashfree"
	"github.com/prepnest/prepnest-api/utils/apperr"
	"gorm.io/gorm"
)

// taxRate is the GST rate backed out of the tax-inclusive course price for
// the invoice snapshot.
const taxRate = 0.18

// PaymentService orchestrates the payment lifecycle: initiation, gateway
// confirmation (webhook push or client poll) and exactly-once enrollment
// creation inside a single transaction.
type PaymentService struct {
	db      *gorm.DB
	gateway *cashfree.Client

	returnURL string
	notifyURL string
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, gateway *cashfree.Client, returnURL, notifyURL string) *PaymentService {
	return &PaymentService{
		db:        db,
		gateway:   gateway,
		returnURL: returnURL,
		notifyURL: notifyURL,
	}
}

// InitiateResult carries the handles the client needs to open the gateway's
// checkout
type InitiateResult struct {
	PaymentSessionID string  `json:"payment_session_id"`
	OrderID          string  `json:"order_id"`
	Amount           float64 `json:"amount"`
}

// Initiate validates the purchase, records a pending Payment with its invoice
// snapshot, and opens an order with the gateway.
func (s *PaymentService) Initiate(ctx context.Context, userID, courseID uint, amount float64) (*InitiateResult, error) {
	if !s.gateway.IsConfigured() {
		return nil, apperr.Configuration("payment gateway credentials are not configured")
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("course not found")
		}
		return nil, apperr.Internal("failed to load course", err)
	}

	if !course.IsEnrollable() {
		return nil, apperr.Validation("course is not open for enrollment")
	}

	// Never trust client pricing beyond this equality check
	if amount != course.Price {
		return nil, apperr.ValidationField("amount", "amount does not match course price")
	}

	var activeCount int64
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.EnrollmentStatusActive).
		Count(&activeCount).Error; err != nil {
		return nil, apperr.Internal("failed to check enrollment", err)
	}
	if activeCount > 0 {
		return nil, apperr.Validation("already enrolled in this course")
	}

	// Seat capacity is checked at initiation only; see DESIGN.md for the
	// known window between concurrent initiations.
	if course.MaxSeats > 0 {
		var seatCount int64
		if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
			Where("course_id = ? AND status = ?", courseID, model.EnrollmentStatusActive).
			Count(&seatCount).Error; err != nil {
			return nil, apperr.Internal("failed to check seats", err)
		}
		if seatCount >= int64(course.MaxSeats) {
			return nil, apperr.Validation("course is full")
		}
	}

	now := time.Now()
	orderID := fmt.Sprintf("order_%d_%s", userID, uuid.New().String())

	// Invoice snapshot: the price is tax-inclusive, back out the base
	basePrice := math.Round(amount/(1+taxRate)*100) / 100
	payment := model.Payment{
		UserID:      userID,
		CourseID:    courseID,
		Amount:      amount,
		Currency:    "INR",
		Status:      model.PaymentStatusPending,
		CFOrderID:   orderID,
		InvoiceNo:   fmt.Sprintf("INV-%d-%d", now.Unix(), userID),
		BasePrice:   basePrice,
		Tax:         math.Round((amount-basePrice)*100) / 100,
		Total:       amount,
		PurchasedAt: now,
		PayerName:   user.Name,
	}

	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, apperr.Internal("failed to create payment", err)
	}

	order, err := s.gateway.CreateOrder(ctx, cashfree.CreateOrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount,
		OrderCurrency: payment.Currency,
		CustomerDetails: cashfree.CustomerDetails{
			CustomerID:    fmt.Sprintf("user_%d", userID),
			CustomerName:  user.Name,
			CustomerEmail: user.Email,
			CustomerPhone: user.Phone,
		},
		OrderMeta: cashfree.OrderMeta{
			ReturnURL: s.returnURL,
			NotifyURL: s.notifyURL,
		},
	})
	if err != nil {
		// Payment row stays pending and is orphaned; the client retries
		// the whole initiate flow
		return nil, apperr.Upstream("failed to open order with payment gateway", err)
	}

	log.Printf("Payment initiated: order %s for user %d, course %d", orderID, userID, courseID)

	return &InitiateResult{
		PaymentSessionID: order.PaymentSessionID,
		OrderID:          orderID,
		Amount:           amount,
	}, nil
}

// webhookPayload mirrors the gateway's webhook body
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.Number `json:"cf_payment_id"`
			PaymentStatus string      `json:"payment_status"`
			PaymentGroup  string      `json:"payment_group"`
		} `json:"payment"`
	} `json:"data"`
}

// HandleWebhook processes the provider-initiated confirmation. Idempotent
// under at-least-once delivery: the signature is verified before anything
// else, and settlement is a no-op when the payment already left pending.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.gateway.IsConfigured() {
		return apperr.Configuration("payment gateway credentials are not configured")
	}

	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		return apperr.Authentication("webhook signature mismatch")
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return apperr.Validation("malformed webhook payload")
	}
	if payload.Data.Order.OrderID == "" {
		return apperr.Validation("webhook payload missing order id")
	}

	var payment model.Payment
	if err := s.db.WithContext(ctx).
		Where("cf_order_id = ?", payload.Data.Order.OrderID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.Validation("unknown order id")
		}
		return apperr.Internal("failed to load payment", err)
	}

	// Primary duplicate-delivery defense: redeliveries of a settled payment
	// acknowledge without reprocessing
	if payment.IsSettled() {
		log.Printf("Webhook for settled order %s ignored (status %s)", payment.CFOrderID, payment.Status)
		return nil
	}

	// Only terminal statuses settle the payment. Non-terminal events
	// (PENDING, NOT_ATTEMPTED) are acknowledged and left alone so a later
	// terminal webhook or the poll path can still decide the outcome.
	switch payload.Data.Payment.PaymentStatus {
	case "SUCCESS":
		return s.settle(ctx, &payment, true,
			payload.Data.Payment.CFPaymentID.String(), payload.Data.Payment.PaymentGroup)
	case "FAILED", "USER_DROPPED", "CANCELLED", "VOID":
		return s.settle(ctx, &payment, false,
			payload.Data.Payment.CFPaymentID.String(), payload.Data.Payment.PaymentGroup)
	default:
		log.Printf("Webhook %s for order %s carries non-terminal status %s, acknowledged without settling",
			payload.Type, payment.CFOrderID, payload.Data.Payment.PaymentStatus)
		return nil
	}
}

// VerifyOrder is the client-initiated fallback when the webhook has not yet
// arrived. Shares the settlement path, and therefore the idempotency
// guarantees, with HandleWebhook.
func (s *PaymentService) VerifyOrder(ctx context.Context, orderID string, userID uint) error {
	var payment model.Payment
	if err := s.db.WithContext(ctx).
		Where("cf_order_id = ? AND user_id = ?", orderID, userID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("payment not found")
		}
		return apperr.Internal("failed to load payment", err)
	}

	if payment.Status == model.PaymentStatusCompleted {
		return nil // webhook won the race; nothing to do
	}
	if payment.Status == model.PaymentStatusFailed {
		return apperr.Conflict("payment already failed; start a new payment")
	}

	order, err := s.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return apperr.Upstream("failed to query payment gateway", err)
	}

	if !order.IsPaid() {
		if err := s.settle(ctx, &payment, false, "", ""); err != nil {
			return err
		}
		return apperr.Validation("payment not completed")
	}

	cfPaymentID, method := "", ""
	if payments, err := s.gateway.GetOrderPayments(ctx, orderID); err == nil {
		for _, p := range payments {
			if p.PaymentStatus == "SUCCESS" {
				cfPaymentID = p.CFPaymentID.String()
				method = p.PaymentGroup
				break
			}
		}
	}

	return s.settle(ctx, &payment, true, cfPaymentID, method)
}

// settle transitions a pending payment to its terminal state and, on
// success, creates the enrollment, all inside one transaction. The
// conditional status update is the guard that makes the webhook/poll race
// safe: whichever path commits first wins, the loser sees zero rows and
// backs off.
func (s *PaymentService) settle(ctx context.Context, payment *model.Payment, succeeded bool, cfPaymentID, method string) error {
	newStatus := model.PaymentStatusFailed
	if succeeded {
		newStatus = model.PaymentStatusCompleted
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", payment.ID, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":         newStatus,
				"cf_payment_id":  cfPaymentID,
				"payment_method": method,
				"settled_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to the other confirmation path; their
			// transaction already settled and enrolled
			return nil
		}

		if !succeeded {
			return nil
		}

		// Check-then-create keeps enrollment exactly-once per (user, course)
		// even if a stray duplicate payment settles
		var existing int64
		if err := tx.Model(&model.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND status = ?",
				payment.UserID, payment.CourseID, model.EnrollmentStatusActive).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		enrollment := model.Enrollment{
			UserID:     payment.UserID,
			CourseID:   payment.CourseID,
			EnrolledAt: now,
			Status:     model.EnrollmentStatusActive,
		}
		return tx.Create(&enrollment).Error
	})
	if err != nil {
		return apperr.Internal("failed to settle payment", err)
	}

	log.Printf("Payment %s settled as %s", payment.CFOrderID, newStatus)
	return nil
}

// GetInvoice returns the denormalized invoice snapshot of a completed payment
func (s *PaymentService) GetInvoice(ctx context.Context, paymentID, userID uint) (*model.Payment, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("id = ? AND user_id = ?", paymentID, userID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, apperr.Internal("failed to load payment", err)
	}

	if payment.Status != model.PaymentStatusCompleted {
		return nil, apperr.Validation("invoice available only for completed payments")
	}

	return &payment, nil
}

// ListForUser returns a user's payment history, newest first
func (s *PaymentService) ListForUser(ctx context.Context, userID uint) ([]model.Payment, error) {
	var payments []model.Payment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, apperr.Internal("failed to fetch payments", err)
	}
	return payments, nil
}
