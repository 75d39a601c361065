package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services/cashfree"
	"github.com/prepnest/prepnest-api/utils/apperr"
	"gorm.io/gorm"
)

const webhookTestSecret = "webhook-test-secret"

func testPaymentService(db *gorm.DB) *PaymentService {
	gateway := cashfree.NewClient(cashfree.Config{
		AppID:     "test-app",
		SecretKey: webhookTestSecret,
	})
	return NewPaymentService(db, gateway, "https://example.com/return", "https://example.com/notify")
}

func seedPendingPayment(t *testing.T, db *gorm.DB, userID, courseID uint, amount float64) model.Payment {
	t.Helper()
	payment := model.Payment{
		UserID:      userID,
		CourseID:    courseID,
		Amount:      amount,
		Currency:    "INR",
		Status:      model.PaymentStatusPending,
		CFOrderID:   fmt.Sprintf("order_%d_test", userID),
		InvoiceNo:   "INV-TEST-1",
		BasePrice:   846.61,
		Tax:         152.39,
		Total:       amount,
		PurchasedAt: time.Now(),
		PayerName:   "Test Student",
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("failed to seed payment: %v", err)
	}
	return payment
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func successWebhookBody(orderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"%s"},"payment":{"cf_payment_id":5114917,"payment_status":"SUCCESS","payment_group":"upi"}}}`,
		orderID))
}

func TestHandleWebhookSettlesAndEnrolls(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "webhook@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	body := successWebhookBody(payment.CFOrderID)
	if err := svc.HandleWebhook(context.Background(), body, signWebhook(body)); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	var got model.Payment
	if err := db.First(&got, payment.ID).Error; err != nil {
		t.Fatalf("failed to reload payment: %v", err)
	}
	if got.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CFPaymentID != "5114917" {
		t.Errorf("expected provider payment id recorded, got %q", got.CFPaymentID)
	}
	if got.SettledAt == nil {
		t.Error("expected settled_at to be set")
	}

	var enrollments int64
	db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", user.ID, course.ID, model.EnrollmentStatusActive).
		Count(&enrollments)
	if enrollments != 1 {
		t.Errorf("expected exactly 1 active enrollment, got %d", enrollments)
	}
}

func TestHandleWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "duplicate@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	body := successWebhookBody(payment.CFOrderID)
	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(context.Background(), body, signWebhook(body)); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	if enrollments != 1 {
		t.Errorf("expected exactly 1 enrollment after redeliveries, got %d", enrollments)
	}
}

func TestHandleWebhookIgnoresNonTerminalStatus(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "nonterminal@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	pendingBody := []byte(fmt.Sprintf(
		`{"type":"PAYMENT_PENDING_WEBHOOK","data":{"order":{"order_id":"%s"},"payment":{"cf_payment_id":5114917,"payment_status":"PENDING","payment_group":"upi"}}}`,
		payment.CFOrderID))
	if err := svc.HandleWebhook(context.Background(), pendingBody, signWebhook(pendingBody)); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	// A PENDING event must not decide the outcome
	var got model.Payment
	db.First(&got, payment.ID)
	if got.Status != model.PaymentStatusPending {
		t.Fatalf("non-terminal webhook must leave the payment pending, got %s", got.Status)
	}

	// The later terminal event still settles and enrolls
	successBody := successWebhookBody(payment.CFOrderID)
	if err := svc.HandleWebhook(context.Background(), successBody, signWebhook(successBody)); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	db.First(&got, payment.ID)
	if got.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed after terminal webhook, got %s", got.Status)
	}

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	if enrollments != 1 {
		t.Errorf("expected 1 enrollment, got %d", enrollments)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "badsig@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	body := successWebhookBody(payment.CFOrderID)
	err := svc.HandleWebhook(context.Background(), body, "not-a-valid-signature")
	if apperr.KindOf(err) != apperr.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}

	var got model.Payment
	db.First(&got, payment.ID)
	if got.Status != model.PaymentStatusPending {
		t.Errorf("rejected webhook must not change payment state, got %s", got.Status)
	}
}

func TestConcurrentSettlementCreatesOneEnrollment(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "race@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	// Webhook and poll paths racing on the same pending payment
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := payment
			_ = svc.settle(context.Background(), &p, true, "5114917", "upi")
		}()
	}
	wg.Wait()

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	if enrollments != 1 {
		t.Errorf("expected exactly 1 enrollment after concurrent settles, got %d", enrollments)
	}

	var got model.Payment
	db.First(&got, payment.ID)
	if got.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
}

func TestFailedSettlementCreatesNoEnrollment(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "failed@example.com")
	course := seedCourse(t, db, 999)
	payment := seedPendingPayment(t, db, user.ID, course.ID, 999)

	if err := svc.settle(context.Background(), &payment, false, "", ""); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	var got model.Payment
	db.First(&got, payment.ID)
	if got.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}

	var enrollments int64
	db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	if enrollments != 0 {
		t.Errorf("expected no enrollment for a failed payment, got %d", enrollments)
	}
}

func TestInitiateRejectsPriceMismatch(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "price@example.com")
	course := seedCourse(t, db, 999)

	_, err := svc.Initiate(context.Background(), user.ID, course.ID, 500)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for price mismatch, got %v", err)
	}

	var payments int64
	db.Model(&model.Payment{}).Where("user_id = ?", user.ID).Count(&payments)
	if payments != 0 {
		t.Errorf("expected no payment row after rejected initiation, got %d", payments)
	}
}

func TestInitiateRejectsWhenAlreadyEnrolled(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "enrolled@example.com")
	course := seedCourse(t, db, 999)

	if err := db.Create(&model.Enrollment{
		UserID:     user.ID,
		CourseID:   course.ID,
		EnrolledAt: time.Now(),
		Status:     model.EnrollmentStatusActive,
	}).Error; err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}

	_, err := svc.Initiate(context.Background(), user.ID, course.ID, 999)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for duplicate enrollment, got %v", err)
	}
}

func TestInitiateRejectsFullCourse(t *testing.T) {
	db := testDB(t)
	svc := testPaymentService(db)

	user := seedUser(t, db, "late@example.com")
	occupant := seedUser(t, db, "occupant@example.com")

	course := seedCourse(t, db, 999)
	if err := db.Model(&course).Update("max_seats", 1).Error; err != nil {
		t.Fatalf("failed to set capacity: %v", err)
	}
	if err := db.Create(&model.Enrollment{
		UserID:     occupant.ID,
		CourseID:   course.ID,
		EnrolledAt: time.Now(),
		Status:     model.EnrollmentStatusActive,
	}).Error; err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}

	_, err := svc.Initiate(context.Background(), user.ID, course.ID, 999)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for full course, got %v", err)
	}
}
