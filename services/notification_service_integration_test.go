package services

import (
	"context"
	"testing"
	"time"

	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services/realtime"
	"github.com/prepnest/prepnest-api/utils/apperr"
	"gorm.io/gorm"
)

func testNotificationService(db *gorm.DB) (*NotificationService, *realtime.Hub) {
	hub := realtime.NewHub()
	return NewNotificationService(db, hub, &EmailService{}, nil), hub
}

func seedNotification(t *testing.T, db *gorm.DB, status model.NotificationStatus, recipients ...uint) model.Notification {
	t.Helper()
	n := model.Notification{
		Title:        "Mock test tomorrow",
		Message:      "The full-length mock starts at 9 AM.",
		Type:         model.NotificationTypeReminder,
		Channel:      model.ChannelInApp,
		Status:       status,
		AudienceKind: model.AudienceAll,
	}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("failed to seed notification: %v", err)
	}
	for _, userID := range recipients {
		if err := db.Create(&model.NotificationRecipient{
			NotificationID: n.ID,
			UserID:         userID,
		}).Error; err != nil {
			t.Fatalf("failed to seed recipient: %v", err)
		}
	}
	return n
}

func TestCreateDeliversInAppImmediately(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	user := seedUser(t, db, "inapp@example.com")

	events, unsubscribe := hub.Subscribe(user.ID)
	defer unsubscribe()

	n, err := svc.Create(context.Background(), CreateNotificationInput{
		Title:    "Welcome",
		Message:  "Your prep starts now.",
		Type:     model.NotificationTypeAnnouncement,
		Channel:  model.ChannelInApp,
		Audience: model.AudienceAll,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n.Status != model.NotificationStatusSent {
		t.Errorf("expected sent, got %s", n.Status)
	}

	select {
	case ev := <-events:
		if ev.Name != "notification" {
			t.Errorf("expected notification event, got %s", ev.Name)
		}
	case <-time.After(time.Second):
		t.Error("expected a push on the subscriber channel")
	}

	count, err := svc.UnreadCount(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 unread, got %d", count)
	}
}

func TestCreateWithFutureScheduleParksPending(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	user := seedUser(t, db, "scheduled@example.com")
	at := time.Now().Add(time.Hour)

	n, err := svc.Create(context.Background(), CreateNotificationInput{
		Title:       "Reminder",
		Message:     "Class tonight.",
		Type:        model.NotificationTypeReminder,
		Channel:     model.ChannelInApp,
		Audience:    model.AudienceStudent,
		UserID:      &user.ID,
		ScheduledAt: &at,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n.Status != model.NotificationStatusPending {
		t.Errorf("expected pending, got %s", n.Status)
	}

	// Pending notifications are invisible to the recipient until promoted
	list, total, err := svc.ListForUser(context.Background(), user.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("expected scheduled notification to be hidden, got %d", total)
	}
}

func TestPromoteDue(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	user := seedUser(t, db, "due@example.com")

	past := time.Now().Add(-time.Minute)
	n := seedNotification(t, db, model.NotificationStatusPending, user.ID)
	if err := db.Model(&n).Update("scheduled_at", past).Error; err != nil {
		t.Fatalf("failed to set schedule: %v", err)
	}

	promoted, err := svc.PromoteDue(context.Background())
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 1 {
		t.Errorf("expected 1 promotion, got %d", promoted)
	}

	var got model.Notification
	db.First(&got, n.ID)
	if got.Status != model.NotificationStatusSent {
		t.Errorf("expected sent, got %s", got.Status)
	}

	// A second tick must not promote again
	promoted, err = svc.PromoteDue(context.Background())
	if err != nil {
		t.Fatalf("second PromoteDue failed: %v", err)
	}
	if promoted != 0 {
		t.Errorf("expected 0 promotions on second tick, got %d", promoted)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	reader := seedUser(t, db, "reader@example.com")
	other := seedUser(t, db, "other@example.com")
	n := seedNotification(t, db, model.NotificationStatusSent, reader.ID, other.ID)

	for i := 0; i < 3; i++ {
		if err := svc.MarkRead(context.Background(), n.ID, reader.ID); err != nil {
			t.Fatalf("MarkRead attempt %d failed: %v", i+1, err)
		}
	}

	var recipient model.NotificationRecipient
	if err := db.Where("notification_id = ? AND user_id = ?", n.ID, reader.ID).
		First(&recipient).Error; err != nil {
		t.Fatalf("failed to load recipient: %v", err)
	}
	if !recipient.IsRead() {
		t.Error("expected recipient to be marked read")
	}

	// One unread copy remains, so the notification must survive
	var count int64
	db.Model(&model.Notification{}).Where("id = ?", n.ID).Count(&count)
	if count != 1 {
		t.Error("expected notification to survive while unread copies remain")
	}
}

func TestMarkReadByLastReaderPurges(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	first := seedUser(t, db, "first@example.com")
	last := seedUser(t, db, "last@example.com")
	n := seedNotification(t, db, model.NotificationStatusSent, first.ID, last.ID)

	if err := svc.MarkRead(context.Background(), n.ID, first.ID); err != nil {
		t.Fatalf("first MarkRead failed: %v", err)
	}
	if err := svc.MarkRead(context.Background(), n.ID, last.ID); err != nil {
		t.Fatalf("last MarkRead failed: %v", err)
	}

	var notifications int64
	db.Unscoped().Model(&model.Notification{}).Where("id = ?", n.ID).Count(&notifications)
	if notifications != 0 {
		t.Error("expected notification to be purged after the last read")
	}

	var recipients int64
	db.Model(&model.NotificationRecipient{}).Where("notification_id = ?", n.ID).Count(&recipients)
	if recipients != 0 {
		t.Errorf("expected recipient rows to be purged, got %d", recipients)
	}
}

func TestMarkReadRejectsNonRecipient(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	recipient := seedUser(t, db, "member@example.com")
	outsider := seedUser(t, db, "outsider@example.com")
	n := seedNotification(t, db, model.NotificationStatusSent, recipient.ID)

	err := svc.MarkRead(context.Background(), n.ID, outsider.ID)
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("expected authorization error for non-recipient, got %v", err)
	}

	if err := svc.MarkRead(context.Background(), n.ID+1000, outsider.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for missing notification, got %v", err)
	}

	// The outsider's attempt must not touch the real recipient's state
	var rec model.NotificationRecipient
	db.Where("notification_id = ? AND user_id = ?", n.ID, recipient.ID).First(&rec)
	if rec.IsRead() {
		t.Error("expected recipient to remain unread")
	}
}

func TestMarkReadRemovesNotificationFromList(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	reader := seedUser(t, db, "listreader@example.com")
	other := seedUser(t, db, "listother@example.com")
	n := seedNotification(t, db, model.NotificationStatusSent, reader.ID, other.ID)

	if err := svc.MarkRead(context.Background(), n.ID, reader.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	// Gone from the reader's list even though the row survives for the purge
	_, total, err := svc.ListForUser(context.Background(), reader.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected read notification to leave the reader's list, got %d", total)
	}

	_, total, err = svc.ListForUser(context.Background(), other.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected the unread recipient to still see it, got %d", total)
	}
}

func TestResendRestartsReadLifecycle(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	veteran := seedUser(t, db, "veteran@example.com")
	straggler := seedUser(t, db, "straggler@example.com")
	n := seedNotification(t, db, model.NotificationStatusSent, veteran.ID, straggler.ID)

	// The straggler stays unread so the read does not trigger the purge
	if err := svc.MarkRead(context.Background(), n.ID, veteran.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	var before model.Notification
	if err := db.First(&before, n.ID).Error; err != nil {
		t.Fatalf("failed to reload notification: %v", err)
	}

	// A student who joined the audience after the first send
	newcomer := seedUser(t, db, "newcomer@example.com")

	resent, err := svc.Resend(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("Resend failed: %v", err)
	}

	var recipients []model.NotificationRecipient
	if err := db.Where("notification_id = ?", n.ID).Find(&recipients).Error; err != nil {
		t.Fatalf("failed to load recipients: %v", err)
	}
	if len(recipients) != 3 {
		t.Fatalf("expected 3 recipients after resend, got %d", len(recipients))
	}
	for _, r := range recipients {
		if r.IsRead() {
			t.Errorf("expected recipient %d to re-enter the lifecycle unread", r.UserID)
		}
	}

	if !resent.CreatedAt.After(before.CreatedAt) {
		t.Error("expected resend to restamp the creation time")
	}

	// Both the prior reader and the newcomer see it again
	for _, userID := range []uint{veteran.ID, newcomer.ID} {
		_, total, err := svc.ListForUser(context.Background(), userID, 1, 10)
		if err != nil {
			t.Fatalf("ListForUser failed: %v", err)
		}
		if total != 1 {
			t.Errorf("expected user %d to see the resent notification, got %d", userID, total)
		}
	}
}

func TestResolveAudienceCourse(t *testing.T) {
	db := testDB(t)
	svc, hub := testNotificationService(db)
	defer hub.Close()

	enrolled := seedUser(t, db, "enrolled-n@example.com")
	seedUser(t, db, "not-enrolled@example.com")
	course := seedCourse(t, db, 0)

	if err := db.Create(&model.Enrollment{
		UserID:     enrolled.ID,
		CourseID:   course.ID,
		EnrolledAt: time.Now(),
		Status:     model.EnrollmentStatusActive,
	}).Error; err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}

	ids, err := svc.resolveAudience(context.Background(), model.AudienceCourse, &course.ID, nil)
	if err != nil {
		t.Fatalf("resolveAudience failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != enrolled.ID {
		t.Errorf("expected only the enrolled student, got %v", ids)
	}
}
