package services

import (
	"os"
	"testing"

	"github.com/prepnest/prepnest-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB connects to the database named by TEST_DATABASE_DSN and migrates a
// fresh schema. Tests using it are skipped unless RUN_INTEGRATION_TESTS=true.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=prepnest_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Enrollment{},
		&model.Payment{},
		&model.Notification{},
		&model.NotificationRecipient{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM notification_recipients")
		db.Exec("DELETE FROM notifications")
		db.Exec("DELETE FROM payments")
		db.Exec("DELETE FROM enrollments")
		db.Exec("DELETE FROM courses")
		db.Exec("DELETE FROM users")
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) model.User {
	t.Helper()
	user := model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Test Student",
		Role:         model.RoleStudent,
		Status:       model.UserStatusActive,
		Verified:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, price float64) model.Course {
	t.Helper()
	course := model.Course{
		Title:  "UPSC Prelims Crash Course",
		Price:  price,
		Status: model.CourseStatusPublished,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	return course
}
