package router

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/config"
	"github.com/prepnest/prepnest-api/database"
	"github.com/prepnest/prepnest-api/handlers"
	auth_handlers "github.com/prepnest/prepnest-api/handlers/auth"
	content_handlers "github.com/prepnest/prepnest-api/handlers/content"
	course_handlers "github.com/prepnest/prepnest-api/handlers/course"
	enrollment_handlers "github.com/prepnest/prepnest-api/handlers/enrollment"
	notification_handlers "github.com/prepnest/prepnest-api/handlers/notification"
	payment_handlers "github.com/prepnest/prepnest-api/handlers/payment"
	support_handlers "github.com/prepnest/prepnest-api/handlers/support"
	test_handlers "github.com/prepnest/prepnest-api/handlers/test"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/services/media"
	"github.com/prepnest/prepnest-api/services/realtime"
	"github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/cache"
	"github.com/prepnest/prepnest-api/utils/middleware"
)

// Deps carries everything the routes need, wired once at startup
type Deps struct {
	Env           *config.Env
	Store         *database.GORMStore
	Cache         *cache.RedisCache
	Hub           *realtime.Hub
	Spaces        *media.SpacesClient
	Email         *services.EmailService
	Payments      *services.PaymentService
	Notifications *services.NotificationService
	Enrollments   *services.EnrollmentService
}

// SetupRoutes registers every API route
func SetupRoutes(app *fiber.App, d Deps) {
	db := d.Store.DB()

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        d.Env.JWT_SECRET,
		Expiry:        auth.AccessTokenTTL,
		RefreshExpiry: auth.RefreshTokenTTL,
		Issuer:        d.Env.JWT_ISSUER,
	})

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	bruteForce := middleware.NewBruteForceProtection(d.Cache)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
	})

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, d.Cache, d.Email, bruteForce)
	courseHandler := course_handlers.NewCourseHandler(db, d.Spaces)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(d.Enrollments)
	paymentHandler := payment_handlers.NewPaymentHandler(d.Payments)
	notificationHandler := notification_handlers.NewNotificationHandler(d.Notifications)
	streamHandler := notification_handlers.NewStreamHandler(d.Hub)
	testHandler := test_handlers.NewTestHandler(db, d.Enrollments)
	contentHandler := content_handlers.NewContentHandler(db, d.Enrollments, d.Spaces)
	supportHandler := support_handlers.NewSupportHandler(db, d.Enrollments)

	app.Get("/health", handlers.HandleCheckHealth(d.Store, d.Hub))

	v1 := app.Group("/api/v1")

	// Auth
	authGroup := v1.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/verify", authHandler.VerifyEmail)
	authGroup.Post("/resend-otp", authHandler.ResendOTP)
	authGroup.Post("/login", bruteForce.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)
	authGroup.Patch("/me", authMiddleware.Required(), authHandler.UpdateProfile)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Course catalog
	courses := v1.Group("/courses")
	courses.Get("/", courseHandler.List)
	courses.Get("/:id", courseHandler.Get)
	courses.Get("/:id/feedback", supportHandler.CourseFeedback)
	courses.Post("/:id/enroll", authMiddleware.Required(), enrollmentHandler.EnrollFree)
	courses.Get("/:id/tests", authMiddleware.Required(), testHandler.ListForCourse)
	courses.Get("/:id/videos", authMiddleware.Required(), contentHandler.ListVideos)
	courses.Get("/:id/notes", authMiddleware.Required(), contentHandler.ListNotes)
	courses.Get("/:id/live-sessions", authMiddleware.Required(), contentHandler.ListLiveSessions)

	// Enrollments
	v1.Get("/enrollments", authMiddleware.Required(), enrollmentHandler.MyCourses)

	// Payments; the webhook is public, authenticated by its HMAC signature
	payments := v1.Group("/payments")
	payments.Post("/webhook", paymentHandler.Webhook)
	payments.Post("/initiate", authMiddleware.Required(), paymentHandler.Initiate)
	payments.Post("/:order_id/verify", authMiddleware.Required(), paymentHandler.Verify)
	payments.Get("/", authMiddleware.Required(), paymentHandler.List)
	payments.Get("/:id/invoice", authMiddleware.Required(), paymentHandler.Invoice)

	// Notifications
	notifications := v1.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Get("/stream", streamHandler.Stream)
	notifications.Post("/:id/read", notificationHandler.MarkRead)

	// Tests
	tests := v1.Group("/tests", authMiddleware.Required())
	tests.Get("/results", testHandler.MyResults)
	tests.Get("/:id", testHandler.Get)
	tests.Post("/:id/submit", testHandler.Submit)

	// Support and feedback
	support := v1.Group("/support", authMiddleware.Required())
	support.Post("/tickets", supportHandler.CreateTicket)
	support.Get("/tickets", supportHandler.MyTickets)
	v1.Post("/feedback", authMiddleware.Required(), supportHandler.SubmitFeedback)

	// Admin surface
	admin := v1.Group("/admin", authMiddleware.RequireAdmin())

	admin.Get("/courses", courseHandler.ListAll)
	admin.Post("/courses", courseHandler.Create)
	admin.Patch("/courses/:id", courseHandler.Update)
	admin.Delete("/courses/:id", courseHandler.Delete)
	admin.Post("/courses/:id/thumbnail", courseHandler.UploadThumbnail)
	admin.Get("/courses/:id/enrollments", enrollmentHandler.ListForCourse)

	admin.Post("/enrollments/:id/expire", enrollmentHandler.Expire)
	admin.Delete("/enrollments/:id", enrollmentHandler.Delete)

	admin.Get("/notifications", notificationHandler.ListAll)
	admin.Post("/notifications", notificationHandler.Create)
	admin.Post("/notifications/:id/resend", notificationHandler.Resend)
	admin.Delete("/notifications/:id", notificationHandler.Delete)

	admin.Post("/tests", testHandler.Create)
	admin.Delete("/tests/:id", testHandler.Delete)
	admin.Post("/tests/:id/questions", testHandler.AddQuestion)
	admin.Delete("/questions/:id", testHandler.DeleteQuestion)

	admin.Post("/videos", contentHandler.AddVideo)
	admin.Delete("/videos/:id", contentHandler.DeleteVideo)
	admin.Post("/notes", contentHandler.UploadNote)
	admin.Delete("/notes/:id", contentHandler.DeleteNote)
	admin.Post("/live-sessions", contentHandler.ScheduleLiveSession)
	admin.Delete("/live-sessions/:id", contentHandler.DeleteLiveSession)

	admin.Get("/support/tickets", supportHandler.ListTickets)
	admin.Post("/support/tickets/:id/reply", supportHandler.ReplyTicket)
}
