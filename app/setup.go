package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prepnest/prepnest-api/api"
	"github.com/prepnest/prepnest-api/config"
	"github.com/prepnest/prepnest-api/database"
	"github.com/prepnest/prepnest-api/router"
	"github.com/prepnest/prepnest-api/services"
	"github.com/prepnest/prepnest-api/services/cashfree"
	"github.com/prepnest/prepnest-api/services/cron"
	"github.com/prepnest/prepnest-api/services/media"
	"github.com/prepnest/prepnest-api/services/realtime"
	"github.com/prepnest/prepnest-api/utils/cache"
)

// SetupAndRunServer wires every component and runs until a shutdown signal
func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	// Database
	store, err := database.StartGORM(env)
	if err != nil {
		log.Println("Check whether Postgres is running")
		return err
	}
	if err := store.Init(); err != nil {
		return err
	}

	// Redis: OTP codes and login throttling
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// Media storage is optional; uploads fail gracefully without it
	var spaces *media.SpacesClient
	if env.SPACES_ACCESS_KEY != "" && env.SPACES_SECRET_KEY != "" {
		spaces, err = media.NewSpacesClient(media.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
			CDNURL:    env.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: media storage unavailable: %v", err)
		}
	}

	// Services
	hub := realtime.NewHub()
	emailService := services.NewEmailService(env)
	gateway := cashfree.NewClient(cashfree.Config{
		AppID:     env.CASHFREE_APP_ID,
		SecretKey: env.CASHFREE_SECRET_KEY,
		BaseURL:   env.CASHFREE_BASE_URL,
	})
	paymentService := services.NewPaymentService(store.DB(), gateway,
		env.CASHFREE_RETURN_URL, env.CASHFREE_NOTIFY_URL)
	notificationService := services.NewNotificationService(store.DB(), hub, emailService, spaces)
	enrollmentService := services.NewEnrollmentService(store.DB())

	// Cron jobs (scheduled notification promotion, cleanup)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(store.DB(), notificationService)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: failed to start cron jobs: %v", err)
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		hub.Close()
		redisCache.Close()
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT))

	router.SetupRoutes(server.GetEngine(), router.Deps{
		Env:           env,
		Store:         store,
		Cache:         redisCache,
		Hub:           hub,
		Spaces:        spaces,
		Email:         emailService,
		Payments:      paymentService,
		Notifications: notificationService,
		Enrollments:   enrollmentService,
	})

	// Graceful shutdown on SIGINT/SIGTERM
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("Shutdown signal received")
		if err := server.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	return server.Run()
}
