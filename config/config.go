package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env unless GO_ENV says otherwise
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil {
			return err
		}
	}

	return nil
}

// Env holds every environment variable the API reads
type Env struct {
	GO_ENV       string
	PORT         int
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Cashfree payment gateway
	CASHFREE_APP_ID     string
	CASHFREE_SECRET_KEY string
	CASHFREE_BASE_URL   string
	CASHFREE_RETURN_URL string
	CASHFREE_NOTIFY_URL string
	// SMTP relay
	SMTP_HOST     string
	SMTP_PORT     int
	SMTP_USERNAME string
	SMTP_PASSWORD string
	SMTP_FROM     string
	// DigitalOcean Spaces (media storage)
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Get reads the environment into an Env struct
func Get() (*Env, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}

	env := &Env{
		GO_ENV:       os.Getenv("GO_ENV"),
		PORT:         port,
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getEnvOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getEnvOrDefault("JWT_ISSUER", "prepnest-api"),
		// Redis
		REDIS_URL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		// Cashfree
		CASHFREE_APP_ID:     os.Getenv("CASHFREE_APP_ID"),
		CASHFREE_SECRET_KEY: os.Getenv("CASHFREE_SECRET_KEY"),
		CASHFREE_BASE_URL:   getEnvOrDefault("CASHFREE_BASE_URL", "https://sandbox.cashfree.com/pg"),
		CASHFREE_RETURN_URL: os.Getenv("CASHFREE_RETURN_URL"),
		CASHFREE_NOTIFY_URL: os.Getenv("CASHFREE_NOTIFY_URL"),
		// SMTP
		SMTP_HOST:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:     smtpPort,
		SMTP_USERNAME: os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     getEnvOrDefault("SMTP_FROM", "noreply@prepnest.app"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     getEnvOrDefault("SPACES_REGION", "blr1"),
		SPACES_ENDPOINT:   getEnvOrDefault("SPACES_ENDPOINT", "blr1.digitaloceanspaces.com"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),
	}

	return env, nil
}
