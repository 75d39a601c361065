package auth

import (
	"time"

	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/services"
	authutil "github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/cache"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/validation"
	"gorm.io/gorm"
)

const (
	otpLength = 6
	otpTTL    = 10 * time.Minute
)

// AuthHandler handles registration, email verification and login
type AuthHandler struct {
	db         *gorm.DB
	jwtManager *authutil.JWTManager
	cache      *cache.RedisCache
	email      *services.EmailService
	bruteForce *middleware.BruteForceProtection
	validator  *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, cache *cache.RedisCache, email *services.EmailService, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:         db,
		jwtManager: jwtManager,
		cache:      cache,
		email:      email,
		bruteForce: bruteForce,
		validator:  validation.NewValidator(),
	}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint             `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Phone     string           `json:"phone,omitempty"`
	Role      model.UserRole   `json:"role"`
	Status    model.UserStatus `json:"status"`
	Verified  bool             `json:"verified"`
	CreatedAt time.Time        `json:"created_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

// TokenResponse carries the issued token pair
type TokenResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func otpCacheKey(email string) string {
	return "otp:" + email
}
