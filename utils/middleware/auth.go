package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	"github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, response.Unauthorized(c, "Missing authorization token")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, response.Unauthorized(c, "Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, nil, response.Unauthorized(c, "Token has expired")
		}
		return nil, nil, response.Unauthorized(c, "Invalid token")
	}

	if claims.TokenType != "access" {
		return nil, nil, response.Unauthorized(c, "Invalid token type")
	}

	var user model.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, response.Unauthorized(c, "User not found")
		}
		return nil, nil, response.InternalServerError(c, "Failed to load user")
	}

	if !user.IsActive() {
		return nil, nil, response.Forbidden(c, "Account is suspended")
	}

	return claims, &user, nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, errResp := m.authenticate(c)
		if errResp != nil {
			return errResp
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.Locals("user", user)

		return c.Next()
	}
}

// RequireAdmin is middleware that requires a valid token with the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, errResp := m.authenticate(c)
		if errResp != nil {
			return errResp
		}

		if claims.Role != model.RoleAdmin {
			return response.Forbidden(c, "Admin access required")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.Locals("user", user)

		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (model.UserRole, bool) {
	role := c.Locals("user_role")
	if role == nil {
		return "", false
	}
	r, ok := role.(model.UserRole)
	return r, ok
}
