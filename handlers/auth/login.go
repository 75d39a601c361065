package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	authutil "github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/response"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	if !user.IsActive() {
		return response.Forbidden(c, "Account is suspended")
	}
	if !user.Verified {
		return response.Forbidden(c, "Email not verified. Check your inbox for the code.")
	}

	h.bruteForce.Reset(c)

	return h.issueTokens(c, &user)
}

func (h *AuthHandler) issueTokens(c *fiber.Ctx, user *model.User) error {
	accessToken, err := h.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, TokenResponse{
		User:         toUserResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(authutil.AccessTokenTTL.Seconds()),
	})
}
