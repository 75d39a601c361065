package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/model"
	authutil "github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/response"
)

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh handles POST /api/v1/auth/refresh.
// Exchanges a valid refresh token for a fresh access token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	claims, err := h.jwtManager.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		if err == authutil.ErrExpiredToken {
			return response.Unauthorized(c, "Refresh token has expired")
		}
		return response.Unauthorized(c, "Invalid refresh token")
	}

	// Re-check the account so a suspended user cannot refresh back in
	var user model.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if !user.IsActive() {
		return response.Forbidden(c, "Account is suspended")
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, fiber.Map{
		"access_token": accessToken,
		"expires_in":   int(authutil.AccessTokenTTL.Seconds()),
	})
}
