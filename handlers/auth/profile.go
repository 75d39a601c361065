package auth

import (
	"github.com/gofiber/fiber/v2"
	authutil "github.com/prepnest/prepnest-api/utils/auth"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
)

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}
	return response.Success(c, toUserResponse(user))
}

// UpdateProfileRequest carries editable profile fields
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=255"`
	Phone string `json:"phone" validate:"omitempty,min=10,max=20"`
}

// UpdateProfile handles PATCH /api/v1/auth/me
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := h.db.Model(user).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, toUserResponse(user))
}

// ChangePasswordRequest carries a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	hash, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.db.Model(user).Update("password_hash", hash).Error; err != nil {
		return response.InternalServerError(c, "Failed to change password")
	}

	return response.Success(c, fiber.Map{"message": "Password changed successfully"})
}
