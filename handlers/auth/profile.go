package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	UserID   uint    `json:"user_id"`
	Username *string `json:"username" validate:"omitempty,notblank,max=80"`
	Email    *string `json:"email" validate:"omitempty,max=120"`
	School   *string `json:"school" validate:"omitempty,notblank,max=100"`
	Major    *string `json:"major" validate:"omitempty,notblank,max=100"`
	Grade    *int    `json:"grade" validate:"omitempty,min=1,max=4"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	UserID          uint   `json:"user_id"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

// PreferencesRequest represents display and notification settings
type PreferencesRequest struct {
	UserID             uint    `json:"user_id"`
	Theme              *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
}

// DeleteAccountRequest names the account to delete
type DeleteAccountRequest struct {
	UserID uint `json:"user_id"`
}

// GetUser handles GET /api/user
func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	userID, ok := handlers.QueryUserID(c)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	user, err := h.accounts.GetUser(c.UserContext(), userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch user")
	}
	return response.Success(c, fiber.Map{"user": user})
}

// UpdateProfile handles PUT /api/user/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !validation.ValidateEmail(email) {
			return response.ErrorWithDetails(c, fiber.StatusBadRequest, "email is not a valid address", "VALIDATION_ERROR", "email")
		}
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), userID, services.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		School:   req.School,
		Major:    req.Major,
		Grade:    req.Grade,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update profile")
	}
	return response.SuccessWithMessage(c, "Profile updated", fiber.Map{"user": user})
}

// ChangePassword handles PUT /api/user/password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.accounts.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return handlers.RespondError(c, err, "Failed to change password")
	}
	return response.SuccessWithMessage(c, "Password changed", nil)
}

// UpdatePreferences handles PUT /api/user/preferences
func (h *AuthHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.accounts.UpdatePreferences(c.UserContext(), userID, services.PreferencesUpdate{
		Theme:              req.Theme,
		EmailNotifications: req.EmailNotifications,
		PushNotifications:  req.PushNotifications,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update preferences")
	}
	return response.Success(c, fiber.Map{
		"theme":               user.Theme,
		"email_notifications": user.EmailNotifications,
		"push_notifications":  user.PushNotifications,
	})
}

// DeleteAccount handles DELETE /api/user/account
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var req DeleteAccountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	userID, ok := handlers.ResolveUserID(c, req.UserID)
	if !ok {
		return response.BadRequest(c, "user_id is required")
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), userID); err != nil {
		return handlers.RespondError(c, err, "Failed to delete account")
	}
	return response.SuccessWithMessage(c, "Account deleted", nil)
}
