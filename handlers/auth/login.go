package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

// LoginRequest represents a login request
type LoginRequest struct {
	LoginID  string `json:"login_id" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresIn   int         `json:"expires_in,omitempty"` // in seconds
}

// Login handles POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.accounts.Authenticate(c.UserContext(), req.LoginID, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrBadCredentials) {
			_ = h.bruteForceProtection.RecordFailedAttempt(c)
		}
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "No account with this login ID")
		}
		return handlers.RespondError(c, err, "Failed to log in")
	}

	_ = h.bruteForceProtection.RecordSuccessfulAttempt(c)

	res := LoginResponse{User: user}
	if h.jwtManager != nil {
		token, _, err := h.jwtManager.GenerateAccessToken(user.ID, user.LoginID)
		if err != nil {
			return response.InternalServerError(c, "Failed to generate access token")
		}
		res.AccessToken = token
		res.ExpiresIn = int(h.jwtManager.Expiry().Seconds())
	}

	return response.SuccessWithMessage(c, "Login successful", res)
}
