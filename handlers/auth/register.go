package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	authutil "github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/middleware"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// AuthHandler serves account endpoints
type AuthHandler struct {
	accounts             *services.AccountService
	jwtManager           *authutil.JWTManager
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *services.AccountService, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		accounts:             accounts,
		jwtManager:           jwtManager,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	LoginID  string `json:"login_id" validate:"required,notblank,max=80"`
	Password string `json:"password" validate:"required,password"`
	Username string `json:"username" validate:"required,notblank,max=80"`
	School   string `json:"school" validate:"required,notblank,max=100"`
	Major    string `json:"major" validate:"required,notblank,max=100"`
	Grade    int    `json:"grade" validate:"required,min=1,max=4"`
}

// Register handles POST /register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.accounts.Register(c.UserContext(), services.RegisterInput{
		LoginID:  req.LoginID,
		Password: req.Password,
		Username: req.Username,
		School:   req.School,
		Major:    req.Major,
		Grade:    req.Grade,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to register user")
	}

	return response.Created(c, fiber.Map{"user": user})
}

// SaveProfileRequest holds the onboarding answers
type SaveProfileRequest struct {
	UserID             uint   `json:"user_id"`
	ExamStyle          string `json:"exam_style" validate:"required,oneof=미리미리 벼락치기"`
	LearningDepth      string `json:"learning_depth" validate:"required,oneof=원리파악 직관이해"`
	MaterialPreference string `json:"material_preference" validate:"required,oneof=텍스트 영상"`
	PracticeStyle      string `json:"practice_style" validate:"required,oneof=이론중심 문제중심"`
	AIPersona          string `json:"ai_persona" validate:"required,oneof=격려형 엄격형"`
}

// SaveProfile handles POST /save-profile
func (h *AuthHandler) SaveProfile(c *fiber.Ctx) error {
	var req SaveProfileRequest
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

	user, err := h.accounts.SaveOnboarding(c.UserContext(), userID, services.OnboardingInput{
		ExamStyle:          req.ExamStyle,
		LearningDepth:      req.LearningDepth,
		MaterialPreference: req.MaterialPreference,
		PracticeStyle:      req.PracticeStyle,
		AIPersona:          req.AIPersona,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to save profile")
	}

	return response.SuccessWithMessage(c, "Profile saved", fiber.Map{"user": user})
}
