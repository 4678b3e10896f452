package concept

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/handlers"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
)

// ConceptHandler serves per-week concept notes
type ConceptHandler struct {
	validator      *validation.Validator
	conceptService *services.ConceptService
}

// NewConceptHandler creates a new concept handler
func NewConceptHandler(conceptService *services.ConceptService) *ConceptHandler {
	return &ConceptHandler{
		validator:      validation.NewValidator(),
		conceptService: conceptService,
	}
}

// GenerateRequest selects the week and note style
type GenerateRequest struct {
	WeekID          uint   `json:"week_id" validate:"required"`
	Mode            string `json:"mode" validate:"omitempty,oneof=summary deep_dive"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

// Generate handles POST /api/concept/generate
func (h *ConceptHandler) Generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.conceptService.Generate(c.UserContext(), req.WeekID, req.Mode, req.ForceRegenerate)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to generate concept notes")
	}

	mode := req.Mode
	if mode == "" {
		mode = model.ConceptModeSummary
	}
	return response.Success(c, fiber.Map{
		"content": result.Content,
		"cached":  result.Cached,
		"mode":    mode,
		"week_id": req.WeekID,
	})
}
