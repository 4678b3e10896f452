package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/normalizer"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/middleware"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

// RespondError writes the envelope for a service error. fallback is the
// message used for unclassified failures.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, verr.Message, "VALIDATION_ERROR", verr.Field)
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NotFound(c, capitalize(err.Error()))
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "You do not have access to this resource")
	case errors.Is(err, services.ErrNoMaterials):
		return response.Error(c, fiber.StatusBadRequest, "No lecture material found for the selected weeks", "NO_MATERIALS")
	case errors.Is(err, services.ErrNoText):
		return response.Error(c, fiber.StatusBadRequest, "No usable text could be extracted", "NO_TEXT")
	case errors.Is(err, services.ErrExamDateMissing):
		return response.Error(c, fiber.StatusBadRequest, "Set an exam date first", "EXAM_DATE_MISSING")
	case errors.Is(err, services.ErrExamDatePassed):
		return response.Error(c, fiber.StatusBadRequest, "The exam date has already passed", "EXAM_DATE_PASSED")
	case errors.Is(err, services.ErrNoAnalysis):
		return response.Error(c, fiber.StatusNotFound, "The syllabus has not been analyzed", "NO_ANALYSIS")
	case errors.Is(err, services.ErrWeekNotFound):
		return response.Error(c, fiber.StatusNotFound, "Week not found in the analysis", "WEEK_NOT_FOUND")
	case errors.Is(err, services.ErrDuplicateLogin):
		return response.Error(c, fiber.StatusBadRequest, "Login ID is already taken", "DUPLICATE_LOGIN_ID")
	case errors.Is(err, services.ErrDuplicateEmail):
		return response.Error(c, fiber.StatusBadRequest, "Email is already in use", "DUPLICATE_EMAIL")
	case errors.Is(err, services.ErrBadCredentials):
		return response.Unauthorized(c, "Password does not match")
	}

	var shortfall *normalizer.ShortfallError
	if errors.As(err, &shortfall) {
		return response.ProviderFailure(c, "INSUFFICIENT_QUESTIONS", "The AI returned too few questions", err.Error())
	}
	var parseErr *normalizer.ParseError
	if errors.As(err, &parseErr) {
		return response.ProviderFailure(c, "INVALID_AI_RESPONSE", "The AI response could not be parsed", err.Error())
	}

	var providerErr *llm.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Kind {
		case llm.KindQuota:
			return response.QuotaExceeded(c, "")
		case llm.KindAuth:
			return response.ProviderFailure(c, "API_AUTH_ERROR", "The AI provider rejected the credentials", err.Error())
		default:
			return response.ProviderFailure(c, "API_ERROR", "The AI provider call failed", err.Error())
		}
	}

	return response.InternalServerError(c, fallback)
}

// ResolveUserID prefers the explicit id and falls back to the bearer token.
func ResolveUserID(c *fiber.Ctx, explicit uint) (uint, bool) {
	if explicit != 0 {
		return explicit, true
	}
	return middleware.GetUserID(c)
}

// QueryUserID reads ?user_id= with the token fallback.
func QueryUserID(c *fiber.Ctx) (uint, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		return middleware.GetUserID(c)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ParamID parses a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-32) + s[1:]
	}
	return s
}
