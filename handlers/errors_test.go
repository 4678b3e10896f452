package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Field: "grade", Message: "grade must be between 1 and 4"}, 400, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("subject %w", services.ErrNotFound), 404, "NOT_FOUND"},
		{"forbidden", services.ErrForbidden, 403, "FORBIDDEN"},
		{"no materials", services.ErrNoMaterials, 400, "NO_MATERIALS"},
		{"exam passed", services.ErrExamDatePassed, 400, "EXAM_DATE_PASSED"},
		{"no analysis", services.ErrNoAnalysis, 404, "NO_ANALYSIS"},
		{"bad password", services.ErrBadCredentials, 401, "UNAUTHORIZED"},
		{"quota", &llm.ProviderError{Kind: llm.KindQuota, Err: errors.New("429")}, 429, "QUOTA_EXCEEDED"},
		{"auth", &llm.ProviderError{Kind: llm.KindAuth, Err: llm.ErrNotConfigured}, 500, "API_AUTH_ERROR"},
		{"other provider", &llm.ProviderError{Kind: llm.KindOther, Err: errors.New("boom")}, 500, "API_ERROR"},
		{"parse", &normalizer.ParseError{Schema: normalizer.SchemaQuestionSet, Err: normalizer.ErrMalformedJSON}, 500, "INVALID_AI_RESPONSE"},
		{"shortfall", &normalizer.ShortfallError{Got: 2, Want: 5}, 500, "INSUFFICIENT_QUESTIONS"},
		{"unknown", errors.New("disk on fire"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return RespondError(c, tt.err, "Something failed")
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestQueryUserID(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		id, ok := QueryUserID(c)
		return c.JSON(fiber.Map{"id": id, "ok": ok})
	})

	cases := map[string]struct {
		id uint
		ok bool
	}{
		"/?user_id=7":   {7, true},
		"/?user_id=abc": {0, false},
		"/?user_id=0":   {0, false},
		"/":             {0, false},
	}
	for target, want := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		var got struct {
			ID uint `json:"id"`
			OK bool `json:"ok"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, want.id, got.ID, target)
		assert.Equal(t, want.ok, got.OK, target)
	}
}
