package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	store *database.GORMStore
}

func NewHealthHandler(store *database.GORMStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if h.store != nil {
		if err := h.store.HealthCheck(); err != nil {
			return response.ServiceUnavailable(c, "Database is unreachable")
		}
	}
	return response.Success(c, fiber.Map{
		"status":  "ok",
		"message": "Adaptive tutor API is running",
	})
}
