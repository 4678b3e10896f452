package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/response"
)

// IdentityMiddleware reads an optional bearer token. Routes identify the
// learner by explicit user_id; a valid token only supplies a default.
type IdentityMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewIdentityMiddleware(jwtManager *auth.JWTManager) *IdentityMiddleware {
	return &IdentityMiddleware{jwtManager: jwtManager}
}

// Optional stores the token's user id in locals when a token is present.
// A malformed or expired token is rejected rather than ignored.
func (m *IdentityMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || m.jwtManager == nil {
			return c.Next()
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// GetUserID returns the authenticated user id, if a token was presented.
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok && id != 0
}
