package middleware

import (
	"lion-backend/internal/domain"
	"lion-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// RequireAdmin lets through only session users flagged is_admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !ActorFromContext(c).IsAdmin {
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// ActorFromContext converts the session user into a domain.Actor. Requests without
// a valid session user are domain.Anonymous.
func ActorFromContext(c *fiber.Ctx) domain.Actor {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return domain.Anonymous
	}
	raw, _ := m["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return domain.Anonymous
	}
	isAdmin, _ := m["is_admin"].(bool)
	return domain.Actor{UserID: &id, IsAdmin: isAdmin}
}
