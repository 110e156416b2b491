package middleware

import (
	"strings"

	"lion-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type CORSConfig struct {
	// AllowedSuffix matches storefront and dashboard origins, e.g. ".lion-tasedda.com".
	AllowedSuffix string
	DevPassword   string
}

// CORS admits origins ending with AllowedSuffix, local dev servers on preflight, and
// requests carrying the dev-password header. Credentials are allowed so the session
// cookie travels with the team dashboard's calls.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		// same-origin requests and tools
		if origin == "" {
			return c.Next()
		}
		preflight := c.Method() == fiber.MethodOptions

		allowed := cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix))
		if !allowed && preflight {
			allowed = isLocalOrigin(origin)
		}
		if !allowed && cfg.DevPassword != "" {
			allowed = c.Get("dev-password") == cfg.DevPassword
		}
		if !allowed {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}

		setCORSHeaders(c, origin)
		if preflight {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type, dev-password, "+traceIDHeader)
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PATCH, DELETE, OPTIONS")
	c.Set(fiber.HeaderAccessControlExposeHeaders, traceIDHeader)
	c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
}
