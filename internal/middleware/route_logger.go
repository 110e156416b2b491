package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RouteLogger writes one line per request once it finishes. The status of a
// returned error is resolved the same way ErrorHandler will render it.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status, _ = statusFor(err)
		}

		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Warn()
		case status >= fiber.StatusBadRequest:
			ev = log.Info()
		default:
			ev = log.Debug()
		}
		ev = ev.Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start))
		if actor := ActorFromContext(c); actor.Authenticated() {
			ev = ev.Str("user_id", actor.UserID.String())
		}
		ev.Msg("request")
		return err
	}
}
