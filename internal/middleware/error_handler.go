package middleware

import (
	"errors"

	"lion-backend/internal/domain"
	"lion-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var domainStatus = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidCode, fiber.StatusBadRequest},
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized},
	{domain.ErrNotFound, fiber.StatusNotFound},
	{domain.ErrAlreadyMember, fiber.StatusConflict},
	{domain.ErrInvalidTransition, fiber.StatusConflict},
	{domain.ErrBackend, fiber.StatusServiceUnavailable},
}

// statusFor maps an error to its HTTP status and public message. Domain errors
// expose only the sentinel's message, never the wrapped cause.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	for _, d := range domainStatus {
		if errors.Is(err, d.err) {
			return d.code, d.err.Error()
		}
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := statusFor(err)
	details := map[string]interface{}{}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
	}
	return response.Error(c, message, code, details)
}
