package codes

import (
	redeemsvc "lion-backend/internal/application/redemption"
	"lion-backend/internal/domain"
	"lion-backend/internal/middleware"
	"lion-backend/internal/pkg/response"
	"lion-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *redeemsvc.Service
}

type codeRequest struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// parse returns the normalized code and type, or a domain.ErrInvalidCode for
// anything that cannot match a stored code.
func parse(c *fiber.Ctx) (string, domain.CodeType, error) {
	var body codeRequest
	if err := c.BodyParser(&body); err != nil {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}
	if body.Code == "" || body.Type == "" {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}
	codeType, ok := domain.ParseCodeType(body.Type)
	if !ok {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "Invalid code type")
	}
	code := domain.NormalizeCode(body.Code)
	if !validation.IsValidCode(code) {
		return "", "", domain.ErrInvalidCode
	}
	return code, codeType, nil
}

// Check POST /api/v1/codes/check validates a code without consuming it.
func (h *Handlers) Check(c *fiber.Ctx) error {
	code, codeType, err := parse(c)
	if err != nil {
		return err
	}
	res, err := h.Service.Check(c.UserContext(), code, codeType)
	if err != nil {
		return err
	}
	return response.Success(c, "Code is valid", res, nil)
}

// Redeem POST /api/v1/codes/redeem. Anonymous callers may redeem; the signed-in
// user, if any, is recorded as used_by.
func (h *Handlers) Redeem(c *fiber.Ctx) error {
	code, codeType, err := parse(c)
	if err != nil {
		return err
	}
	res, err := h.Service.Redeem(c.UserContext(), middleware.ActorFromContext(c), code, codeType)
	if err != nil {
		return err
	}
	return response.Success(c, "Code redeemed", res, nil)
}
