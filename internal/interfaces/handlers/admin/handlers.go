package admin

import (
	commsvc "lion-backend/internal/application/commissions"
	ocsvc "lion-backend/internal/application/ordercommission"
	ranksvc "lion-backend/internal/application/ranks"
	"lion-backend/internal/domain"
	"lion-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serve the back-office endpoints. Routes are mounted behind RequireAdmin.
type Handlers struct {
	Commissions     *commsvc.Service
	OrderCommission *ocsvc.Service
	Ranks           *ranksvc.Service
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid UUID format for id")
	}
	return id, nil
}

// UpdateCommissionStatus PATCH /api/v1/admin/commissions/:id/status
func (h *Handlers) UpdateCommissionStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	status, ok := domain.ParseCommissionStatus(body.Status)
	if !ok {
		return response.Error(c, "Invalid commission status", fiber.StatusBadRequest, nil)
	}
	commission, err := h.Commissions.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	return response.Success(c, "Commission status updated", commission, nil)
}

// ProcessOrderCommission POST /api/v1/admin/orders/:id/process-commission
func (h *Handlers) ProcessOrderCommission(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	res := h.OrderCommission.Process(c.UserContext(), id)
	if !res.Success {
		return response.Error(c, "Commission processing failed", fiber.StatusBadGateway, res)
	}
	return response.Success(c, "Commission processed", res, nil)
}

// PromoteRank POST /api/v1/admin/team-members/:id/promote-rank
func (h *Handlers) PromoteRank(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	updated := h.Ranks.Promote(c.UserContext(), id)
	msg := "Rank unchanged"
	if updated {
		msg = "Rank updated"
	}
	return response.Success(c, msg, fiber.Map{"updated": updated}, nil)
}
