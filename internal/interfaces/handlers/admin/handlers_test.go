package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	commsvc "lion-backend/internal/application/commissions"
	ocsvc "lion-backend/internal/application/ordercommission"
	ranksvc "lion-backend/internal/application/ranks"
	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/database"
	"lion-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubProcedures struct {
	data datatypes.JSON
	err  error
}

func (s stubProcedures) ProcessTeamCommission(ctx context.Context, orderID uuid.UUID) (datatypes.JSON, error) {
	return s.data, s.err
}

func setupAdminTest(t *testing.T, procs ocsvc.ProcedureCaller, isAdmin bool) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	h := &Handlers{
		Commissions:     &commsvc.Service{DB: db},
		OrderCommission: &ocsvc.Service{DB: db, Procedures: procs},
		Ranks:           &ranksvc.Service{DB: db},
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": uuid.NewString(), "is_admin": isAdmin})
		return c.Next()
	})
	g := app.Group("/admin", middleware.RequireAdmin())
	g.Patch("/commissions/:id/status", h.UpdateCommissionStatus)
	g.Post("/orders/:id/process-commission", h.ProcessOrderCommission)
	g.Post("/team-members/:id/promote-rank", h.PromoteRank)
	return app, db
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestAdmin_ForbiddenForMembers(t *testing.T) {
	app, _ := setupAdminTest(t, stubProcedures{}, false)

	code, _ := do(t, app, "POST", "/admin/team-members/"+uuid.NewString()+"/promote-rank", nil)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestUpdateCommissionStatus(t *testing.T) {
	app, db := setupAdminTest(t, stubProcedures{}, true)
	c := &domain.Commission{
		TeamMemberID: uuid.New(), OrderID: uuid.New(),
		Amount: decimal.NewFromInt(20), Percentage: decimal.NewFromInt(10),
		Status: domain.CommissionPending, Type: domain.CommissionTypeSale,
	}
	require.NoError(t, db.Create(c).Error)
	path := "/admin/commissions/" + c.ID.String() + "/status"

	code, _ := do(t, app, "PATCH", path, map[string]string{"status": "PAID"})
	assert.Equal(t, fiber.StatusConflict, code)

	code, out := do(t, app, "PATCH", path, map[string]string{"status": "APPROVED"})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "APPROVED", out["data"].(map[string]interface{})["status"])

	code, _ = do(t, app, "PATCH", path, map[string]string{"status": "approved"})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "PATCH", "/admin/commissions/"+uuid.NewString()+"/status", map[string]string{"status": "APPROVED"})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, "PATCH", "/admin/commissions/not-a-uuid/status", map[string]string{"status": "APPROVED"})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestProcessOrderCommission(t *testing.T) {
	app, _ := setupAdminTest(t, stubProcedures{data: datatypes.JSON(`{"commissions":2}`)}, true)

	code, out := do(t, app, "POST", "/admin/orders/"+uuid.NewString()+"/process-commission", nil)
	assert.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(2), data["data"].(map[string]interface{})["commissions"])
}

func TestProcessOrderCommission_Failure(t *testing.T) {
	app, _ := setupAdminTest(t, stubProcedures{err: errors.New("order not found")}, true)

	code, out := do(t, app, "POST", "/admin/orders/"+uuid.NewString()+"/process-commission", nil)
	assert.Equal(t, fiber.StatusBadGateway, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, false, details["success"])
	assert.Equal(t, "order not found", details["error"])
}

func TestPromoteRank(t *testing.T) {
	app, db := setupAdminTest(t, stubProcedures{}, true)
	m := &domain.TeamMember{UserID: uuid.New(), PromoCode: "LIONCCC333", IsActive: true, TotalSales: decimal.NewFromInt(55)}
	require.NoError(t, db.Create(m).Error)
	path := "/admin/team-members/" + m.ID.String() + "/promote-rank"

	code, out := do(t, app, "POST", path, nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Rank updated", out["message"])
	assert.Equal(t, true, out["data"].(map[string]interface{})["updated"])

	code, out = do(t, app, "POST", path, nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, out["data"].(map[string]interface{})["updated"])

	var stored domain.TeamMember
	require.NoError(t, db.First(&stored, "id = ?", m.ID).Error)
	assert.Equal(t, domain.RankGoldAmbassador, stored.Rank)
}
