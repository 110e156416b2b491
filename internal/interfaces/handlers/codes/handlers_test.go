package codes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	redeemsvc "lion-backend/internal/application/redemption"
	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/database"
	"lion-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCodesTest(t *testing.T, user map[string]interface{}) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	h := &Handlers{Service: &redeemsvc.Service{DB: db}}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	app.Post("/codes/check", h.Check)
	app.Post("/codes/redeem", h.Redeem)
	return app, db
}

func post(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestRedeem_AnonymousSellerCode(t *testing.T) {
	app, db := setupCodesTest(t, nil)
	require.NoError(t, db.Create(&domain.InvitationCode{Code: "SELL42", Type: domain.CodeTypeSeller}).Error)

	code, out := post(t, app, "/codes/redeem", map[string]string{"code": "sell42", "type": "seller"})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "success", out["status"])
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "SELL42", data["code"])
	assert.Equal(t, redeemsvc.SourceInvitationCode, data["source"])

	code, out = post(t, app, "/codes/redeem", map[string]string{"code": "SELL42", "type": "SELLER"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Invalid code", out["error"].(map[string]interface{})["message"])
}

func TestRedeem_RecordsSignedInUser(t *testing.T) {
	userID := uuid.New()
	app, db := setupCodesTest(t, map[string]interface{}{"user_id": userID.String()})
	require.NoError(t, db.Create(&domain.InvitationCode{Code: "TEAM2025", Type: domain.CodeTypeTeam}).Error)

	code, _ := post(t, app, "/codes/redeem", map[string]string{"code": "TEAM2025", "type": "TEAM"})
	require.Equal(t, fiber.StatusOK, code)

	var inv domain.InvitationCode
	require.NoError(t, db.First(&inv, "code = ?", "TEAM2025").Error)
	require.NotNil(t, inv.UsedBy)
	assert.Equal(t, userID, *inv.UsedBy)
}

func TestRedeem_LongCodeWithPunctuation(t *testing.T) {
	app, db := setupCodesTest(t, nil)
	long := "PARTNER.EVENT-2025." + strings.Repeat("A", 40)
	require.NoError(t, db.Create(&domain.InvitationCode{Code: long, Type: domain.CodeTypeSeller}).Error)

	code, out := post(t, app, "/codes/redeem", map[string]string{"code": strings.ToLower(long), "type": "SELLER"})
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, long, out["data"].(map[string]interface{})["code"])
}

func TestRedeem_BadRequests(t *testing.T) {
	app, _ := setupCodesTest(t, nil)

	code, _ := post(t, app, "/codes/redeem", map[string]string{"code": "TEAM2025"})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out := post(t, app, "/codes/redeem", map[string]string{"code": "TEAM2025", "type": "VIP"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Invalid code type", out["error"].(map[string]interface{})["message"])

	code, out = post(t, app, "/codes/redeem", map[string]string{"code": "no spaces!", "type": "TEAM"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Invalid code", out["error"].(map[string]interface{})["message"])
}

func TestRedeem_BackendDown(t *testing.T) {
	app, db := setupCodesTest(t, nil)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, out := post(t, app, "/codes/redeem", map[string]string{"code": "TEAM2025", "type": "TEAM"})
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "Backend unavailable", out["error"].(map[string]interface{})["message"])
}

func TestCheck_DoesNotConsume(t *testing.T) {
	app, db := setupCodesTest(t, nil)
	require.NoError(t, db.Create(&domain.InvitationCode{Code: "TEAM2025", Type: domain.CodeTypeTeam}).Error)

	for i := 0; i < 2; i++ {
		code, out := post(t, app, "/codes/check", map[string]string{"code": "team2025", "type": "team"})
		assert.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "Code is valid", out["message"])
	}

	code, _ := post(t, app, "/codes/check", map[string]string{"code": "OTHER", "type": "TEAM"})
	assert.Equal(t, fiber.StatusBadRequest, code)
}
