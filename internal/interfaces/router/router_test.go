package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "lion-backend/internal/application/auth"
	"lion-backend/internal/config"
	"lion-backend/internal/domain"
	"lion-backend/internal/infrastructure/database"
	"lion-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRouterTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	cfg := &config.Config{Env: "test", HealthAdminKey: "k"}
	app, err := NewApp(cfg, db, rdb, middleware.SessionWithClient(rdb))
	require.NoError(t, err)
	return app, db
}

func seedUser(t *testing.T, db *gorm.DB, email string, admin bool) {
	hash, err := authsvc.HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{Fullname: "Test", Email: email, PasswordHash: hash, IsAdmin: admin}).Error)
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "password123"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func call(t *testing.T, app *fiber.App, method, path, cookie string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRouter_MemberFlow(t *testing.T) {
	app, db := setupRouterTest(t)
	seedUser(t, db, "member@lion.test", false)
	require.NoError(t, db.Create(&domain.InvitationCode{Code: "TEAM2025", Type: domain.CodeTypeTeam}).Error)

	resp := call(t, app, "GET", "/api/v1/team/commissions", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	cookie := login(t, app, "member@lion.test")

	resp = call(t, app, "POST", "/api/v1/team/join", cookie, map[string]string{"code": "team2025"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = call(t, app, "GET", "/api/v1/team/commissions", cookie, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = call(t, app, "POST", "/api/v1/admin/team-members/00000000-0000-0000-0000-000000000001/promote-rank", cookie, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = call(t, app, "DELETE", "/api/v1/auth/logout", cookie, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = call(t, app, "GET", "/api/v1/auth/me", cookie, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_AdminRoutes(t *testing.T) {
	app, db := setupRouterTest(t)
	seedUser(t, db, "admin@lion.test", true)
	cookie := login(t, app, "admin@lion.test")

	resp := call(t, app, "POST", "/api/v1/admin/team-members/00000000-0000-0000-0000-000000000001/promote-rank", cookie, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = call(t, app, "PATCH", "/api/v1/admin/commissions/00000000-0000-0000-0000-000000000001/status", cookie, map[string]string{"status": "APPROVED"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRouter_AnonymousRedeemAndMetrics(t *testing.T) {
	app, db := setupRouterTest(t)
	require.NoError(t, db.Create(&domain.InvitationCode{Code: "SELL42", Type: domain.CodeTypeSeller}).Error)

	resp := call(t, app, "POST", "/api/v1/codes/redeem", "", map[string]string{"code": "SELL42", "type": "SELLER"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = call(t, app, "GET", "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(raw), `lion_code_redemptions_total{outcome="success",type="SELLER"}`))
}

func TestRouter_Health(t *testing.T) {
	app, _ := setupRouterTest(t)

	resp := call(t, app, "GET", "/health/json", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "ok", out["status"])
}
