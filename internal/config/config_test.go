package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no stray .env is read.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionDatabaseURL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL_DEV", "postgres://dev")
	t.Setenv("DATABASE_URL_PROD", "postgres://prod")
	t.Setenv("ALLOW_CROSS_SITE_DEV", "true")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("FRONTEND_URL_ENDS_WITH", "lion-tasedda.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://prod", cfg.DatabaseURL)
	assert.True(t, cfg.AllowCrossSiteDev)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, ".lion-tasedda.com", cfg.CookieDomain)
}

func TestLoad_TestDatabaseURL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL_TEST", "postgres://test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://test", cfg.DatabaseURL)
}
