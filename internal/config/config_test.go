package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocode.BaseURL)
	assert.Equal(t, "schoolmap/1.0", cfg.Geocode.UserAgent)
	assert.Equal(t, "ca", cfg.Geocode.CountryCode)
	assert.Equal(t, 1500, cfg.Geocode.MinDelayMS)
	assert.Equal(t, 3, cfg.Geocode.Retries)
	assert.Equal(t, 2, cfg.Geocode.BackoffSecs)
	assert.Equal(t, "geocode_cache.csv", cfg.Cache.Path)
	assert.Equal(t, 25, cfg.Build.FlushEvery)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
geocode:
  min_delay_ms: 1100
  country_code: ca
cache:
  path: cache.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1100, cfg.Geocode.MinDelayMS)
	assert.Equal(t, "cache.db", cfg.Cache.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Geocode.Retries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
cache:
  path: cache.db
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCHOOLMAP_CACHE_PATH", "other.csv")
	t.Setenv("SCHOOLMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "other.csv", cfg.Cache.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SCHOOLMAP_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults(t *testing.T) *Config {
	t.Helper()
	chTempDir(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidateBuild_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults(t).Validate("build"))
}

func TestValidateBuild_MissingFields(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Geocode.BaseURL = ""
	cfg.Geocode.Retries = 0

	err := cfg.Validate("build")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.base_url is required")
	assert.Contains(t, err.Error(), "geocode.retries must be >= 1")
}

func TestValidateBuild_FlushEvery(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Build.FlushEvery = 0

	err := cfg.Validate("build")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "build.flush_every must be >= 1")
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults(t).Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
