package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "inventory.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, time.Hour, cfg.AlertInterval)
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INVENTORY_DB_PATH", ":memory:")
	t.Setenv("INVENTORY_PORT", "9090")
	t.Setenv("INVENTORY_LOCK_TIMEOUT", "250ms")
	t.Setenv("INVENTORY_LOW_STOCK_THRESHOLD", "10")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 10, cfg.LowStockThreshold)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// GIVEN: a .env file and no matching variable in the environment
	t.Setenv("INVENTORY_PORT", "")
	os.Unsetenv("INVENTORY_PORT")
	t.Setenv("INVENTORY_LOG_LEVEL", "warn") // environment wins over the file

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("INVENTORY_PORT=7070\nINVENTORY_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("INVENTORY_PORT") })

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("INVENTORY_PORT", "70000")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("negative threshold", func(t *testing.T) {
		t.Setenv("INVENTORY_LOW_STOCK_THRESHOLD", "-1")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("INVENTORY_LOCK_TIMEOUT", "soon")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(Config{LogLevel: "debug", LogFormat: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = NewLogger(Config{LogLevel: "chatty", LogFormat: "text"})
	assert.Error(t, err)

	_, err = NewLogger(Config{LogLevel: "info", LogFormat: "xml"})
	assert.Error(t, err)
}
