package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: "release"
storage:
  type: "badger"
  badger_path: "/tmp/goal-tracker"
reminder:
  sweep_interval_seconds: 30
cors:
  allowed_origins:
    - "http://localhost:3000"
rate_limit:
  max_requests: 500
  window_minutes: 5
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "badger", cfg.Storage.Type)
	assert.Equal(t, "/tmp/goal-tracker", cfg.Storage.BadgerPath)
	assert.Equal(t, 30*time.Second, cfg.Reminder.SweepInterval())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 500, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigDefaultsStorageToMemory(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "8080"
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, time.Minute, cfg.Reminder.SweepInterval())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
