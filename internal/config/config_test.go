package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("AI_MODEL", "from-env")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: memory
storage:
  type: minio
jwt:
  secret: short
  expire_hours: 2
redis:
  session_ttl_minutes: 30
cors:
  allowed_origins: ["http://localhost:5173"]
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Minute, cfg.Redis.SessionTTL())
	assert.Equal(t, 12000, cfg.AI.MaxSourceChars)
	assert.Equal(t, "from-env", cfg.AI.Model)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout())
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	t.Setenv("SERVER_MODE", "")
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: too-short
`)
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
