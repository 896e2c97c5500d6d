package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("REACT_APP_API_URL", "")
	t.Setenv("BTW_API_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "session.json", filepath.Base(cfg.Storage.File))
	assert.Equal(t, time.Minute, cfg.RefreshSkew())
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.True(t, cfg.DevServer.RotateRefresh)
	assert.Empty(t, cfg.DevServer.JWTSecret)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.nl/api/
  timeout_seconds: 5
storage:
  backend: redis
archive:
  bucket: receipts-archive
`), 0o600))

	t.Setenv("REACT_APP_API_URL", "")
	t.Setenv("BTW_API_URL", "")
	t.Setenv("REDIS_SERVICE_HOST", "redis.internal")
	t.Setenv("REDIS_SERVICE_PORT", "6380")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.nl/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "receipts-archive", cfg.Archive.Bucket)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, "s3cret", cfg.DevServer.JWTSecret)
}

func TestLoadFile_ReactAPIURL(t *testing.T) {
	t.Setenv("REACT_APP_API_URL", "https://btwbuddy.nl/api")
	t.Setenv("BTW_API_URL", "")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://btwbuddy.nl/api", cfg.API.BaseURL)
}
