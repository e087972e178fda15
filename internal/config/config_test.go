package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "auv_monitor", cfg.DBName)
	assert.Equal(t, int32(15), cfg.DBMaxConns)
	assert.Equal(t, 64, cfg.StreamBufferSize)
	assert.Equal(t, 30, cfg.KeepaliveIntervalSec)
	assert.Equal(t, 120, cfg.RateLimitMax)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STREAM_BUFFER_SIZE", "256")
	t.Setenv("VALID_API_KEYS", "key_a,key_b")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 256, cfg.StreamBufferSize)
	assert.Equal(t, []string{"key_a", "key_b"}, cfg.ValidAPIKeys)
}

func TestGetEnvIntBadValue(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "not-a-number")
	cfg := Load()
	assert.Equal(t, 120, cfg.RateLimitMax)
}
