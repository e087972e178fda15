package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"auv-monitor/internal/config"
)

func TestValidateStaticKeys(t *testing.T) {
	cfg := &config.Config{
		ValidAPIKeys:        []string{"auv_001_key", "", "test_key"},
		AuthCacheTTLSeconds: 300,
	}
	a := NewAuthenticator(cfg, nil)

	assert.True(t, a.Validate(context.Background(), "auv_001_key"))
	assert.True(t, a.Validate(context.Background(), "test_key"))
	assert.False(t, a.Validate(context.Background(), "unknown"))
	assert.False(t, a.Validate(context.Background(), ""))
}

func TestValidateCacheHitAndExpiry(t *testing.T) {
	a := NewAuthenticator(&config.Config{AuthCacheTTLSeconds: 300}, nil)

	// With no Redis backend, only a live cache entry can validate a key.
	a.localCache.Store("cached_key", cacheEntry{
		auvID:     "AUV-001",
		expiresAt: time.Now().Add(time.Minute),
	})
	assert.True(t, a.Validate(context.Background(), "cached_key"))

	a.localCache.Store("stale_key", cacheEntry{
		auvID:     "AUV-002",
		expiresAt: time.Now().Add(-time.Minute),
	})
	assert.False(t, a.Validate(context.Background(), "stale_key"))

	// The expired entry was evicted.
	_, ok := a.localCache.Load("stale_key")
	assert.False(t, ok)
}
