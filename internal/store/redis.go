package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auv-monitor/internal/config"
	"auv-monitor/internal/domain"
)

// RedisStore backs the fast-path concerns that never belong in Postgres:
// API key lookup, request rate limiting, and the live per-AUV state cache.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// GetAPIKey resolves an API key to the AUV id it was issued for. An unknown
// key returns "" with no error.
func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	key := fmt.Sprintf("auv:auth:%s", apiKey)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

// AllowRequest applies a fixed-window rate limit per client. The first hit
// in a window creates the counter with the window's TTL.
func (r *RedisStore) AllowRequest(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s", clientID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// UpdateLiveState caches the latest reading per AUV and maintains the fleet
// geo index. Best-effort: called after commit, never on the ingest hot path's
// error budget.
func (r *RedisStore) UpdateLiveState(ctx context.Context, rec *domain.TelemetryRecord, ttl time.Duration) error {
	stateData := map[string]any{
		"auv_id":                rec.AUVID,
		"lat":                   rec.Position.Lat,
		"lng":                   rec.Position.Lng,
		"depth_m":               rec.Position.DepthM,
		"speed":                 rec.Position.Speed,
		"heading":               rec.Position.Heading,
		"sediment_mg_l":         rec.Env.SedimentMgL,
		"turbidity_ntu":         rec.Env.TurbidityNTU,
		"dissolved_oxygen_mg_l": rec.Env.DissolvedOxygenMgL,
		"temperature_c":         rec.Env.TemperatureC,
		"plume_mg_l":            rec.Plume.ConcentrationMgL,
		"battery_pct":           rec.Battery.LevelPct,
		"timestamp":             rec.Timestamp.Unix(),
	}
	stateKey := fmt.Sprintf("auv:%s:state", rec.AUVID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, stateKey, stateData)
	pipe.Expire(ctx, stateKey, ttl)
	pipe.GeoAdd(ctx, "auv:geo", &redis.GeoLocation{
		Name:      rec.AUVID,
		Longitude: rec.Position.Lng,
		Latitude:  rec.Position.Lat,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}
