package http

import (
	"log/slog"
	"net/http"
	"time"

	"auv-monitor/internal/auth"
	"auv-monitor/internal/store"
)

type AuthMiddleware struct {
	auth *auth.Authenticator
}

func NewAuthMiddleware(a *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"missing X-API-Key header"}`))
			return
		}

		if !m.auth.Validate(r.Context(), apiKey) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid API key"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware applies a per-client fixed window backed by Redis.
// Clients are keyed by API key when present, remote address otherwise.
// Fails open when Redis is unreachable: dropping telemetry over a cache
// outage is worse than briefly losing the limit.
type RateLimitMiddleware struct {
	redis  *store.RedisStore
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRateLimitMiddleware(redis *store.RedisStore, limit int, window time.Duration, logger *slog.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitMiddleware{redis: redis, limit: limit, window: window, logger: logger}
}

func (m *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.redis == nil || m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientID := r.Header.Get("X-API-Key")
		if clientID == "" {
			clientID = r.RemoteAddr
		}

		allowed, err := m.redis.AllowRequest(r.Context(), clientID, m.limit, m.window)
		if err != nil {
			m.logger.Warn("rate limit check failed", "client", clientID, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
