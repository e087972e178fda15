// Package http carries the service's HTTP surface: ingestion, queries,
// exports, health, and the SSE/WebSocket stream endpoints.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"auv-monitor/internal/config"
	"auv-monitor/internal/domain"
	"auv-monitor/internal/ingest"
	"auv-monitor/internal/store"
	"auv-monitor/internal/stream"
)

// Handler owns the wired dependencies shared by all routes.
type Handler struct {
	cfg      *config.Config
	service  *ingest.Service
	db       *store.PostgresStore
	redis    *store.RedisStore
	registry *stream.Registry
	logger   *slog.Logger
	started  time.Time
}

func NewHandler(
	cfg *config.Config,
	service *ingest.Service,
	db *store.PostgresStore,
	redis *store.RedisStore,
	registry *stream.Registry,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:      cfg,
		service:  service,
		db:       db,
		redis:    redis,
		registry: registry,
		logger:   logger,
		started:  time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ingestResponse struct {
	Success         bool   `json:"success"`
	TelemetryID     string `json:"telemetry_id"`
	AlertsGenerated int    `json:"alerts_generated"`
}

func (h *Handler) ingestTelemetry(w http.ResponseWriter, r *http.Request) {
	var rec domain.TelemetryRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "malformed telemetry payload: "+err.Error())
		return
	}

	res, err := h.service.Ingest(r.Context(), &rec)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("ingest failed", "auv_id", rec.AUVID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to ingest telemetry")
		return
	}

	// Live state cache is best-effort; a Redis hiccup never fails the ingest.
	if h.redis != nil {
		ttl := time.Duration(h.cfg.LiveStateTTLSeconds) * time.Second
		if err := h.redis.UpdateLiveState(r.Context(), &rec, ttl); err != nil {
			h.logger.Warn("live state update failed", "auv_id", rec.AUVID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Success:         true,
		TelemetryID:     res.TelemetryID.String(),
		AlertsGenerated: res.AlertsGenerated,
	})
}

func (h *Handler) listTelemetry(w http.ResponseWriter, r *http.Request) {
	auvID := r.URL.Query().Get("auv_id")
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.db.ListTelemetry(r.Context(), auvID, limit, offset)
	if err != nil {
		h.logger.Error("telemetry query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve telemetry")
		return
	}
	if records == nil {
		records = []domain.StoredTelemetry{}
	}
	writeJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
