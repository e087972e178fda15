package http

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Database:  "down",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Database:  "up",
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "not ready",
			Database:  "down",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ready",
		Database:  "up",
		Timestamp: time.Now().UTC(),
	})
}

// healthMetrics is the lightweight JSON snapshot dashboards poll; the full
// collector set lives at /metrics for Prometheus.
func (h *Handler) healthMetrics(w http.ResponseWriter, r *http.Request) {
	alerts, telemetry := h.registry.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC(),
		"streams": map[string]int{
			"alert_streams":     alerts,
			"telemetry_streams": telemetry,
		},
		"ingested_total": h.service.Received.Load(),
		"uptime_seconds": time.Since(h.started).Seconds(),
		"version":        "1.0.0",
	})
}
