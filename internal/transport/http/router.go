package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the full route tree. Auth guards ingestion only; the
// rate limit covers every /api route.
func NewRouter(h *Handler, authMW *AuthMiddleware, rateMW *RateLimitMiddleware) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.logRequests)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(rateMW.Wrap)

		api.Route("/telemetry", func(t chi.Router) {
			t.With(authMW.Wrap).Post("/ingest", h.ingestTelemetry)
			t.Get("/", h.listTelemetry)
		})

		api.Route("/stream", func(s chi.Router) {
			s.Get("/alerts", h.streamAlerts)
			s.Get("/telemetry", h.streamTelemetry)
			s.Get("/ws", h.streamWS)
		})

		api.Route("/zones", func(z chi.Router) {
			z.Get("/", h.getZones)
			z.Get("/list", h.listZones)
			z.Get("/routes", h.getRoute)
		})

		api.Get("/exports/isa/hourly", h.exportISAHourly)

		api.Route("/health", func(hr chi.Router) {
			hr.Get("/healthz", h.healthz)
			hr.Get("/readyz", h.readyz)
			hr.Get("/metrics", h.healthMetrics)
		})
	})

	return r
}

// logRequests emits one structured line per request. Stream endpoints log on
// disconnect, which is when their handler returns.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}
