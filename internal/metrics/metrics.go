// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TelemetryIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auv_telemetry_ingested_total",
		Help: "Telemetry records successfully persisted.",
	})

	IngestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auv_telemetry_ingest_failures_total",
		Help: "Ingestion requests that failed and rolled back.",
	})

	AlertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auv_alerts_generated_total",
		Help: "Alerts persisted after rule evaluation and deduplication.",
	}, []string{"rule_id", "severity"})

	AlertsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auv_alerts_deduplicated_total",
		Help: "Triggered alerts suppressed by the deduplication window.",
	})

	ActiveStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "auv_stream_subscribers",
		Help: "Currently registered stream subscribers per channel.",
	}, []string{"channel"})

	PrunedStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auv_stream_subscribers_pruned_total",
		Help: "Subscribers removed at publish time, by reason.",
	}, []string{"channel", "reason"})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auv_telemetry_ingest_duration_seconds",
		Help:    "Wall time of one ingest call, including rule evaluation and commit.",
		Buckets: prometheus.DefBuckets,
	})
)
