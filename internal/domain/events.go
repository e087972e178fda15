package domain

import "time"

// AlertEvent is the flat payload delivered to alert stream subscribers.
type AlertEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AUVID     string    `json:"auv_id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
}

// TelemetryEvent is the payload delivered to telemetry stream subscribers.
type TelemetryEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	AUVID     string      `json:"auv_id"`
	Position  Position    `json:"position"`
	Env       Environment `json:"env"`
	Plume     Plume       `json:"plume"`
	Battery   Battery     `json:"battery"`
}
