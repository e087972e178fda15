package domain

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a persisted, triggered-and-deduplicated rule violation.
// Immutable after creation.
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	AUVID       string     `json:"auv_id"`
	RuleID      string     `json:"rule_id"`
	Severity    Severity   `json:"severity"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Payload     []byte     `json:"-"`
	TelemetryID *uuid.UUID `json:"telemetry_id,omitempty"`
}
