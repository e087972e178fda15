package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleType identifies the evaluation strategy for a rule.
type RuleType string

const (
	RuleThreshold RuleType = "threshold"
	RuleProximity RuleType = "proximity"
	RuleZoneDwell RuleType = "zone_dwell"

	// Legacy type names still present in seeded configs. Both evaluate
	// as plain threshold rules.
	RuleBattery         RuleType = "battery"
	RuleDissolvedOxygen RuleType = "dissolved_oxygen"
)

// IsThreshold reports whether the type resolves to the threshold evaluator.
func (t RuleType) IsThreshold() bool {
	return t == RuleThreshold || t == RuleBattery || t == RuleDissolvedOxygen
}

// Severity classifies how urgent a triggered alert is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var validOperators = map[string]bool{
	">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true,
}

// RuleConfig is the typed, validated configuration payload of an alert rule.
type RuleConfig struct {
	ID              string   `json:"id"`
	Type            RuleType `json:"type"`
	Path            string   `json:"path"`
	Operator        string   `json:"operator"`
	Value           float64  `json:"value"`
	Severity        Severity `json:"severity"`
	DedupeWindowSec int      `json:"dedupe_window_sec"`
	ZoneType        string   `json:"zone_type,omitempty"`
	MaxMinutes      int      `json:"max_minutes,omitempty"`
}

// Validate rejects malformed configs at parse time rather than mid-evaluation.
func (c *RuleConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if c.Type == "" {
		return fmt.Errorf("rule %s: type is required", c.ID)
	}
	if !validOperators[c.Operator] {
		return fmt.Errorf("rule %s: invalid operator %q", c.ID, c.Operator)
	}
	switch c.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return fmt.Errorf("rule %s: invalid severity %q", c.ID, c.Severity)
	}
	if c.DedupeWindowSec < 0 {
		return fmt.Errorf("rule %s: dedupe_window_sec must be >= 0", c.ID)
	}
	if c.MaxMinutes < 0 {
		return fmt.Errorf("rule %s: max_minutes must be >= 0", c.ID)
	}
	return nil
}

// DedupeWindow returns the configured window as a duration.
func (c *RuleConfig) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeWindowSec) * time.Second
}

// ParseRuleConfig decodes and validates a stored rule config payload.
func ParseRuleConfig(raw []byte) (*RuleConfig, error) {
	var cfg RuleConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode rule config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AlertRule is a rule row as persisted: the raw config plus its active flag.
type AlertRule struct {
	ID        string
	Type      RuleType
	Config    json.RawMessage
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
