package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleConfig(t *testing.T) {
	raw := []byte(`{
		"id": "sediment_high",
		"type": "threshold",
		"path": "env.sediment_mg_l",
		"operator": ">",
		"value": 25.0,
		"severity": "high",
		"dedupe_window_sec": 300
	}`)

	cfg, err := ParseRuleConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "sediment_high", cfg.ID)
	assert.Equal(t, RuleThreshold, cfg.Type)
	assert.Equal(t, 25.0, cfg.Value)
	assert.Equal(t, SeverityHigh, cfg.Severity)
	assert.Equal(t, 300*time.Second, cfg.DedupeWindow())
}

func TestParseRuleConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `{`, "decode rule config"},
		{"missing id", `{"type":"threshold","operator":">","severity":"high"}`, "rule id is required"},
		{"missing type", `{"id":"r1","operator":">","severity":"high"}`, "type is required"},
		{"bad operator", `{"id":"r1","type":"threshold","operator":"between","severity":"high"}`, `invalid operator "between"`},
		{"bad severity", `{"id":"r1","type":"threshold","operator":">","severity":"critical"}`, `invalid severity "critical"`},
		{"negative dedupe", `{"id":"r1","type":"threshold","operator":">","severity":"high","dedupe_window_sec":-1}`, "dedupe_window_sec must be >= 0"},
		{"negative max_minutes", `{"id":"r1","type":"zone_dwell","operator":">","severity":"high","max_minutes":-5}`, "max_minutes must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleConfig([]byte(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRuleTypeIsThreshold(t *testing.T) {
	assert.True(t, RuleThreshold.IsThreshold())
	assert.True(t, RuleBattery.IsThreshold())
	assert.True(t, RuleDissolvedOxygen.IsThreshold())
	assert.False(t, RuleProximity.IsThreshold())
	assert.False(t, RuleZoneDwell.IsThreshold())
}
