package rules

import (
	"context"
	"fmt"
	"log/slog"

	"auv-monitor/internal/domain"
)

// RuleSource loads alert rule rows for evaluation.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]domain.AlertRule, error)
}

// ZoneSource loads zones for zone_dwell evaluation.
type ZoneSource interface {
	ZonesByType(ctx context.Context, zoneType string) ([]domain.Zone, error)
}

// TriggerResult couples a fired evaluation with the rule that produced it.
type TriggerResult struct {
	Rule    *domain.RuleConfig
	Title   string
	Message string
}

// Engine evaluates every active rule against incoming telemetry. It decides
// only whether a rule would fire; deduplication and alert persistence belong
// to the ingestion layer.
type Engine struct {
	rules  RuleSource
	zones  ZoneSource
	logger *slog.Logger
}

func NewEngine(rules RuleSource, zones ZoneSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, zones: zones, logger: logger}
}

// Evaluate runs all active rules against the record and returns the triggered
// results. A rule that fails to parse or evaluate is skipped; it never aborts
// evaluation of the remaining rules.
func (e *Engine) Evaluate(ctx context.Context, rec *domain.TelemetryRecord) ([]TriggerResult, error) {
	active, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	var results []TriggerResult
	for i := range active {
		rule := &active[i]

		cfg, err := domain.ParseRuleConfig(rule.Config)
		if err != nil {
			e.logger.Warn("skipping unparseable rule", "rule_id", rule.ID, "error", err)
			continue
		}

		var res Result
		switch {
		case cfg.Type.IsThreshold():
			res = EvaluateThreshold(rec, cfg)
		case cfg.Type == domain.RuleProximity:
			res = EvaluateProximity(rec, cfg)
		case cfg.Type == domain.RuleZoneDwell:
			zones, err := e.zones.ZonesByType(ctx, cfg.ZoneType)
			if err != nil {
				e.logger.Warn("zone lookup failed", "rule_id", rule.ID, "zone_type", cfg.ZoneType, "error", err)
				continue
			}
			res = EvaluateZoneDwell(rec, cfg, zones)
		default:
			e.logger.Warn("unknown rule type", "rule_id", rule.ID, "type", cfg.Type)
			continue
		}

		if res.Triggered {
			results = append(results, TriggerResult{
				Rule:    cfg,
				Title:   res.Title,
				Message: res.Message,
			})
		}
	}
	return results, nil
}
