package rules

import (
	"fmt"

	"auv-monitor/internal/domain"
	"auv-monitor/internal/geo"
)

// Result is the outcome of evaluating one rule against one telemetry record.
type Result struct {
	Triggered bool
	Title     string
	Message   string
}

// EvaluateThreshold resolves the configured path against the record and
// applies the configured comparison operator. A path that resolves to
// nothing, or to a non-numeric value, never triggers.
func EvaluateThreshold(rec *domain.TelemetryRecord, cfg *domain.RuleConfig) Result {
	value, ok := asFloat(Resolve(rec.Document(), cfg.Path))
	if !ok {
		return Result{}
	}

	var triggered bool
	switch cfg.Operator {
	case ">":
		triggered = value > cfg.Value
	case "<":
		triggered = value < cfg.Value
	case ">=":
		triggered = value >= cfg.Value
	case "<=":
		triggered = value <= cfg.Value
	case "==":
		triggered = value == cfg.Value
	case "!=":
		triggered = value != cfg.Value
	}
	if !triggered {
		return Result{}
	}

	return Result{
		Triggered: true,
		Title:     fmt.Sprintf("%s threshold exceeded", cfg.Path),
		Message: fmt.Sprintf("%s %s %v (current: %v) at %.4f,%.4f",
			cfg.Path, cfg.Operator, cfg.Value, value, rec.Position.Lat, rec.Position.Lng),
	}
}

// EvaluateProximity triggers when any species detection is closer than the
// configured value. The comparison is always strict less-than; the rule's
// operator field is ignored for proximity rules.
func EvaluateProximity(rec *domain.TelemetryRecord, cfg *domain.RuleConfig) Result {
	if len(rec.SpeciesDetections) == 0 {
		return Result{}
	}

	var closest *domain.SpeciesDetection
	for i := range rec.SpeciesDetections {
		d := &rec.SpeciesDetections[i]
		if d.DistanceM >= cfg.Value {
			continue
		}
		if closest == nil || d.DistanceM < closest.DistanceM {
			closest = d
		}
	}
	if closest == nil {
		return Result{}
	}

	return Result{
		Triggered: true,
		Title:     "Protected species proximity alert",
		Message: fmt.Sprintf("Protected species %q detected at %vm (threshold: %vm) at %.4f,%.4f",
			closest.Name, closest.DistanceM, cfg.Value, rec.Position.Lat, rec.Position.Lng),
	}
}

// EvaluateZoneDwell triggers on the first zone whose polygon contains the
// record's position. This is an instantaneous containment check; elapsed
// dwell time is not tracked. Zones with malformed geometry are skipped.
func EvaluateZoneDwell(rec *domain.TelemetryRecord, cfg *domain.RuleConfig, zones []domain.Zone) Result {
	if cfg.ZoneType == "" {
		return Result{}
	}

	for i := range zones {
		zone := &zones[i]
		ring, err := zone.Ring()
		if err != nil {
			continue
		}
		if !geo.Contains(ring, rec.Position.Lng, rec.Position.Lat) {
			continue
		}

		dwellMinutes := cfg.MaxMinutes
		if dwellMinutes <= 0 {
			dwellMinutes = 60
		}
		return Result{
			Triggered: true,
			Title:     "Zone dwell time exceeded",
			Message: fmt.Sprintf("AUV in %s for more than %d minutes at %.4f,%.4f",
				zone.Name, dwellMinutes, rec.Position.Lat, rec.Position.Lng),
		}
	}
	return Result{}
}
