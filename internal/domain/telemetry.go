package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Position is the AUV's location and motion at the time of the reading.
type Position struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	DepthM  float64 `json:"depth"`
	Speed   float64 `json:"speed"`
	Heading float64 `json:"heading"`
}

// Environment holds water-column sensor readings.
type Environment struct {
	TurbidityNTU       float64 `json:"turbidity_ntu"`
	SedimentMgL        float64 `json:"sediment_mg_l"`
	DissolvedOxygenMgL float64 `json:"dissolved_oxygen_mg_l"`
	TemperatureC       float64 `json:"temperature_c"`
}

// Plume holds sediment plume measurements.
type Plume struct {
	ConcentrationMgL float64 `json:"concentration_mg_l"`
}

// SpeciesDetection is one sonar/optical detection of a protected species.
type SpeciesDetection struct {
	Name      string  `json:"name"`
	DistanceM float64 `json:"distance_m"`
}

// Battery holds the power subsystem state.
type Battery struct {
	LevelPct float64 `json:"level_pct"`
	VoltageV float64 `json:"voltage_v"`
}

// TelemetryRecord is one reading reported by an AUV. Immutable once ingested.
type TelemetryRecord struct {
	Timestamp         time.Time          `json:"timestamp"`
	AUVID             string             `json:"auv_id"`
	Position          Position           `json:"position"`
	Env               Environment        `json:"env"`
	Plume             Plume              `json:"plume"`
	SpeciesDetections []SpeciesDetection `json:"species_detections"`
	Battery           Battery            `json:"battery"`
}

// StoredTelemetry is a persisted reading together with its storage identity.
type StoredTelemetry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TelemetryRecord
}

// Validate checks field bounds before the record enters the pipeline.
func (t *TelemetryRecord) Validate() error {
	if t.AUVID == "" {
		return fmt.Errorf("auv_id is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if t.Position.Lat < -90 || t.Position.Lat > 90 {
		return fmt.Errorf("position.lat %v out of range [-90,90]", t.Position.Lat)
	}
	if t.Position.Lng < -180 || t.Position.Lng > 180 {
		return fmt.Errorf("position.lng %v out of range [-180,180]", t.Position.Lng)
	}
	if t.Position.DepthM < 0 {
		return fmt.Errorf("position.depth must be >= 0")
	}
	if t.Position.Speed < 0 {
		return fmt.Errorf("position.speed must be >= 0")
	}
	if t.Position.Heading < 0 || t.Position.Heading > 360 {
		return fmt.Errorf("position.heading %v out of range [0,360]", t.Position.Heading)
	}
	if t.Env.TurbidityNTU < 0 || t.Env.SedimentMgL < 0 || t.Env.DissolvedOxygenMgL < 0 {
		return fmt.Errorf("environment readings must be >= 0")
	}
	if t.Plume.ConcentrationMgL < 0 {
		return fmt.Errorf("plume.concentration_mg_l must be >= 0")
	}
	for i, d := range t.SpeciesDetections {
		if d.Name == "" {
			return fmt.Errorf("species_detections[%d].name is required", i)
		}
		if d.DistanceM < 0 {
			return fmt.Errorf("species_detections[%d].distance_m must be >= 0", i)
		}
	}
	if t.Battery.LevelPct < 0 || t.Battery.LevelPct > 100 {
		return fmt.Errorf("battery.level_pct %v out of range [0,100]", t.Battery.LevelPct)
	}
	if t.Battery.VoltageV < 0 {
		return fmt.Errorf("battery.voltage_v must be >= 0")
	}
	return nil
}

// Document returns the record as a nested map keyed by wire field names.
// Rule paths like "env.sediment_mg_l" resolve against this form.
func (t *TelemetryRecord) Document() map[string]any {
	detections := make([]any, len(t.SpeciesDetections))
	for i, d := range t.SpeciesDetections {
		detections[i] = map[string]any{
			"name":       d.Name,
			"distance_m": d.DistanceM,
		}
	}
	return map[string]any{
		"timestamp": t.Timestamp,
		"auv_id":    t.AUVID,
		"position": map[string]any{
			"lat":     t.Position.Lat,
			"lng":     t.Position.Lng,
			"depth":   t.Position.DepthM,
			"speed":   t.Position.Speed,
			"heading": t.Position.Heading,
		},
		"env": map[string]any{
			"turbidity_ntu":         t.Env.TurbidityNTU,
			"sediment_mg_l":         t.Env.SedimentMgL,
			"dissolved_oxygen_mg_l": t.Env.DissolvedOxygenMgL,
			"temperature_c":         t.Env.TemperatureC,
		},
		"plume": map[string]any{
			"concentration_mg_l": t.Plume.ConcentrationMgL,
		},
		"species_detections": detections,
		"battery": map[string]any{
			"level_pct": t.Battery.LevelPct,
			"voltage_v": t.Battery.VoltageV,
		},
	}
}
