package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Zone is a named polygonal region used to scope zone_dwell rules.
// Geom holds the polygon as a GeoJSON string.
type Zone struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ZoneType        string    `json:"zone_type"`
	Geom            string    `json:"geom"`
	MaxDwellMinutes int       `json:"max_dwell_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type geoJSONGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// Ring parses the zone geometry and returns the outer polygon ring as
// (lon, lat) pairs.
func (z *Zone) Ring() ([][2]float64, error) {
	var geom geoJSONGeometry
	if err := json.Unmarshal([]byte(z.Geom), &geom); err != nil {
		return nil, fmt.Errorf("zone %s: decode geometry: %w", z.ID, err)
	}
	if geom.Type != "Polygon" {
		return nil, fmt.Errorf("zone %s: unsupported geometry type %q", z.ID, geom.Type)
	}
	if len(geom.Coordinates) == 0 || len(geom.Coordinates[0]) < 3 {
		return nil, fmt.Errorf("zone %s: polygon ring too short", z.ID)
	}
	return geom.Coordinates[0], nil
}
