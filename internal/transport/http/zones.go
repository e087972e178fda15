package http

import (
	"encoding/json"
	"net/http"
	"time"

	"auv-monitor/internal/domain"
	"auv-monitor/internal/store"
)

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// getZones returns all zones as a GeoJSON FeatureCollection. Zones with
// geometry that fails to parse are dropped from the collection, not fatal.
func (h *Handler) getZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.db.ListZones(r.Context())
	if err != nil {
		h.logger.Error("zone query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve zones")
		return
	}

	fc := geoJSONFeatureCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}
	for _, zone := range zones {
		if !json.Valid([]byte(zone.Geom)) {
			h.logger.Warn("skipping zone with invalid geometry", "zone_id", zone.ID)
			continue
		}
		fc.Features = append(fc.Features, geoJSONFeature{
			Type: "Feature",
			Properties: map[string]any{
				"id":                zone.ID.String(),
				"name":              zone.Name,
				"zone_type":         zone.ZoneType,
				"max_dwell_minutes": zone.MaxDwellMinutes,
			},
			Geometry: json.RawMessage(zone.Geom),
		})
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.db.ListZones(r.Context())
	if err != nil {
		h.logger.Error("zone query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve zones")
		return
	}
	if zones == nil {
		zones = []domain.Zone{}
	}
	writeJSON(w, http.StatusOK, zones)
}

type routeResponse struct {
	AUVID  string             `json:"auv_id"`
	From   time.Time          `json:"from"`
	To     time.Time          `json:"to"`
	Points []store.RoutePoint `json:"points"`
}

func (h *Handler) getRoute(w http.ResponseWriter, r *http.Request) {
	auvID := r.URL.Query().Get("auv_id")
	if auvID == "" {
		writeError(w, http.StatusBadRequest, "auv_id is required")
		return
	}
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.db.Route(r.Context(), auvID, from, to)
	if err != nil {
		h.logger.Error("route query failed", "auv_id", auvID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve route")
		return
	}
	if points == nil {
		points = []store.RoutePoint{}
	}
	writeJSON(w, http.StatusOK, routeResponse{AUVID: auvID, From: from, To: to, Points: points})
}
