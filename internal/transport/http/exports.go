package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' timestamp: %w", err)
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' timestamp: %w", err)
	}
	return from, to, nil
}

// exportISAHourly streams the ISA compliance CSV: one row per reading with
// its alert count, over the requested window.
func (h *Handler) exportISAHourly(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	auvID := r.URL.Query().Get("auv_id")

	rows, err := h.db.ExportRows(r.Context(), from, to, auvID)
	if err != nil {
		h.logger.Error("export query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	filename := fmt.Sprintf("isa_export_%s_%s.csv", from.Format("20060102"), to.Format("20060102"))
	if auvID != "" {
		filename = fmt.Sprintf("isa_export_%s_%s_%s.csv", auvID, from.Format("20060102"), to.Format("20060102"))
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Cache-Control", "no-cache")

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"timestamp", "auv_id", "lat", "lng", "depth_m",
		"sediment_mg_l", "turbidity_ntu", "dissolved_oxygen_mg_l",
		"temperature_c", "plume_concentration_mg_l", "battery_pct", "alerts_count",
	})
	for _, row := range rows {
		cw.Write([]string{
			row.Timestamp.Format(time.RFC3339),
			row.AUVID,
			strconv.FormatFloat(row.Lat, 'f', 6, 64),
			strconv.FormatFloat(row.Lng, 'f', 6, 64),
			strconv.FormatFloat(row.DepthM, 'f', -1, 64),
			strconv.FormatFloat(row.SedimentMgL, 'f', 2, 64),
			strconv.FormatFloat(row.TurbidityNTU, 'f', 2, 64),
			strconv.FormatFloat(row.DissolvedOxygenMgL, 'f', 2, 64),
			strconv.FormatFloat(row.TemperatureC, 'f', 2, 64),
			strconv.FormatFloat(row.PlumeMgL, 'f', 2, 64),
			strconv.FormatFloat(row.BatteryPct, 'f', -1, 64),
			strconv.Itoa(row.AlertsCount),
		})
	}
	cw.Flush()
}
