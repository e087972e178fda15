// Package geo provides the point-in-polygon containment test used by
// zone-dwell rule evaluation.
package geo

// Contains reports whether the point (lng, lat) lies inside the simple
// polygon described by ring, an ordered list of (lon, lat) vertices.
// Uses the even-odd ray-casting test; points exactly on an edge are not
// guaranteed either way, which is acceptable for geofencing zones that
// span kilometres.
func Contains(ring [][2]float64, lng, lat float64) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
