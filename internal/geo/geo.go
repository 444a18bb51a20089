package geo

import (
	"math"

	"photoquest_backend/internal/util"
)

// EarthRadiusKm is the mean spherical Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a WGS84-ish latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is a usable coordinate. NaN and out-of-range
// values are rejected here so the distance math never sees them.
func Valid(p Point) bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	if math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Validate returns ErrInvalidCoordinate for unusable points.
func Validate(p Point) error {
	if !Valid(p) {
		return util.ErrInvalidCoordinate
	}
	return nil
}

// Distance returns the great-circle distance between a and b in kilometers.
// Symmetric, deterministic, zero for identical points.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// WithinRadius reports whether user is inside the circular geofence around
// target. radiusMeters is inclusive at the boundary.
func WithinRadius(user, target Point, radiusMeters float64) bool {
	return Distance(user, target)*1000 <= radiusMeters
}
