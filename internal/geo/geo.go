package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances
const EarthRadiusMeters = 6371000.0

// Point is a geographic coordinate in decimal degrees
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the point is within valid coordinate ranges
func Validate(p Point) error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return &ValidationError{fmt.Sprintf("latitude %f out of range [-90, 90]", p.Latitude)}
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return &ValidationError{fmt.Sprintf("longitude %f out of range [-180, 180]", p.Longitude)}
	}
	return nil
}

// Haversine returns the great-circle distance between two points in meters
func Haversine(a, b Point) float64 {
	phi1 := toRadians(a.Latitude)
	phi2 := toRadians(b.Latitude)
	dPhi := toRadians(b.Latitude - a.Latitude)
	dLambda := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Planar returns the Euclidean distance between two points in raw coordinate
// degrees, not meters. It is only suitable for ranking candidates that are
// all close together (within roughly 1km), where the relative ordering matches
// Haversine. The evacuation router uses it for nearest-safe-zone selection.
func Planar(a, b Point) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidationError represents an invalid coordinate input
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}
