package geo

import (
	"math"
	"testing"
)

func TestHaversine_CampusZone(t *testing.T) {
	// User standing essentially on top of a camera zone center
	user := Point{Latitude: 31.7084, Longitude: 76.5274}
	camera := Point{Latitude: 31.70841, Longitude: 76.52742}

	d := Haversine(user, camera)
	if d < 1.0 || d > 3.0 {
		t.Errorf("Expected roughly 1-3m, got %.2fm", d)
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	p := Point{Latitude: 31.7084, Longitude: 76.5274}
	if d := Haversine(p, p); d != 0 {
		t.Errorf("Expected 0 for identical points, got %f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// One degree of latitude is about 111.19km at the mean radius
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 1, Longitude: 0}

	d := Haversine(a, b)
	expected := EarthRadiusMeters * math.Pi / 180
	if math.Abs(d-expected) > 1.0 {
		t.Errorf("Expected %.2fm, got %.2fm", expected, d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Point{Latitude: 31.7084, Longitude: 76.5274}
	b := Point{Latitude: 31.7120, Longitude: 76.5301}

	if Haversine(a, b) != Haversine(b, a) {
		t.Error("Haversine is not symmetric")
	}
}

func TestPlanar_RankingMatchesHaversine(t *testing.T) {
	// For nearby candidates the planar ranking must agree with haversine
	from := Point{Latitude: 31.7084, Longitude: 76.5274}
	near := Point{Latitude: 31.7086, Longitude: 76.5276}
	far := Point{Latitude: 31.7110, Longitude: 76.5300}

	if Planar(from, near) >= Planar(from, far) {
		t.Error("Planar ranking disagrees with expected ordering")
	}
	if Haversine(from, near) >= Haversine(from, far) {
		t.Error("Haversine ranking disagrees with expected ordering")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"valid", Point{31.7084, 76.5274}, false},
		{"valid extremes", Point{90, 180}, false},
		{"valid negative extremes", Point{-90, -180}, false},
		{"latitude too high", Point{90.1, 0}, true},
		{"latitude too low", Point{-90.1, 0}, true},
		{"longitude too high", Point{0, 180.1}, true},
		{"longitude too low", Point{0, -180.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.point)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.point, err, tt.wantErr)
			}
		})
	}
}
