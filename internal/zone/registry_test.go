package zone

import (
	"errors"
	"testing"

	"github.com/smukkama/crowdsafe-server/internal/geo"
)

func TestNewRegistry(t *testing.T) {
	source := &StaticSource{Zones: []Zone{
		{ID: "cam-1", Kind: KindCamera, Center: geo.Point{Latitude: 31.7084, Longitude: 76.5274}},
		{ID: "safe-1", Kind: KindSafe, Center: geo.Point{Latitude: 31.7090, Longitude: 76.5280}, RadiusMeters: 50},
	}}

	r, err := NewRegistry(source)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if r.Count() != 2 {
		t.Errorf("Expected 2 zones, got %d", r.Count())
	}

	cameras := r.ByKind(KindCamera)
	if len(cameras) != 1 {
		t.Fatalf("Expected 1 camera zone, got %d", len(cameras))
	}
	if cameras[0].RadiusMeters != DefaultRadiusMeters {
		t.Errorf("Expected default radius %.0f, got %.0f", DefaultRadiusMeters, cameras[0].RadiusMeters)
	}

	safes := r.ByKind(KindSafe)
	if len(safes) != 1 || safes[0].RadiusMeters != 50 {
		t.Error("Explicit radius was not preserved")
	}
}

func TestNewRegistry_EmptySource(t *testing.T) {
	_, err := NewRegistry(&StaticSource{})
	if err == nil {
		t.Fatal("Expected configuration error for empty source")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigError, got %T", err)
	}
}

func TestNewRegistry_InvalidCoordinates(t *testing.T) {
	source := &StaticSource{Zones: []Zone{
		{ID: "bad", Kind: KindCamera, Center: geo.Point{Latitude: 123.0, Longitude: 0}},
	}}

	if _, err := NewRegistry(source); err == nil {
		t.Fatal("Expected configuration error for out-of-range zone center")
	}
}

func TestParseMapFile(t *testing.T) {
	data := []byte(`{
		"cameraZones": [
			{"id": "cam-1", "coordinates": {"latitude": 31.70841, "longitude": 76.52742}}
		],
		"safeZones": [
			{"id": "assembly-a", "name": "Assembly Point A", "coordinates": {"latitude": 31.7092, "longitude": 76.5281}, "radius": 40}
		],
		"exits": [
			{"id": "gate-3", "coordinates": {"latitude": 31.7079, "longitude": 76.5269}}
		]
	}`)

	zones, err := ParseMapFile(data)
	if err != nil {
		t.Fatalf("ParseMapFile failed: %v", err)
	}

	if len(zones) != 3 {
		t.Fatalf("Expected 3 zones, got %d", len(zones))
	}

	kinds := make(map[Kind]int)
	for _, z := range zones {
		kinds[z.Kind]++
	}
	if kinds[KindCamera] != 1 || kinds[KindSafe] != 1 || kinds[KindExit] != 1 {
		t.Errorf("Unexpected kind distribution: %v", kinds)
	}
}

func TestParseMapFile_Malformed(t *testing.T) {
	if _, err := ParseMapFile([]byte("{not json")); err == nil {
		t.Fatal("Expected error for malformed map file")
	}
}

func TestRegistry_Reload(t *testing.T) {
	source := &StaticSource{Zones: []Zone{
		{ID: "cam-1", Kind: KindCamera, Center: geo.Point{Latitude: 31.7084, Longitude: 76.5274}},
	}}

	r, err := NewRegistry(source)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	source.Zones = append(source.Zones, Zone{
		ID: "cam-2", Kind: KindCamera, Center: geo.Point{Latitude: 31.7085, Longitude: 76.5275},
	})

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("Expected 2 zones after reload, got %d", r.Count())
	}
}
