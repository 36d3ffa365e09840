package evacuation

import (
	"testing"

	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/zone"
)

func TestRoute_SelectsNearest(t *testing.T) {
	from := geo.Point{Latitude: 31.7084, Longitude: 76.5274}
	hazard := geo.Point{Latitude: 31.7085, Longitude: 76.5275}

	// A is 2 coordinate steps away, B is 5
	candidates := []zone.Zone{
		{ID: "safe-b", Kind: zone.KindSafe, Center: geo.Point{Latitude: 31.7084 + 0.005, Longitude: 76.5274}},
		{ID: "safe-a", Kind: zone.KindSafe, Center: geo.Point{Latitude: 31.7084 + 0.002, Longitude: 76.5274}},
	}

	plan, err := Route("user-1", from, hazard, candidates)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	if plan.ChosenSafeZone.ID != "safe-a" {
		t.Errorf("Expected safe-a, got %s", plan.ChosenSafeZone.ID)
	}
	if plan.UserID != "user-1" {
		t.Errorf("Unexpected user: %s", plan.UserID)
	}
	if plan.From != from || plan.HazardPoint != hazard {
		t.Error("Plan does not carry the origin and hazard points")
	}
	if plan.DistanceMeters <= 0 {
		t.Error("Expected a positive haversine distance")
	}
}

func TestRoute_NoCandidates(t *testing.T) {
	from := geo.Point{Latitude: 31.7084, Longitude: 76.5274}

	plan, err := Route("user-1", from, from, nil)
	if err != ErrNoSafeZone {
		t.Errorf("Expected ErrNoSafeZone, got %v", err)
	}
	if plan != nil {
		t.Error("Expected no plan when there are no candidates")
	}
}

func TestRoute_SingleCandidate(t *testing.T) {
	from := geo.Point{Latitude: 31.7084, Longitude: 76.5274}
	candidates := []zone.Zone{
		{ID: "safe-a", Kind: zone.KindSafe, Center: geo.Point{Latitude: 31.7100, Longitude: 76.5280}},
	}

	plan, err := Route("user-1", from, from, candidates)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if plan.ChosenSafeZone.ID != "safe-a" {
		t.Errorf("Expected safe-a, got %s", plan.ChosenSafeZone.ID)
	}
}
