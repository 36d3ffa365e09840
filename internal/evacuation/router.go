package evacuation

import (
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/zone"
)

// Plan is a three-point route description for the path renderer: the hazard
// marker, the user's origin, and the chosen safe destination. Plans are
// computed on demand and never persisted; a newer request supersedes them.
type Plan struct {
	UserID         string    `json:"user_id"`
	From           geo.Point `json:"from"`
	HazardPoint    geo.Point `json:"hazard_point"`
	ChosenSafeZone zone.Zone `json:"chosen_safe_zone"`
	DistanceMeters float64   `json:"distance_meters"`
}

// Route selects the nearest safe zone for the user. Ranking uses the planar
// coordinate distance (see geo.Planar): candidates are assumed to be close
// together, where the cheaper metric preserves the haversine ordering. The
// reported DistanceMeters is haversine, so callers still see real meters.
func Route(userID string, from, hazard geo.Point, candidates []zone.Zone) (*Plan, error) {
	if len(candidates) == 0 {
		return nil, ErrNoSafeZone
	}

	best := candidates[0]
	bestDist := geo.Planar(from, best.Center)
	for _, c := range candidates[1:] {
		if d := geo.Planar(from, c.Center); d < bestDist {
			best = c
			bestDist = d
		}
	}

	return &Plan{
		UserID:         userID,
		From:           from,
		HazardPoint:    hazard,
		ChosenSafeZone: best,
		DistanceMeters: geo.Haversine(from, best.Center),
	}, nil
}

// ErrNoSafeZone is returned when no safe-zone candidates exist; a route is
// never fabricated.
var ErrNoSafeZone = &RoutingError{"no safe zone available"}

// RoutingError represents an evacuation routing failure
type RoutingError struct {
	msg string
}

func (e *RoutingError) Error() string {
	return e.msg
}
