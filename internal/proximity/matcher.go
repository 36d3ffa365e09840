package proximity

import (
	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/tracker"
	"github.com/smukkama/crowdsafe-server/internal/zone"
)

// RiskMessage is attached to every qualifying match
const RiskMessage = "User is in a high-risk zone!"

// Match is a qualifying (user, zone) pair. A user may hold several matches at
// once when coverage areas overlap; each is an independent alert candidate.
type Match struct {
	User           tracker.UserPosition `json:"user"`
	Zone           zone.Zone            `json:"zone"`
	DistanceMeters float64              `json:"distance_meters"`
	Severity       density.Level        `json:"severity"`
	Message        string               `json:"message"`
}

// Key identifies the logical alert condition behind this match
func (m Match) Key() string {
	return m.User.UserID + ":" + m.Zone.ID
}

// MatchUsers joins the current positions against the zone set. A pair
// qualifies iff the haversine distance is at most the zone radius, boundary
// inclusive. O(U*Z) over the full cross product; both sides stay small
// (connected users times administered zones), so no spatial index is kept.
func MatchUsers(positions []tracker.UserPosition, zones []zone.Zone) []Match {
	var matches []Match

	for _, pos := range positions {
		for _, z := range zones {
			d := geo.Haversine(pos.Position, z.Center)
			if d <= z.RadiusMeters {
				matches = append(matches, Match{
					User:           pos,
					Zone:           z,
					DistanceMeters: d,
					Severity:       severityFor(z.Kind),
					Message:        RiskMessage,
				})
			}
		}
	}

	return matches
}

func severityFor(kind zone.Kind) density.Level {
	if kind == zone.KindHazard {
		return density.LevelDanger
	}
	return density.LevelWarning
}
