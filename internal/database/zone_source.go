package database

import (
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/zone"
)

// ZoneSource adapts the administrative zone store to the registry's Source
// interface.
type ZoneSource struct {
	DB *DB
}

// LoadZones reads the active zones from the store
func (s *ZoneSource) LoadZones() ([]zone.Zone, error) {
	records, err := s.DB.ListActiveZones()
	if err != nil {
		return nil, err
	}

	zones := make([]zone.Zone, 0, len(records))
	for _, rec := range records {
		zones = append(zones, zone.Zone{
			ID:           rec.ID,
			Name:         rec.Name,
			Kind:         zone.Kind(rec.Kind),
			Center:       geo.Point{Latitude: rec.Lat, Longitude: rec.Lon},
			RadiusMeters: rec.RadiusMeters,
		})
	}
	return zones, nil
}
