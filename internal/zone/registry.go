package zone

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/smukkama/crowdsafe-server/internal/geo"
)

// Kind classifies what a monitored zone represents
type Kind string

const (
	KindCamera Kind = "camera"
	KindExit   Kind = "exit"
	KindSafe   Kind = "safe"
	KindHazard Kind = "hazard"
)

// DefaultRadiusMeters is applied to zones loaded without an explicit radius
const DefaultRadiusMeters = 30.0

// Zone is a monitored geographic area
type Zone struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Kind         Kind      `json:"kind"`
	Center       geo.Point `json:"coordinates"`
	RadiusMeters float64   `json:"radius,omitempty"`
}

// Source supplies the zone set, either from the map file or from the
// administrative store
type Source interface {
	LoadZones() ([]Zone, error)
}

// Registry holds a read-only snapshot of all monitored zones
type Registry struct {
	source Source
	mu     sync.RWMutex
	zones  []Zone
	byKind map[Kind][]Zone
}

// NewRegistry loads the initial zone snapshot from the source. An empty or
// unreadable source is a configuration error: the matcher cannot run against
// an undefined zone set.
func NewRegistry(source Source) (*Registry, error) {
	r := &Registry{source: source}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload replaces the snapshot with a fresh load from the source
func (r *Registry) Reload() error {
	zones, err := r.source.LoadZones()
	if err != nil {
		return &ConfigError{fmt.Sprintf("failed to load zones: %v", err)}
	}
	if len(zones) == 0 {
		return &ConfigError{"zone source contains no zones"}
	}

	byKind := make(map[Kind][]Zone)
	for i := range zones {
		if zones[i].RadiusMeters <= 0 {
			zones[i].RadiusMeters = DefaultRadiusMeters
		}
		if err := geo.Validate(zones[i].Center); err != nil {
			return &ConfigError{fmt.Sprintf("zone %s: %v", zones[i].ID, err)}
		}
		byKind[zones[i].Kind] = append(byKind[zones[i].Kind], zones[i])
	}

	r.mu.Lock()
	r.zones = zones
	r.byKind = byKind
	r.mu.Unlock()

	return nil
}

// All returns a copy of every registered zone
func (r *Registry) All() []Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// ByKind returns a copy of the zones of the given kind
func (r *Registry) ByKind(kind Kind) []Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zones := r.byKind[kind]
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// Count returns the number of registered zones
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// mapFile is the campus map document maintained by the admin dashboard
type mapFile struct {
	CameraZones []Zone `json:"cameraZones"`
	SafeZones   []Zone `json:"safeZones"`
	Exits       []Zone `json:"exits"`
	Hazards     []Zone `json:"hazards"`
}

// FileSource loads zones from the campus map JSON file
type FileSource struct {
	Path string
}

// LoadZones reads and parses the map file
func (f *FileSource) LoadZones() ([]Zone, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	return ParseMapFile(data)
}

// ParseMapFile decodes the campus map document into a flat zone list,
// stamping each section's kind.
func ParseMapFile(data []byte) ([]Zone, error) {
	var m mapFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid map file: %w", err)
	}

	var zones []Zone
	for _, z := range m.CameraZones {
		z.Kind = KindCamera
		zones = append(zones, z)
	}
	for _, z := range m.SafeZones {
		z.Kind = KindSafe
		zones = append(zones, z)
	}
	for _, z := range m.Exits {
		z.Kind = KindExit
		zones = append(zones, z)
	}
	for _, z := range m.Hazards {
		z.Kind = KindHazard
		zones = append(zones, z)
	}

	return zones, nil
}

// StaticSource serves a fixed zone slice, used by tests and embedded setups
type StaticSource struct {
	Zones []Zone
}

// LoadZones returns the fixed zone slice
func (s *StaticSource) LoadZones() ([]Zone, error) {
	return s.Zones, nil
}

// ConfigError represents a fatal zone configuration problem
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}
