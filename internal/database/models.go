package database

import (
	"time"
)

// UserRecord is the externally-owned user row; the engine reads and writes
// only the location fields.
type UserRecord struct {
	UserID     string
	IP         string
	Lat        float64
	Lon        float64
	Accuracy   *float64
	ObservedAt time.Time
	UpdatedAt  time.Time
}

// ZoneRecord is a row of the administrative zone store, read-only here
type ZoneRecord struct {
	ID           string
	Name         string
	Kind         string
	Lat          float64
	Lon          float64
	RadiusMeters float64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
