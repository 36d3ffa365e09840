package tracker

import (
	"sync"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/geo"
)

// UserPosition is the latest known position report for a user. Only the most
// recent report is authoritative; earlier reports are superseded, not kept.
type UserPosition struct {
	UserID     string    `json:"user_id"`
	IP         string    `json:"ip"`
	Position   geo.Point `json:"position"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Tracker owns the current-position table. It is written by location
// ingestion and read concurrently by the matcher and the evacuation router.
type Tracker struct {
	positions map[string]UserPosition
	mu        sync.RWMutex
}

// NewTracker creates an empty current-position table
func NewTracker() *Tracker {
	return &Tracker{
		positions: make(map[string]UserPosition),
	}
}

// Upsert records a position report, most-recent-wins. A report whose
// ObservedAt is older than the stored one is rejected so late arrivals cannot
// roll a user's position backwards. Returns the authoritative record and
// whether the report was applied.
func (t *Tracker) Upsert(pos UserPosition) (UserPosition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, exists := t.positions[pos.UserID]
	if exists && pos.ObservedAt.Before(current.ObservedAt) {
		return current, false
	}

	t.positions[pos.UserID] = pos
	return pos, true
}

// Get returns the latest position for a user
func (t *Tracker) Get(userID string) (UserPosition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, exists := t.positions[userID]
	return pos, exists
}

// Remove deletes a user's position, e.g. when it has gone stale
func (t *Tracker) Remove(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.positions[userID]; !exists {
		return false
	}
	delete(t.positions, userID)
	return true
}

// Snapshot returns a copy of every current position, safe to iterate while
// ingestion continues
func (t *Tracker) Snapshot() []UserPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]UserPosition, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, pos)
	}
	return out
}

// Stale returns the IDs of users whose last report is older than maxAge
func (t *Tracker) Stale(maxAge time.Duration) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	var stale []string
	for userID, pos := range t.positions {
		if now.Sub(pos.ObservedAt) > maxAge {
			stale = append(stale, userID)
		}
	}
	return stale
}

// Count returns the number of tracked users
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}
