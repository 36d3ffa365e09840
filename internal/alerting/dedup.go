package alerting

import (
	"context"
	"time"
)

// DefaultCooldown is the minimum interval between repeated notifications for
// the same alert condition.
const DefaultCooldown = 15 * time.Second

// DensityKey is the condition key for crowd-density breach alerts
const DensityKey = "density"

// Deduplicator rate-limits notifications per alert condition. The condition
// itself stays active while notifications are suppressed; only delivery is
// throttled. Record is called after a successful dispatch so a failed
// delivery never leaves the condition marked as sent.
type Deduplicator struct {
	store    StateStore
	cooldown time.Duration
	now      func() time.Time
}

// NewDeduplicator creates a deduplicator over the given state store
func NewDeduplicator(store StateStore, cooldown time.Duration) *Deduplicator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Deduplicator{
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// ShouldDispatch reports whether a notification for the condition may be sent
// now: either no state exists yet, or the cooldown since the last successful
// send has elapsed. It does not mutate state.
func (d *Deduplicator) ShouldDispatch(ctx context.Context, key string) (bool, error) {
	state, err := d.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if state == nil {
		return true, nil
	}
	return d.now().Sub(state.LastSentAt) >= d.cooldown, nil
}

// Record marks a successful dispatch for the condition, starting or extending
// its cooldown window. FirstSeenAt is preserved across repeats.
func (d *Deduplicator) Record(ctx context.Context, key string) (*AlertState, error) {
	now := d.now()

	state, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &AlertState{FirstSeenAt: now}
	}
	state.LastSentAt = now
	state.SentCount++

	if err := d.store.Set(ctx, key, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear retires a condition. The next qualifying event for the same key is
// treated as new; the cooldown does not carry across a clear/re-trigger
// cycle.
func (d *Deduplicator) Clear(ctx context.Context, key string) error {
	return d.store.Delete(ctx, key)
}

// Sweep retires every recorded condition that is no longer in the active set
// and returns the cleared keys.
func (d *Deduplicator) Sweep(ctx context.Context, active map[string]bool) ([]string, error) {
	keys, err := d.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	var cleared []string
	for _, key := range keys {
		if active[key] {
			continue
		}
		if err := d.store.Delete(ctx, key); err != nil {
			return cleared, err
		}
		cleared = append(cleared, key)
	}
	return cleared, nil
}
