package alerting

import (
	"context"
	"testing"
	"time"
)

func newTestDeduplicator(cooldown time.Duration) (*Deduplicator, *time.Time) {
	d := NewDeduplicator(NewMemoryStore(), cooldown)
	now := time.Now()
	d.now = func() time.Time { return now }
	return d, &now
}

func TestDeduplicator_FirstDispatchAllowed(t *testing.T) {
	d, _ := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	ok, err := d.ShouldDispatch(ctx, "user-1:cam-1")
	if err != nil {
		t.Fatalf("ShouldDispatch failed: %v", err)
	}
	if !ok {
		t.Error("First dispatch for a new condition must be allowed")
	}
}

func TestDeduplicator_SuppressedWithinCooldown(t *testing.T) {
	d, now := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	if _, err := d.Record(ctx, "user-1:cam-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	*now = now.Add(10 * time.Second)
	ok, _ := d.ShouldDispatch(ctx, "user-1:cam-1")
	if ok {
		t.Error("Dispatch within the cooldown window must be suppressed")
	}
}

func TestDeduplicator_AllowedAfterCooldown(t *testing.T) {
	d, now := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	d.Record(ctx, "user-1:cam-1")

	*now = now.Add(15 * time.Second)
	ok, _ := d.ShouldDispatch(ctx, "user-1:cam-1")
	if !ok {
		t.Error("Dispatch must be allowed once the cooldown has elapsed")
	}
}

func TestDeduplicator_RecordPreservesFirstSeen(t *testing.T) {
	d, now := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	first, _ := d.Record(ctx, "user-1:cam-1")

	*now = now.Add(20 * time.Second)
	second, _ := d.Record(ctx, "user-1:cam-1")

	if !second.FirstSeenAt.Equal(first.FirstSeenAt) {
		t.Error("FirstSeenAt changed across repeated dispatches")
	}
	if second.SentCount != 2 {
		t.Errorf("Expected SentCount 2, got %d", second.SentCount)
	}
	if !second.LastSentAt.After(first.LastSentAt) {
		t.Error("LastSentAt was not advanced")
	}
}

func TestDeduplicator_ClearResetsCooldown(t *testing.T) {
	d, now := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	d.Record(ctx, "user-1:cam-1")

	// Condition clears, then re-triggers well inside the old cooldown window
	if err := d.Clear(ctx, "user-1:cam-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	*now = now.Add(2 * time.Second)
	ok, _ := d.ShouldDispatch(ctx, "user-1:cam-1")
	if !ok {
		t.Error("Cooldown must not carry across a clear/re-trigger cycle")
	}
}

func TestDeduplicator_ShouldDispatchDoesNotMutate(t *testing.T) {
	d, _ := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	d.ShouldDispatch(ctx, "user-1:cam-1")

	// Delivery failed, nothing recorded: the next check must still allow it
	ok, _ := d.ShouldDispatch(ctx, "user-1:cam-1")
	if !ok {
		t.Error("A checked-but-unrecorded condition must remain dispatchable")
	}
}

func TestDeduplicator_Sweep(t *testing.T) {
	d, _ := newTestDeduplicator(15 * time.Second)
	ctx := context.Background()

	d.Record(ctx, "user-1:cam-1")
	d.Record(ctx, "user-2:cam-1")
	d.Record(ctx, DensityKey)

	// user-2 left the zone; density breach persists
	cleared, err := d.Sweep(ctx, map[string]bool{
		"user-1:cam-1": true,
		DensityKey:     true,
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(cleared) != 1 || cleared[0] != "user-2:cam-1" {
		t.Errorf("Expected [user-2:cam-1] cleared, got %v", cleared)
	}

	state, _ := d.store.Get(ctx, "user-1:cam-1")
	if state == nil {
		t.Error("Active condition was swept away")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	state, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state != nil {
		t.Error("Expected nil state for missing key")
	}
}
