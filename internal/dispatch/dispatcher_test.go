package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/protocol"
)

type recordingConsumer struct {
	name string
	err  error
	mu   sync.Mutex
	got  []protocol.Event
}

func (c *recordingConsumer) Name() string { return c.name }

func (c *recordingConsumer) Deliver(ctx context.Context, ev protocol.Event) error {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
	return c.err
}

func (c *recordingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

type stallingConsumer struct{}

func (c *stallingConsumer) Name() string { return "stalled" }

func (c *stallingConsumer) Deliver(ctx context.Context, ev protocol.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcher_FanOut(t *testing.T) {
	d := NewDispatcher(time.Second)
	a := &recordingConsumer{name: "a"}
	b := &recordingConsumer{name: "b"}
	d.Register(a)
	d.Register(b)

	ev := &protocol.AlertEvent{Type: protocol.AlertTypeTriggered, UserID: "user-1", ZoneID: "cam-1"}
	errs := d.Publish(context.Background(), ev)

	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Error("Event was not delivered to all consumers")
	}
}

func TestDispatcher_ConsumerErrorIsolated(t *testing.T) {
	d := NewDispatcher(time.Second)
	failing := &recordingConsumer{name: "actuator", err: errors.New("link down")}
	healthy := &recordingConsumer{name: "dashboard"}
	d.Register(failing)
	d.Register(healthy)

	ev := &protocol.DensityEvent{Level: density.LevelDanger, Value: 87}
	errs := d.Publish(context.Background(), ev)

	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if healthy.count() != 1 {
		t.Error("Healthy consumer did not receive the event despite another failing")
	}
}

func TestDispatcher_StalledConsumerTimesOut(t *testing.T) {
	d := NewDispatcher(50 * time.Millisecond)
	d.Register(&stallingConsumer{})
	healthy := &recordingConsumer{name: "dashboard"}
	d.Register(healthy)

	start := time.Now()
	errs := d.Publish(context.Background(), &protocol.DensityEvent{Level: density.LevelWarning, Value: 65})

	if time.Since(start) > time.Second {
		t.Error("Publish blocked far beyond the delivery timeout")
	}
	if len(errs) != 1 {
		t.Errorf("Expected the stalled consumer to error, got %v", errs)
	}
	if healthy.count() != 1 {
		t.Error("Healthy consumer was starved by the stalled one")
	}
}

func TestDispatcher_NoConsumers(t *testing.T) {
	d := NewDispatcher(time.Second)

	errs := d.Publish(context.Background(), &protocol.DensityEvent{Level: density.LevelNormal, Value: 40})
	if len(errs) != 0 {
		t.Errorf("Expected no errors with zero consumers, got %v", errs)
	}
}
