package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/protocol"
)

// Consumer receives published events. Implementations must be safe for
// concurrent delivery.
type Consumer interface {
	Name() string
	Deliver(ctx context.Context, ev protocol.Event) error
}

// DefaultDeliveryTimeout bounds a single consumer delivery so a stalled sink
// cannot hold up the matching loop.
const DefaultDeliveryTimeout = 5 * time.Second

// Dispatcher fans events out to registered consumers. Deliveries run in
// parallel, each under its own timeout; a failing consumer is logged and does
// not affect the others.
type Dispatcher struct {
	mu              sync.RWMutex
	consumers       []Consumer
	deliveryTimeout time.Duration
}

// NewDispatcher creates a dispatcher with no consumers registered
func NewDispatcher(deliveryTimeout time.Duration) *Dispatcher {
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{deliveryTimeout: deliveryTimeout}
}

// Register adds a consumer to the fan-out set
func (d *Dispatcher) Register(c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumers = append(d.consumers, c)
}

// Publish delivers the event to every registered consumer and returns once
// all deliveries have completed or timed out. Per-consumer errors are
// reported on the returned slice, never propagated as a publish failure.
func (d *Dispatcher) Publish(ctx context.Context, ev protocol.Event) []error {
	d.mu.RLock()
	consumers := make([]Consumer, len(d.consumers))
	copy(consumers, d.consumers)
	d.mu.RUnlock()

	errCh := make(chan error, len(consumers))
	var wg sync.WaitGroup

	for _, c := range consumers {
		wg.Add(1)
		go func(c Consumer) {
			defer wg.Done()

			deliveryCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
			defer cancel()

			if err := c.Deliver(deliveryCtx, ev); err != nil {
				fmt.Printf("Delivery to consumer %s failed: %v\n", c.Name(), err)
				errCh <- fmt.Errorf("consumer %s: %w", c.Name(), err)
			}
		}(c)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}

// ConsumerCount returns the number of registered consumers
func (d *Dispatcher) ConsumerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.consumers)
}
