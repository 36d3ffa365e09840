package actuator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/protocol"
)

// Bridge maintains a best-effort TCP link to the physical alert actuator
// (siren/beacon controller). Payloads are short text lines with a trailing
// newline; the exact device protocol is a placeholder. A supervised dial
// loop keeps reconnecting in the background so a dead link never blocks the
// engine: Send fails fast when disconnected.
type Bridge struct {
	addr         string
	writeTimeout time.Duration
	redialDelay  time.Duration

	mu      sync.Mutex
	conn    net.Conn
	stopCh  chan struct{}
	stopped bool
}

// NewBridge creates a bridge for the given actuator address. An empty
// address leaves the bridge permanently disconnected (disabled).
func NewBridge(addr string, writeTimeout time.Duration) *Bridge {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Bridge{
		addr:         addr,
		writeTimeout: writeTimeout,
		redialDelay:  5 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the supervised connect loop
func (b *Bridge) Start() {
	if b.addr == "" {
		fmt.Println("Actuator bridge disabled (no address configured)")
		return
	}
	go b.connectLoop()
}

// Stop closes the link and stops reconnecting
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.stopped = true
	close(b.stopCh)
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Connected reports whether the actuator link is currently up
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) connectLoop() {
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		conn, err := net.Dial("tcp", b.addr)
		if err != nil {
			fmt.Printf("Actuator dial failed: %v\n", err)
			select {
			case <-time.After(b.redialDelay):
				continue
			case <-b.stopCh:
				return
			}
		}

		b.setConn(conn)
		fmt.Printf("Actuator link up: %s\n", conn.RemoteAddr())

		// Block on reads so a peer close is noticed promptly; the device
		// never sends application data.
		buf := make([]byte, 64)
		for {
			if _, err := conn.Read(buf); err != nil {
				break
			}
		}

		b.clearConn(conn)
		fmt.Println("Actuator link down, reconnecting...")

		select {
		case <-time.After(b.redialDelay):
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bridge) setConn(c net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = c
}

func (b *Bridge) clearConn(c net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == c {
		b.conn.Close()
		b.conn = nil
	}
}

// SendLine writes one payload line with the trailing delimiter, bounded by
// the write timeout and the context deadline
func (b *Bridge) SendLine(ctx context.Context, line string) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(b.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		b.clearConn(conn)
		return fmt.Errorf("actuator write failed: %w", err)
	}
	return nil
}

// Name identifies the bridge in dispatcher error reports
func (b *Bridge) Name() string {
	return "actuator"
}

// Deliver formats the event as the short severity payload the device expects
// and sends it fire-and-forget
func (b *Bridge) Deliver(ctx context.Context, ev protocol.Event) error {
	switch e := ev.(type) {
	case *protocol.DensityEvent:
		return b.SendLine(ctx, fmt.Sprintf("DENSITY|%s|%.0f", e.Level, e.Value))
	case *protocol.AlertEvent:
		if e.Type != protocol.AlertTypeTriggered {
			return nil
		}
		return b.SendLine(ctx, fmt.Sprintf("ALERT|%s|%s", e.Severity, e.ZoneID))
	default:
		return fmt.Errorf("unknown event type: %T", ev)
	}
}

// ErrNotConnected is returned when the actuator link is down; delivery is
// best-effort and the dispatcher just logs it.
var ErrNotConnected = &LinkError{"actuator link not connected"}

// LinkError represents an actuator link failure
type LinkError struct {
	msg string
}

func (e *LinkError) Error() string {
	return e.msg
}
