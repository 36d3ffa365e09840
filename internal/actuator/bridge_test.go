package actuator

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/protocol"
)

func acceptOne(t *testing.T, ln net.Listener, lines chan<- string) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
}

func waitConnected(t *testing.T, b *Bridge) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !b.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("Bridge never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBridge_SendDensityPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	acceptOne(t, ln, lines)

	b := NewBridge(ln.Addr().String(), time.Second)
	b.Start()
	defer b.Stop()
	waitConnected(t, b)

	ev := &protocol.DensityEvent{Level: density.LevelDanger, Value: 87}
	if err := b.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	select {
	case line := <-lines:
		if line != "DENSITY|danger|87" {
			t.Errorf("Unexpected payload: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Payload never reached the actuator")
	}
}

func TestBridge_AlertPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	acceptOne(t, ln, lines)

	b := NewBridge(ln.Addr().String(), time.Second)
	b.Start()
	defer b.Stop()
	waitConnected(t, b)

	ev := &protocol.AlertEvent{
		Type:     protocol.AlertTypeTriggered,
		Severity: density.LevelWarning,
		ZoneID:   "cam-1",
	}
	if err := b.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	select {
	case line := <-lines:
		if line != "ALERT|warning|cam-1" {
			t.Errorf("Unexpected payload: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Payload never reached the actuator")
	}
}

func TestBridge_ClearedAlertsNotForwarded(t *testing.T) {
	b := NewBridge("", time.Second)

	ev := &protocol.AlertEvent{Type: protocol.AlertTypeCleared, ZoneID: "cam-1"}
	if err := b.Deliver(context.Background(), ev); err != nil {
		t.Errorf("Cleared alerts should be dropped silently, got %v", err)
	}
}

func TestBridge_SendWhileDisconnected(t *testing.T) {
	b := NewBridge("", time.Second)
	b.Start()
	defer b.Stop()

	err := b.SendLine(context.Background(), "DENSITY|normal|40")
	if err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}
