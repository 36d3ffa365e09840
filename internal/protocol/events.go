package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/geo"
)

// Alert event types
const (
	AlertTypeTriggered = "ALERT_TRIGGERED"
	AlertTypeCleared   = "ALERT_CLEARED"
)

// PositionEvent is the ingestion record published to the positions topic and
// batch-written to the user store.
type PositionEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	IP         string    `json:"ip"`
	Position   geo.Point `json:"position"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	ReceivedAt time.Time `json:"received_at"`
}

// AlertEvent is published when a proximity alert is dispatched or cleared
type AlertEvent struct {
	Type           string        `json:"type"` // ALERT_TRIGGERED, ALERT_CLEARED
	UserID         string        `json:"user_id"`
	UserIP         string        `json:"user_ip,omitempty"`
	ZoneID         string        `json:"zone_id"`
	ZoneKind       string        `json:"zone_kind,omitempty"`
	DistanceMeters float64       `json:"distance_meters,omitempty"`
	Severity       density.Level `json:"severity"`
	Message        string        `json:"message,omitempty"`
	FirstSeenAt    time.Time     `json:"first_seen_at,omitempty"`
	SentAt         time.Time     `json:"sent_at"`
}

// Key returns the Kafka partition key for the alert, matching the dedup
// condition key
func (e *AlertEvent) Key() string {
	return e.UserID + ":" + e.ZoneID
}

// DensityEvent is published when the crowd-density level breaches a threshold
type DensityEvent struct {
	Level     density.Level `json:"level"`
	Value     float64       `json:"value"`
	SampledAt time.Time     `json:"sampled_at"`
	SentAt    time.Time     `json:"sent_at"`
}

// Event is anything the dispatcher fans out to consumers
type Event interface {
	eventMarker()
}

func (*AlertEvent) eventMarker()   {}
func (*DensityEvent) eventMarker() {}

// EncodePositionEvent encodes a PositionEvent to JSON
func EncodePositionEvent(ev *PositionEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodePositionEvent decodes JSON to a PositionEvent
func DecodePositionEvent(data []byte) (*PositionEvent, error) {
	var ev PositionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid position event: %w", err)
	}
	if ev.UserID == "" {
		return nil, fmt.Errorf("position event missing user_id")
	}
	return &ev, nil
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(ev *AlertEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeAlertEvent decodes JSON to an AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var ev AlertEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid alert event: %w", err)
	}
	return &ev, nil
}

// EncodeDensityEvent encodes a DensityEvent to JSON
func EncodeDensityEvent(ev *DensityEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeDensityEvent decodes JSON to a DensityEvent
func DecodeDensityEvent(data []byte) (*DensityEvent, error) {
	var ev DensityEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid density event: %w", err)
	}
	return &ev, nil
}
