package dispatch

import (
	"context"
	"fmt"

	"github.com/smukkama/crowdsafe-server/internal/protocol"
	"github.com/smukkama/crowdsafe-server/internal/queue"
)

// KafkaPublisher forwards alert and density events to the alerts topic, where
// dashboard subscribers and the notification service consume them.
type KafkaPublisher struct {
	producer *queue.Producer
}

// NewKafkaPublisher wraps a Kafka producer as a dispatcher consumer
func NewKafkaPublisher(producer *queue.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Name identifies the consumer in delivery error reports
func (p *KafkaPublisher) Name() string {
	return "kafka-alerts"
}

// Deliver publishes the event as JSON, keyed so repeats for one condition
// land on one partition
func (p *KafkaPublisher) Deliver(ctx context.Context, ev protocol.Event) error {
	switch e := ev.(type) {
	case *protocol.AlertEvent:
		data, err := protocol.EncodeAlertEvent(e)
		if err != nil {
			return fmt.Errorf("failed to encode alert event: %w", err)
		}
		return p.producer.Publish(ctx, e.Key(), data)

	case *protocol.DensityEvent:
		data, err := protocol.EncodeDensityEvent(e)
		if err != nil {
			return fmt.Errorf("failed to encode density event: %w", err)
		}
		return p.producer.Publish(ctx, "density", data)

	default:
		return fmt.Errorf("unknown event type: %T", ev)
	}
}
