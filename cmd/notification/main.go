package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smukkama/crowdsafe-server/internal/notification"
	"github.com/smukkama/crowdsafe-server/internal/protocol"
	"github.com/smukkama/crowdsafe-server/internal/queue"
	"github.com/smukkama/crowdsafe-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Notification Service...")

	// Create email notifier
	notifier := notification.NewEmailNotifier(&cfg.SMTP)

	// Test SMTP connection (optional, will skip if not configured)
	if err := notifier.TestConnection(); err != nil {
		fmt.Printf("Note: %v (notifications will be logged only)\n", err)
	}

	// Create consumer for the alert stream
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "notification-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	ctx := context.Background()

	fmt.Println("\n✓ Notification Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Start consuming the alert stream. Density events are keyed "density";
	// everything else is a proximity alert keyed "user:zone".
	go func() {
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				log.Printf("Failed to consume message: %v\n", err)
				continue
			}

			var sendErr error
			if string(msg.Key) == "density" {
				ev, err := protocol.DecodeDensityEvent(msg.Value)
				if err != nil {
					log.Printf("Failed to decode density event: %v\n", err)
					consumer.Commit(ctx, msg)
					continue
				}
				sendErr = notifier.SendDensityNotification(ev)
			} else {
				ev, err := protocol.DecodeAlertEvent(msg.Value)
				if err != nil {
					log.Printf("Failed to decode alert event: %v\n", err)
					consumer.Commit(ctx, msg)
					continue
				}
				sendErr = notifier.SendAlertNotification(ev)
			}

			if sendErr != nil {
				log.Printf("Failed to send notification: %v\n", sendErr)
				// Don't commit on error - retry
				continue
			}

			// Commit offset
			if err := consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
