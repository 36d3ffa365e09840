package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/smukkama/crowdsafe-server/internal/database"
	"github.com/smukkama/crowdsafe-server/internal/protocol"
)

// PositionWriter consumes position events from Kafka and batch-upserts the
// latest position per user into the external user store. Ingestion stays
// non-blocking; the store is eventually consistent with the in-memory table.
type PositionWriter struct {
	consumer      *Consumer
	db            *database.DB
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewPositionWriter creates a new position writer
func NewPositionWriter(consumer *Consumer, db *database.DB, batchSize int, flushInterval time.Duration) *PositionWriter {
	return &PositionWriter{
		consumer:      consumer,
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to the store
func (pw *PositionWriter) Start(ctx context.Context) error {
	pw.wg.Add(1)
	go pw.run(ctx)
	return nil
}

// Stop stops the writer gracefully, flushing the pending batch
func (pw *PositionWriter) Stop() {
	close(pw.stopCh)
	pw.wg.Wait()
}

func (pw *PositionWriter) run(ctx context.Context) {
	defer pw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(pw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := pw.consumer.Consume(ctx)
			if err != nil {
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			msgChan <- msg
		}
	}()

	for {
		select {
		case <-pw.stopCh:
			if len(batch) > 0 {
				pw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			if len(batch) > 0 {
				pw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			if len(batch) >= pw.batchSize {
				pw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (pw *PositionWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	// Collapse to the newest event per user before hitting the store
	latest := make(map[string]*protocol.PositionEvent)
	for _, msg := range batch {
		ev, err := protocol.DecodePositionEvent(msg.Value)
		if err != nil {
			fmt.Printf("Failed to decode position event: %v\n", err)
			continue
		}
		if cur, ok := latest[ev.UserID]; !ok || ev.ObservedAt.After(cur.ObservedAt) {
			latest[ev.UserID] = ev
		}
	}

	successCount := 0
	for _, ev := range latest {
		rec := &database.UserRecord{
			UserID:     ev.UserID,
			IP:         ev.IP,
			Lat:        ev.Position.Latitude,
			Lon:        ev.Position.Longitude,
			ObservedAt: ev.ObservedAt,
		}
		if ev.Accuracy > 0 {
			accuracy := ev.Accuracy
			rec.Accuracy = &accuracy
		}

		if err := pw.db.UpsertUserPosition(rec); err != nil {
			fmt.Printf("Failed to upsert position for %s: %v\n", ev.UserID, err)
			continue
		}
		successCount++
	}

	// Commit every consumed offset; the upsert guard keeps replays harmless
	for _, msg := range batch {
		if err := pw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed %d position updates (%d events) to store\n", successCount, len(batch))
}
