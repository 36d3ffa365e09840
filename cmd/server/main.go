package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smukkama/crowdsafe-server/internal/actuator"
	"github.com/smukkama/crowdsafe-server/internal/alerting"
	"github.com/smukkama/crowdsafe-server/internal/api"
	"github.com/smukkama/crowdsafe-server/internal/database"
	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/dispatch"
	"github.com/smukkama/crowdsafe-server/internal/engine"
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/queue"
	"github.com/smukkama/crowdsafe-server/internal/tracker"
	"github.com/smukkama/crowdsafe-server/internal/zone"
	"github.com/smukkama/crowdsafe-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting CrowdSafe Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Load the zone registry; an empty or broken zone set is fatal
	var zoneSource zone.Source
	switch cfg.Zones.Source {
	case "postgres":
		zoneSource = &database.ZoneSource{DB: db}
	default:
		zoneSource = &zone.FileSource{Path: cfg.Zones.MapFile}
	}

	registry, err := zone.NewRegistry(zoneSource)
	if err != nil {
		log.Fatalf("Failed to load zones: %v", err)
	}
	fmt.Printf("Zone registry loaded (%d zones, source=%s)\n", registry.Count(), cfg.Zones.Source)

	// Alert dedup state: Redis when configured, in-process otherwise
	var stateStore alerting.StateStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		stateStore = alerting.NewRedisStore(redisClient, 24*time.Hour)
		fmt.Println("Connected to Redis (alert state)")
	} else {
		stateStore = alerting.NewMemoryStore()
		fmt.Println("Redis not configured, using in-memory alert state")
	}

	// Create Kafka topics
	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicPositions,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicAlerts,
		1, // single partition keeps the alert stream ordered
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	positionProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPositions)
	defer positionProducer.Close()

	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	fmt.Println("Kafka producers initialized")

	// Actuator bridge (siren/beacon controller)
	bridge := actuator.NewBridge(cfg.Actuator.Addr, cfg.Actuator.WriteTimeout)
	bridge.Start()
	defer bridge.Stop()

	// Fan-out: alerts topic always; the hardware actuator when configured
	dispatcher := dispatch.NewDispatcher(dispatch.DefaultDeliveryTimeout)
	dispatcher.Register(dispatch.NewKafkaPublisher(alertProducer))
	if cfg.Actuator.Addr != "" {
		dispatcher.Register(bridge)
	}

	// Create the engine
	eng := engine.NewEngine(engine.Options{
		Registry:   registry,
		StateStore: stateStore,
		Dispatcher: dispatcher,
		Sampler:    density.NewSimulatedSampler(cfg.Engine.DensityStart),
		Positions:  positionProducer,
		Config:     cfg.Engine,
	})

	// Warm the tracker from the store so a restart keeps known positions
	if records, err := db.ListUserPositions(); err != nil {
		fmt.Printf("Warm start skipped: %v\n", err)
	} else {
		positions := make([]tracker.UserPosition, 0, len(records))
		for _, rec := range records {
			pos := tracker.UserPosition{
				UserID:     rec.UserID,
				IP:         rec.IP,
				Position:   geo.Point{Latitude: rec.Lat, Longitude: rec.Lon},
				ObservedAt: rec.ObservedAt,
			}
			if rec.Accuracy != nil {
				pos.Accuracy = *rec.Accuracy
			}
			positions = append(positions, pos)
		}
		eng.Warm(positions)
		fmt.Printf("Warm start: %d positions loaded\n", len(positions))
	}

	eng.Start()
	defer eng.Stop()
	fmt.Println("Engine started")

	// Start the position store writer
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPositions, "position-writer-group")
	defer consumer.Close()

	positionWriter := queue.NewPositionWriter(consumer, db, 100, 5*time.Second)
	if err := positionWriter.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start position writer: %v", err)
	}
	defer positionWriter.Stop()
	fmt.Println("Position store writer started")

	// HTTP API
	apiServer := api.NewServer(eng)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      apiServer,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			state := eng.DensityState()
			fmt.Printf("\n--- Server Statistics ---\n")
			fmt.Printf("Tracked Users: %d\n", eng.TrackedUsers())
			fmt.Printf("Registered Zones: %d\n", registry.Count())
			fmt.Printf("Density: %.0f%% (%s)\n", state.Value, state.Level)
			fmt.Printf("Actuator Connected: %v\n", bridge.Connected())
			fmt.Printf("------------------------\n\n")
		}
	}()

	fmt.Println("\n✓ CrowdSafe Server is running")
	fmt.Printf("✓ HTTP API listening on port %d\n", cfg.HTTP.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("HTTP shutdown error: %v\n", err)
	}
}
