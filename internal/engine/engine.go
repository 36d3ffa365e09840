package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smukkama/crowdsafe-server/internal/alerting"
	"github.com/smukkama/crowdsafe-server/internal/density"
	"github.com/smukkama/crowdsafe-server/internal/dispatch"
	"github.com/smukkama/crowdsafe-server/internal/evacuation"
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/protocol"
	"github.com/smukkama/crowdsafe-server/internal/proximity"
	"github.com/smukkama/crowdsafe-server/internal/schedule"
	"github.com/smukkama/crowdsafe-server/internal/tracker"
	"github.com/smukkama/crowdsafe-server/internal/zone"
	"github.com/smukkama/crowdsafe-server/pkg/config"
)

// PositionPublisher forwards accepted position reports to the positions
// topic; the batch writer persists them to the external user store.
type PositionPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Options wires the engine's collaborators
type Options struct {
	Registry   *zone.Registry
	StateStore alerting.StateStore
	Dispatcher *dispatch.Dispatcher
	Sampler    density.Sampler
	Positions  PositionPublisher // optional
	Config     config.EngineConfig
}

// Engine owns the live state of the alerting core: the current-position
// table, the active alert conditions, and the latest density classification.
// It runs the periodic evaluation and density loops and serves the pull
// queries the route layer exposes.
type Engine struct {
	registry   *zone.Registry
	tracker    *tracker.Tracker
	dedup      *alerting.Deduplicator
	dispatcher *dispatch.Dispatcher
	sampler    density.Sampler
	positions  PositionPublisher
	scheduler  *schedule.Scheduler
	cfg        config.EngineConfig

	densityMu sync.RWMutex
	density   density.State

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEngine creates an engine; call Start to launch the loops
func NewEngine(opts Options) *Engine {
	cfg := opts.Config
	if cfg.MatchInterval <= 0 {
		cfg.MatchInterval = 5 * time.Second
	}
	if cfg.DensityInterval <= 0 {
		cfg.DensityInterval = 3 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * time.Minute
	}

	return &Engine{
		registry:   opts.Registry,
		tracker:    tracker.NewTracker(),
		dedup:      alerting.NewDeduplicator(opts.StateStore, cfg.AlertCooldown),
		dispatcher: opts.Dispatcher,
		sampler:    opts.Sampler,
		positions:  opts.Positions,
		scheduler:  schedule.NewScheduler(),
		cfg:        cfg,
		density:    density.State{Level: density.LevelNormal},
		stopCh:     make(chan struct{}),
	}
}

// Start launches the evaluation and density loops
func (e *Engine) Start() {
	e.scheduler.Start()

	e.wg.Add(1)
	go e.evaluateLoop()

	if e.sampler != nil {
		e.wg.Add(1)
		go e.densityLoop()
	}
}

// Stop shuts the loops down
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	e.wg.Wait()
	e.scheduler.Stop()
}

// Warm seeds the tracker from the external store at startup. Eviction timers
// are scheduled so positions already stale fall out on the first expiry.
func (e *Engine) Warm(positions []tracker.UserPosition) {
	for _, pos := range positions {
		if _, applied := e.tracker.Upsert(pos); applied {
			e.scheduleEviction(pos.UserID, pos.ObservedAt)
		}
	}
}

// ReportInput is one position report from a user device
type ReportInput struct {
	UserID     string
	IP         string
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	ObservedAt time.Time
}

// Report ingests a position report: a non-blocking most-recent-wins upsert.
// The returned record is the authoritative position after the call, which is
// the stored one when the report arrived out of order. The accepted report is
// also published to the positions topic, best-effort.
func (e *Engine) Report(ctx context.Context, in ReportInput) (tracker.UserPosition, error) {
	if in.UserID == "" {
		return tracker.UserPosition{}, &ValidationError{"userId is required"}
	}

	point := geo.Point{Latitude: in.Latitude, Longitude: in.Longitude}
	if err := geo.Validate(point); err != nil {
		return tracker.UserPosition{}, err
	}

	observedAt := in.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	pos := tracker.UserPosition{
		UserID:     in.UserID,
		IP:         in.IP,
		Position:   point,
		Accuracy:   in.Accuracy,
		ObservedAt: observedAt,
	}

	current, applied := e.tracker.Upsert(pos)
	if !applied {
		return current, nil
	}

	e.scheduleEviction(pos.UserID, observedAt)

	if e.positions != nil {
		ev := &protocol.PositionEvent{
			EventID:    uuid.New().String(),
			UserID:     pos.UserID,
			IP:         pos.IP,
			Position:   pos.Position,
			Accuracy:   pos.Accuracy,
			ObservedAt: pos.ObservedAt,
			ReceivedAt: time.Now(),
		}
		data, err := protocol.EncodePositionEvent(ev)
		if err == nil {
			if err := e.positions.Publish(ctx, pos.UserID, data); err != nil {
				fmt.Printf("Failed to publish position event: %v\n", err)
			}
		}
	}

	return pos, nil
}

func (e *Engine) scheduleEviction(userID string, observedAt time.Time) {
	expiry := observedAt.Add(e.cfg.StaleAfter)
	e.scheduler.Schedule("evict:"+userID, expiry, func() {
		// Re-check: a report may have landed after this timer was queued
		if pos, ok := e.tracker.Get(userID); ok {
			if time.Since(pos.ObservedAt) >= e.cfg.StaleAfter {
				e.tracker.Remove(userID)
				fmt.Printf("Evicted stale position for user %s\n", userID)
			}
		}
	})
}

// Alerts recomputes the current qualifying matches from the latest positions
// and the zone registry. Nothing is cached; every call reflects the live
// state.
func (e *Engine) Alerts() []proximity.Match {
	return proximity.MatchUsers(e.tracker.Snapshot(), e.registry.All())
}

// Position returns the latest known position for a user
func (e *Engine) Position(userID string) (tracker.UserPosition, bool) {
	return e.tracker.Get(userID)
}

// TrackedUsers returns the number of users with a current position
func (e *Engine) TrackedUsers() int {
	return e.tracker.Count()
}

// DensityState returns the latest classified density reading
func (e *Engine) DensityState() density.State {
	e.densityMu.RLock()
	defer e.densityMu.RUnlock()
	return e.density
}

// Route computes an evacuation plan for the user: nearest safe zone by
// planar ranking, hazard marker set to the nearest registered hazard zone
// (the user's own position when none is registered).
func (e *Engine) Route(userID string) (*evacuation.Plan, error) {
	pos, ok := e.tracker.Get(userID)
	if !ok {
		return nil, ErrUnknownUser
	}

	hazardPoint := pos.Position
	if hazards := e.registry.ByKind(zone.KindHazard); len(hazards) > 0 {
		nearest := hazards[0]
		best := geo.Planar(pos.Position, nearest.Center)
		for _, h := range hazards[1:] {
			if d := geo.Planar(pos.Position, h.Center); d < best {
				nearest = h
				best = d
			}
		}
		hazardPoint = nearest.Center
	}

	return evacuation.Route(userID, pos.Position, hazardPoint, e.registry.ByKind(zone.KindSafe))
}

// EvaluateOnce runs one pass of the evaluation loop: match, dispatch what
// the cooldown allows, retire conditions that no longer qualify.
func (e *Engine) EvaluateOnce(ctx context.Context) {
	matches := proximity.MatchUsers(e.tracker.Snapshot(), e.registry.All())

	active := make(map[string]bool, len(matches)+1)
	for _, m := range matches {
		active[m.Key()] = true
	}
	// The density condition is cleared by the density loop, never the sweep
	active[alerting.DensityKey] = true

	for _, m := range matches {
		ok, err := e.dedup.ShouldDispatch(ctx, m.Key())
		if err != nil {
			fmt.Printf("Failed to check alert state for %s: %v\n", m.Key(), err)
			continue
		}
		if !ok {
			continue
		}

		ev := &protocol.AlertEvent{
			Type:           protocol.AlertTypeTriggered,
			UserID:         m.User.UserID,
			UserIP:         m.User.IP,
			ZoneID:         m.Zone.ID,
			ZoneKind:       string(m.Zone.Kind),
			DistanceMeters: m.DistanceMeters,
			Severity:       m.Severity,
			Message:        m.Message,
			SentAt:         time.Now(),
		}

		if !e.dispatch(ctx, ev) {
			// Every consumer failed: leave the condition unrecorded so the
			// next pass retries instead of silently swallowing the breach
			continue
		}

		state, err := e.dedup.Record(ctx, m.Key())
		if err != nil {
			fmt.Printf("Failed to record alert state for %s: %v\n", m.Key(), err)
			continue
		}
		fmt.Printf("🚨 ALERT: user %s in zone %s (%.1fm, severity=%s, sent=%d)\n",
			m.User.UserID, m.Zone.ID, m.DistanceMeters, m.Severity, state.SentCount)
	}

	cleared, err := e.dedup.Sweep(ctx, active)
	if err != nil {
		fmt.Printf("Failed to sweep alert states: %v\n", err)
		return
	}

	for _, key := range cleared {
		userID, zoneID, ok := splitConditionKey(key)
		if !ok {
			continue
		}

		fmt.Printf("✅ CLEARED: user %s left zone %s\n", userID, zoneID)
		e.dispatch(ctx, &protocol.AlertEvent{
			Type:   protocol.AlertTypeCleared,
			UserID: userID,
			ZoneID: zoneID,
			SentAt: time.Now(),
		})
	}
}

// SampleDensityOnce runs one pass of the density loop
func (e *Engine) SampleDensityOnce(ctx context.Context) {
	value, err := e.sampler.Sample()
	if err != nil {
		fmt.Printf("Density sample failed: %v\n", err)
		return
	}

	state := density.State{
		Level:     density.Classify(value),
		Value:     value,
		SampledAt: time.Now(),
	}

	e.densityMu.Lock()
	previous := e.density
	e.density = state
	e.densityMu.Unlock()

	if state.Level == density.LevelNormal {
		if previous.Level != density.LevelNormal {
			if err := e.dedup.Clear(ctx, alerting.DensityKey); err != nil {
				fmt.Printf("Failed to clear density state: %v\n", err)
			}
			// Recovery event so subscribers see the level drop
			e.dispatch(ctx, &protocol.DensityEvent{
				Level:     state.Level,
				Value:     state.Value,
				SampledAt: state.SampledAt,
				SentAt:    time.Now(),
			})
		}
		return
	}

	ok, err := e.dedup.ShouldDispatch(ctx, alerting.DensityKey)
	if err != nil {
		fmt.Printf("Failed to check density state: %v\n", err)
		return
	}
	if !ok {
		return
	}

	ev := &protocol.DensityEvent{
		Level:     state.Level,
		Value:     state.Value,
		SampledAt: state.SampledAt,
		SentAt:    time.Now(),
	}
	if !e.dispatch(ctx, ev) {
		return
	}

	if _, err := e.dedup.Record(ctx, alerting.DensityKey); err != nil {
		fmt.Printf("Failed to record density state: %v\n", err)
		return
	}
	fmt.Printf("🚨 DENSITY %s: %.0f%%\n", state.Level, state.Value)
}

// dispatch publishes the event and reports whether at least one consumer
// accepted it (trivially true with zero consumers registered).
func (e *Engine) dispatch(ctx context.Context, ev protocol.Event) bool {
	errs := e.dispatcher.Publish(ctx, ev)
	return len(errs) < e.dispatcher.ConsumerCount() || e.dispatcher.ConsumerCount() == 0
}

func (e *Engine) evaluateLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.MatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.EvaluateOnce(context.Background())
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) densityLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.DensityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.SampleDensityOnce(context.Background())
		case <-e.stopCh:
			return
		}
	}
}

func splitConditionKey(key string) (userID, zoneID string, ok bool) {
	i := strings.Index(key, ":")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// ErrUnknownUser is returned when no position is known for the user
var ErrUnknownUser = &NotFoundError{"no known position for user"}

// NotFoundError represents a missing resource
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string {
	return e.msg
}

// ValidationError represents a rejected ingestion request
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}
