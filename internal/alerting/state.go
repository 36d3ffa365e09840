package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertState tracks one active alert condition, keyed by "user:zone" for
// proximity alerts or "density" for the density breach.
type AlertState struct {
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSentAt  time.Time `json:"last_sent_at"`
	SentCount   int       `json:"sent_count"`
}

// StateStore persists active alert conditions. Get returns (nil, nil) when no
// state exists for the key.
type StateStore interface {
	Get(ctx context.Context, key string) (*AlertState, error)
	Set(ctx context.Context, key string, state *AlertState) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

const redisKeyPrefix = "alert_state:"

// RedisStore keeps alert states in Redis so they survive restarts and are
// shared when more than one engine instance runs.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed state store. Entries expire after ttl
// to auto-clean conditions orphaned by a crash.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redisClient, ttl: ttl}
}

// Get retrieves the alert state for a condition key
func (s *RedisStore) Get(ctx context.Context, key string) (*AlertState, error) {
	data, err := s.redis.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state AlertState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// Set saves the alert state for a condition key
func (s *RedisStore) Set(ctx context.Context, key string, state *AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redis.Set(ctx, redisKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}

	return nil
}

// Delete removes the alert state, retiring the condition
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.redis.Del(ctx, redisKeyPrefix+key).Err()
}

// Keys lists every active condition key
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	raw, err := s.redis.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, redisKeyPrefix))
	}
	return keys, nil
}

// MemoryStore is an in-process state store for tests and Redis-less
// deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]AlertState
}

// NewMemoryStore creates an empty in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]AlertState)}
}

// Get retrieves the alert state for a condition key
func (s *MemoryStore) Get(ctx context.Context, key string) (*AlertState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

// Set saves the alert state for a condition key
func (s *MemoryStore) Set(ctx context.Context, key string, state *AlertState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = *state
	return nil
}

// Delete removes the alert state
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

// Keys lists every active condition key
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.states))
	for k := range s.states {
		keys = append(keys, k)
	}
	return keys, nil
}
