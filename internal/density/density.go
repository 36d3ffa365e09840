package density

import (
	"math/rand"
	"sync"
	"time"
)

// Level is the severity classification of a crowd-density reading
type Level string

const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Fixed classification thresholds, percentage of capacity
const (
	WarningThreshold = 60.0
	DangerThreshold  = 80.0
)

// Classify maps a density percentage to a severity level. Pure and
// stateless: no hysteresis, so a value oscillating around a boundary flips
// levels on every sample. Callers driving physical actuators should debounce
// via the alert cooldown.
func Classify(value float64) Level {
	switch {
	case value > DangerThreshold:
		return LevelDanger
	case value > WarningThreshold:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// State is the latest classified density reading
type State struct {
	Level     Level     `json:"level"`
	Value     float64   `json:"value"`
	SampledAt time.Time `json:"sampled_at"`
}

// Sampler supplies crowd-density percentages. The real feed comes from the
// camera analytics service; SimulatedSampler stands in when it is not wired.
type Sampler interface {
	Sample() (float64, error)
}

// SimulatedSampler produces a bounded random walk, stepping by up to ±3 per
// sample and clamped to [10, 95], mirroring the synthetic dashboard signal.
type SimulatedSampler struct {
	mu      sync.Mutex
	current float64
	rng     *rand.Rand
}

// NewSimulatedSampler starts the walk at the given percentage
func NewSimulatedSampler(start float64) *SimulatedSampler {
	return &SimulatedSampler{
		current: clamp(start),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sample advances the walk and returns the new value
func (s *SimulatedSampler) Sample() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := float64(s.rng.Intn(7) - 3)
	s.current = clamp(s.current + step)
	return s.current, nil
}

func clamp(v float64) float64 {
	if v < 10 {
		return 10
	}
	if v > 95 {
		return 95
	}
	return v
}
