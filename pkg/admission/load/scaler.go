package load

import (
	"log/slog"
	"sync"
	"time"
)

// Config contains thresholds and factors for the step function.
// The zero value is not usable; construct with NewScaler which applies
// defaults.
type Config struct {
	// HighThreshold is the load ratio above which HighFactor applies.
	// Default: 0.9
	HighThreshold float64

	// HighFactor is the scaling factor under heavy load.
	// Default: 0.5
	HighFactor float64

	// ElevatedThreshold is the load ratio above which ElevatedFactor applies.
	// Default: 0.7
	ElevatedThreshold float64

	// ElevatedFactor is the scaling factor under elevated load.
	// Default: 0.7
	ElevatedFactor float64

	// CacheTTL caches the sampled factor briefly to bound /proc reads under
	// high request rates. Zero disables caching and samples on every call.
	CacheTTL time.Duration
}

// Scaler converts host load into a limit scaling factor in (0, 1].
//
// The step function is deliberately memoryless: the factor is recomputed
// per decision and has no hysteresis, so it can oscillate when the load
// ratio sits near a threshold. The factor is monotonically non-increasing
// in the load ratio.
type Scaler struct {
	config  Config
	sampler Sampler
	logger  *slog.Logger

	mu        sync.Mutex
	cached    float64
	cachedAt  time.Time
	lastRatio float64
}

// NewScaler creates a scaler using the given sampler.
// A nil sampler defaults to the /proc-backed ProcSampler.
func NewScaler(config Config, sampler Sampler) *Scaler {
	if config.HighThreshold == 0 {
		config.HighThreshold = 0.9
	}
	if config.HighFactor == 0 {
		config.HighFactor = 0.5
	}
	if config.ElevatedThreshold == 0 {
		config.ElevatedThreshold = 0.7
	}
	if config.ElevatedFactor == 0 {
		config.ElevatedFactor = 0.7
	}
	if sampler == nil {
		sampler = NewProcSampler()
	}

	return &Scaler{
		config:  config,
		sampler: sampler,
		logger:  slog.Default().With("component", "load.scaler"),
	}
}

// Factor returns the current scaling factor in (0, 1].
//
// Sampling failures degrade to a factor of 1.0 so that a broken load
// source never throttles traffic on its own.
func (s *Scaler) Factor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.CacheTTL > 0 && time.Since(s.cachedAt) < s.config.CacheTTL {
		return s.cached
	}

	factor := 1.0
	sample, err := s.sampler.Sample()
	if err != nil {
		s.logger.Warn("load sample failed, scaling disabled", "error", err)
	} else {
		ratio := sample.Ratio()
		s.lastRatio = ratio
		switch {
		case ratio > s.config.HighThreshold:
			factor = s.config.HighFactor
		case ratio > s.config.ElevatedThreshold:
			factor = s.config.ElevatedFactor
		}
	}

	s.cached = factor
	s.cachedAt = time.Now()
	return factor
}

// AdjustLimit scales baseLimit by the current factor, flooring the result
// but never below 1 for a positive base limit.
func (s *Scaler) AdjustLimit(baseLimit int) int {
	return Apply(s.Factor(), baseLimit)
}

// Apply scales baseLimit by factor, flooring the result but never below 1
// for a positive base limit. Callers that already sampled a factor use
// this directly to avoid sampling twice in one decision.
func Apply(factor float64, baseLimit int) int {
	if baseLimit <= 0 {
		return baseLimit
	}

	adjusted := int(float64(baseLimit) * factor)
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

// LastRatio returns the most recently sampled load ratio, for logging and
// metrics.
func (s *Scaler) LastRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRatio
}
