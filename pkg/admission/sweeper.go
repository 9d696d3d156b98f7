package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"arbiter-hq/turnstile/pkg/admission/quota"
	"arbiter-hq/turnstile/pkg/admission/window"
	"arbiter-hq/turnstile/pkg/storage"
)

// SweeperConfig configures the maintenance sweeper.
type SweeperConfig struct {
	// Schedule is a standard cron expression for maintenance runs.
	// Empty disables the sweeper.
	//
	// Common expressions:
	//   - "*/5 * * * *"  - every 5 minutes
	//   - "0 * * * *"    - hourly
	Schedule string

	// IdleWindowTTL is how long a sliding-log key may stay idle before it
	// is dropped. Default: 1 hour.
	IdleWindowTTL time.Duration

	// SnapshotRetention is how long persisted quota records are kept.
	// Default: 48 hours.
	SnapshotRetention time.Duration
}

// Sweeper runs periodic maintenance: it snapshots quota state to the
// storage backend, prunes idle sliding-log keys, and removes stale
// persisted records.
type Sweeper struct {
	config  SweeperConfig
	quota   *quota.Tracker
	window  *window.SlidingLog
	backend storage.Backend
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper over the given collaborators.
// backend may be nil, in which case only in-memory pruning runs.
func NewSweeper(cfg SweeperConfig, q *quota.Tracker, w *window.SlidingLog, backend storage.Backend) *Sweeper {
	if cfg.IdleWindowTTL == 0 {
		cfg.IdleWindowTTL = time.Hour
	}
	if cfg.SnapshotRetention == 0 {
		cfg.SnapshotRetention = 48 * time.Hour
	}

	return &Sweeper{
		config:  cfg,
		quota:   q,
		window:  w,
		backend: backend,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "admission.sweeper"),
	}
}

// Start begins scheduled maintenance. If no schedule is configured the
// sweeper does nothing. The sweeper stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance sweeper started",
		"schedule", s.config.Schedule,
		"idle_window_ttl", s.config.IdleWindowTTL.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one maintenance cycle.
func (s *Sweeper) runSweep(ctx context.Context) {
	pruned := s.window.PruneIdle(s.config.IdleWindowTTL)
	if pruned > 0 {
		s.logger.Debug("pruned idle window keys", "count", pruned)
	}

	if s.backend == nil {
		return
	}

	records := s.quota.Snapshot()
	if err := s.backend.SaveQuota(ctx, records); err != nil {
		s.logger.Error("quota snapshot failed", "error", err)
	} else {
		s.logger.Debug("quota snapshot saved", "records", len(records))
	}

	deleted, err := s.backend.Cleanup(ctx, time.Now().Add(-s.config.SnapshotRetention))
	if err != nil {
		s.logger.Error("snapshot cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Debug("stale snapshot records removed", "count", deleted)
	}
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("maintenance sweeper stopped")
	}
}

// IsRunning returns true if the sweeper is scheduled.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
