package window

import (
	"sync"
	"time"
)

// SlidingLog tracks request timestamps per key and admits a request only
// while fewer than limit timestamps fall inside the window.
//
// # Semantics
//
//  1. Prune all timestamps older than now minus the window.
//  2. If the remaining count is below the limit, append now and allow.
//  3. Otherwise deny and leave the log unchanged - a denied attempt is
//     not counted against the window.
//
// # Thread Safety
//
// SlidingLog is thread-safe using a single sync.Mutex. Two concurrent
// requests for the same key cannot both observe the last free slot.
type SlidingLog struct {
	logs map[uint64][]time.Time
	mu   sync.Mutex

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewSlidingLog creates an empty sliding-log throttle.
func NewSlidingLog() *SlidingLog {
	return &SlidingLog{
		logs: make(map[uint64][]time.Time),
		now:  time.Now,
	}
}

// Allow reports whether a request for key is admitted under the given
// limit and window, recording the request timestamp when it is.
//
// A limit of zero always denies. The window is assumed validated at
// configuration load time.
func (s *SlidingLog) Allow(key uint64, limit int, window time.Duration) bool {
	if limit <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	log := s.pruneLocked(key, cutoff)
	if len(log) >= limit {
		// Deny without mutation; the pruned log is still written back so
		// expired entries do not accumulate.
		s.storeLocked(key, log)
		return false
	}

	s.storeLocked(key, append(log, now))
	return true
}

// Count returns the number of timestamps currently inside the window for key.
func (s *SlidingLog) Count(key uint64, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	log := s.pruneLocked(key, cutoff)
	s.storeLocked(key, log)
	return len(log)
}

// OldestInWindow returns the oldest timestamp inside the window for key and
// whether one exists. Used to derive retry-after hints.
func (s *SlidingLog) OldestInWindow(key uint64, window time.Duration) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	log := s.pruneLocked(key, cutoff)
	s.storeLocked(key, log)
	if len(log) == 0 {
		return time.Time{}, false
	}
	return log[0], true
}

// PruneIdle drops every log whose newest timestamp is older than maxIdle.
// Returns the number of keys removed. Intended to be called periodically
// by a maintenance sweeper.
func (s *SlidingLog) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for key, log := range s.logs {
		if len(log) == 0 || log[len(log)-1].Before(cutoff) {
			delete(s.logs, key)
			removed++
		}
	}
	return removed
}

// Keys returns the number of keys with live state.
func (s *SlidingLog) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// pruneLocked returns the log for key with expired entries removed.
// Timestamps are appended in order, so the first surviving index is found
// by a linear scan from the front. Caller must hold the lock.
func (s *SlidingLog) pruneLocked(key uint64, cutoff time.Time) []time.Time {
	log := s.logs[key]
	i := 0
	for i < len(log) && log[i].Before(cutoff) {
		i++
	}
	return log[i:]
}

// storeLocked writes the log back, discarding empty logs so idle keys are
// garbage-collectable. Caller must hold the lock.
func (s *SlidingLog) storeLocked(key uint64, log []time.Time) {
	if len(log) == 0 {
		delete(s.logs, key)
		return
	}
	s.logs[key] = log
}
