package distributed

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter implements Counter with process-local state.
//
// It mirrors the Redis counter's fixed-window semantics, including the TTL
// on buckets, so single-instance deployments and tests exercise the same
// behavior the fleet sees. It provides no cross-instance guarantee.
type MemoryCounter struct {
	buckets map[string]*memoryBucket
	mu      sync.Mutex

	// now is injectable for deterministic tests.
	now func() time.Time
}

type memoryBucket struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryCounter creates an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		buckets: make(map[string]*memoryBucket),
		now:     time.Now,
	}
}

// Increment counts one request for key in the current bucket.
func (m *MemoryCounter) Increment(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sk := bucketKey(key, bucketFor(now, window))

	b, ok := m.buckets[sk]
	if !ok || now.After(b.expiresAt) {
		b = &memoryBucket{expiresAt: now.Add(window)}
		m.buckets[sk] = b
	}

	b.count++

	// Opportunistically drop expired buckets so the map does not grow
	// without bound between sweeps.
	if len(m.buckets) > 1024 {
		m.pruneLocked(now)
	}

	return b.count <= int64(limit), nil
}

// Buckets returns the number of live buckets.
func (m *MemoryCounter) Buckets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.buckets)
}

// pruneLocked removes expired buckets. Caller must hold the lock.
func (m *MemoryCounter) pruneLocked(now time.Time) {
	for key, b := range m.buckets {
		if now.After(b.expiresAt) {
			delete(m.buckets, key)
		}
	}
}
