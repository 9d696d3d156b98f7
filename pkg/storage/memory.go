package storage

import (
	"context"
	"sync"
	"time"

	"arbiter-hq/turnstile/pkg/admission/quota"
)

// MemoryBackend implements Backend with in-memory storage.
// All data is lost when the process exits; it exists so the rest of the
// system can treat persistence as always configured.
type MemoryBackend struct {
	records map[uint64]entry
	mu      sync.RWMutex
}

type entry struct {
	record    quota.Record
	updatedAt time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[uint64]entry)}
}

// SaveQuota stores the snapshot, replacing previous records.
func (m *MemoryBackend) SaveQuota(ctx context.Context, records []quota.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.records = make(map[uint64]entry, len(records))
	for _, r := range records {
		m.records[r.Key] = entry{record: r, updatedAt: now}
	}
	return nil
}

// LoadQuota returns all stored records.
func (m *MemoryBackend) LoadQuota(ctx context.Context) ([]quota.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]quota.Record, 0, len(m.records))
	for _, e := range m.records {
		records = append(records, e.record)
	}
	return records, nil
}

// Cleanup removes records last written before olderThan.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, e := range m.records {
		if e.updatedAt.Before(olderThan) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
