package storage

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"arbiter-hq/turnstile/pkg/admission/quota"
)

// backends under test share one suite since both implement Backend.
func testBackends(t *testing.T) map[string]Backend {
	t.Helper()

	sqlite, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite backend: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestBackend_SaveLoadRoundTrip(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			records := []quota.Record{
				{Key: 1, Day: "2026-03-15", Count: 42},
				{Key: 2, Day: "2026-03-15", Count: 7},
				// Keys above the int64 range round-trip through sqlite's
				// signed column.
				{Key: math.MaxUint64, Day: "2026-03-15", Count: 1},
			}

			if err := backend.SaveQuota(ctx, records); err != nil {
				t.Fatalf("SaveQuota: %v", err)
			}

			loaded, err := backend.LoadQuota(ctx)
			if err != nil {
				t.Fatalf("LoadQuota: %v", err)
			}
			if len(loaded) != len(records) {
				t.Fatalf("loaded %d records, want %d", len(loaded), len(records))
			}

			sort.Slice(loaded, func(i, j int) bool { return loaded[i].Count > loaded[j].Count })
			if loaded[0].Key != 1 || loaded[0].Count != 42 {
				t.Errorf("unexpected record: %+v", loaded[0])
			}

			var maxKey quota.Record
			for _, r := range loaded {
				if r.Key == math.MaxUint64 {
					maxKey = r
				}
			}
			if maxKey.Count != 1 {
				t.Errorf("max uint64 key did not round trip: %+v", loaded)
			}
		})
	}
}

func TestBackend_SaveOverwritesExisting(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := backend.SaveQuota(ctx, []quota.Record{{Key: 1, Day: "2026-03-15", Count: 5}}); err != nil {
				t.Fatalf("SaveQuota: %v", err)
			}
			if err := backend.SaveQuota(ctx, []quota.Record{{Key: 1, Day: "2026-03-15", Count: 9}}); err != nil {
				t.Fatalf("SaveQuota: %v", err)
			}

			loaded, err := backend.LoadQuota(ctx)
			if err != nil {
				t.Fatalf("LoadQuota: %v", err)
			}

			var got quota.Record
			for _, r := range loaded {
				if r.Key == 1 {
					got = r
				}
			}
			if got.Count != 9 {
				t.Errorf("Count = %d, want 9 after overwrite", got.Count)
			}
		})
	}
}

func TestBackend_CleanupRemovesStaleRecords(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := backend.SaveQuota(ctx, []quota.Record{
				{Key: 1, Day: "2026-03-15", Count: 5},
				{Key: 2, Day: "2026-03-15", Count: 3},
			}); err != nil {
				t.Fatalf("SaveQuota: %v", err)
			}

			// Everything was just written; a cutoff in the past deletes nothing.
			deleted, err := backend.Cleanup(ctx, time.Now().Add(-time.Hour))
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if deleted != 0 {
				t.Errorf("deleted %d fresh records, want 0", deleted)
			}

			// A cutoff in the future removes them all.
			deleted, err = backend.Cleanup(ctx, time.Now().Add(time.Hour))
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if deleted != 2 {
				t.Errorf("deleted %d records, want 2", deleted)
			}

			loaded, err := backend.LoadQuota(ctx)
			if err != nil {
				t.Fatalf("LoadQuota: %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected empty store after cleanup, got %d records", len(loaded))
			}
		})
	}
}

func TestBackend_LoadEmpty(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := backend.LoadQuota(context.Background())
			if err != nil {
				t.Fatalf("LoadQuota: %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected no records, got %d", len(loaded))
			}
		})
	}
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.db")
	ctx := context.Background()

	backend, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := backend.SaveQuota(ctx, []quota.Record{{Key: 7, Day: "2026-03-15", Count: 11}}); err != nil {
		t.Fatalf("SaveQuota: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadQuota(ctx)
	if err != nil {
		t.Fatalf("LoadQuota: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Key != 7 || loaded[0].Count != 11 {
		t.Errorf("unexpected records after reopen: %+v", loaded)
	}
}

func TestSQLiteBackend_CloseIsIdempotent(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := backend.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSQLiteBackend_EmptyPathRejected(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("expected error for empty path")
	}
}
