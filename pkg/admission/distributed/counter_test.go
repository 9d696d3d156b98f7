package distributed

import (
	"context"
	"sync"
	"testing"
	"time"
)

func memoryCounterAt(t *testing.T, start time.Time) (*MemoryCounter, func(time.Duration)) {
	t.Helper()

	current := start
	m := NewMemoryCounter()
	m.now = func() time.Time { return current }

	advance := func(d time.Duration) { current = current.Add(d) }
	return m, advance
}

func TestMemoryCounter_WithinLimit(t *testing.T) {
	m, _ := memoryCounterAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		within, err := m.Increment(ctx, "key-a", 5, time.Minute)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if !within {
			t.Fatalf("request %d: expected within limit", i)
		}
	}

	within, err := m.Increment(ctx, "key-a", 5, time.Minute)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if within {
		t.Error("sixth request should exceed limit 5")
	}
}

func TestMemoryCounter_DeniedIncrementStillCounts(t *testing.T) {
	m, _ := memoryCounterAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Fill the bucket, then keep hammering it. The count keeps advancing,
	// so raising the limit mid-bucket does not grant a burst.
	for i := 0; i < 10; i++ {
		m.Increment(ctx, "key-b", 3, time.Minute)
	}

	within, err := m.Increment(ctx, "key-b", 10, time.Minute)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if within {
		t.Error("count should have advanced past 10 despite denials")
	}
}

func TestMemoryCounter_BucketRollsOver(t *testing.T) {
	m, advance := memoryCounterAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	window := time.Minute

	m.Increment(ctx, "key-c", 1, window)
	if within, _ := m.Increment(ctx, "key-c", 1, window); within {
		t.Fatal("bucket should be full")
	}

	// The next aligned bucket starts fresh.
	advance(window)
	if within, _ := m.Increment(ctx, "key-c", 1, window); !within {
		t.Error("new bucket should admit again")
	}
}

func TestMemoryCounter_KeysAreIndependent(t *testing.T) {
	m, _ := memoryCounterAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	m.Increment(ctx, "key-d", 1, time.Minute)
	if within, _ := m.Increment(ctx, "key-d", 1, time.Minute); within {
		t.Fatal("key-d should be full")
	}
	if within, _ := m.Increment(ctx, "key-e", 1, time.Minute); !within {
		t.Error("key-e must not share key-d's bucket")
	}
}

func TestMemoryCounter_ConcurrentExactAdmission(t *testing.T) {
	m := NewMemoryCounter()
	ctx := context.Background()

	const (
		limit      = 10
		goroutines = 100
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			within, err := m.Increment(ctx, "shared", limit, time.Minute)
			if err != nil {
				t.Errorf("Increment: %v", err)
				return
			}
			if within {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Errorf("expected exactly %d admitted, got %d", limit, admitted)
	}
}

func TestBucketFor(t *testing.T) {
	window := time.Minute

	t1 := time.Date(2026, 3, 15, 12, 0, 5, 0, time.UTC)
	t2 := time.Date(2026, 3, 15, 12, 0, 55, 0, time.UTC)
	t3 := time.Date(2026, 3, 15, 12, 1, 5, 0, time.UTC)

	if bucketFor(t1, window) != bucketFor(t2, window) {
		t.Error("timestamps in the same minute should share a bucket")
	}
	if bucketFor(t1, window) == bucketFor(t3, window) {
		t.Error("timestamps in different minutes should not share a bucket")
	}
}

func BenchmarkMemoryCounter_Increment(b *testing.B) {
	m := NewMemoryCounter()
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Increment(ctx, "bench", 1<<30, time.Minute)
	}
}
