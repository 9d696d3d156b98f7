package quota

import (
	"sync"
	"testing"
	"time"
)

func trackerAt(t *testing.T, start time.Time) (*Tracker, func(time.Time)) {
	t.Helper()

	current := start
	tr := NewTracker()
	tr.now = func() time.Time { return current }

	setNow := func(ts time.Time) { current = ts }
	return tr, setNow
}

func TestTracker_ConsumeUpToLimit(t *testing.T) {
	tr, _ := trackerAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	const key = uint64(1)
	limit := 5

	for i := 0; i < limit; i++ {
		if !tr.Consume(key, limit) {
			t.Fatalf("request %d: expected allow", i)
		}
	}
	if tr.Consume(key, limit) {
		t.Fatal("expected deny once quota is spent")
	}
	if got := tr.Remaining(key, limit); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestTracker_DeniedConsumeDoesNotMutate(t *testing.T) {
	tr, _ := trackerAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	const key = uint64(2)
	tr.Consume(key, 1)

	for i := 0; i < 10; i++ {
		tr.Consume(key, 1)
	}

	records := tr.Snapshot()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Count != 1 {
		t.Errorf("denied attempts must not increment, count = %d", records[0].Count)
	}
}

func TestTracker_UTCMidnightReset(t *testing.T) {
	tr, setNow := trackerAt(t, time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC))

	const key = uint64(3)
	limit := 2

	// Spend the quota just before midnight.
	tr.Consume(key, limit)
	tr.Consume(key, limit)
	if tr.Consume(key, limit) {
		t.Fatal("quota should be spent at 23:59:59")
	}

	// Two seconds later it is a new UTC day.
	setNow(time.Date(2026, 3, 16, 0, 0, 1, 0, time.UTC))
	if !tr.Consume(key, limit) {
		t.Fatal("quota should reset at UTC midnight")
	}
	if got := tr.Remaining(key, limit); got != 1 {
		t.Errorf("Remaining after reset = %d, want 1", got)
	}
}

func TestTracker_ResetUsesUTCNotLocal(t *testing.T) {
	// 23:30 UTC on the 15th, expressed in a zone where it is already the
	// 16th. The period key must follow UTC.
	est := time.FixedZone("UTC+2", 2*60*60)
	tr, setNow := trackerAt(t, time.Date(2026, 3, 16, 1, 30, 0, 0, est))

	const key = uint64(4)
	tr.Consume(key, 1)
	if tr.Consume(key, 1) {
		t.Fatal("quota should be spent")
	}

	// Half an hour later it is still March 15 in UTC; no reset.
	setNow(time.Date(2026, 3, 16, 1, 59, 0, 0, est))
	if tr.Consume(key, 1) {
		t.Fatal("quota must not reset before UTC midnight")
	}

	// Past 00:00 UTC the counter rolls over.
	setNow(time.Date(2026, 3, 16, 2, 1, 0, 0, est))
	if !tr.Consume(key, 1) {
		t.Fatal("quota should reset after UTC midnight")
	}
}

func TestTracker_ZeroLimitMeansNoQuota(t *testing.T) {
	tr, _ := trackerAt(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	const key = uint64(5)
	for i := 0; i < 1000; i++ {
		if !tr.Consume(key, 0) {
			t.Fatalf("request %d: no quota configured, expected allow", i)
		}
	}
	if tr.Keys() != 0 {
		t.Errorf("unlimited consumption must not record state, got %d keys", tr.Keys())
	}
	if got := tr.Remaining(key, 0); got != -1 {
		t.Errorf("Remaining with no quota = %d, want -1", got)
	}
}

func TestTracker_NextReset(t *testing.T) {
	tr, _ := trackerAt(t, time.Date(2026, 3, 15, 18, 45, 12, 0, time.UTC))

	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if got := tr.NextReset(); !got.Equal(want) {
		t.Errorf("NextReset = %v, want %v", got, want)
	}
}

func TestTracker_SnapshotRestoreRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	tr, _ := trackerAt(t, now)

	tr.Consume(1, 100)
	tr.Consume(1, 100)
	tr.Consume(2, 100)

	records := tr.Snapshot()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	restored, _ := trackerAt(t, now)
	restored.Restore(records)

	if got := restored.Remaining(1, 100); got != 98 {
		t.Errorf("key 1 Remaining = %d, want 98", got)
	}
	if got := restored.Remaining(2, 100); got != 99 {
		t.Errorf("key 2 Remaining = %d, want 99", got)
	}
}

func TestTracker_RestoreIgnoresPastDays(t *testing.T) {
	tr, _ := trackerAt(t, time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC))

	tr.Restore([]Record{
		{Key: 1, Day: "2026-03-15", Count: 99},
		{Key: 2, Day: "2026-03-16", Count: 3},
	})

	if got := tr.Remaining(1, 100); got != 100 {
		t.Errorf("stale record must be ignored, Remaining = %d, want 100", got)
	}
	if got := tr.Remaining(2, 100); got != 97 {
		t.Errorf("current-day record should restore, Remaining = %d, want 97", got)
	}
}

func TestTracker_ConcurrentConsume(t *testing.T) {
	tr := NewTracker()

	const (
		key        = uint64(77)
		limit      = 50
		goroutines = 200
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Consume(key, limit) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Errorf("expected exactly %d admitted, got %d", limit, allowed)
	}
}

func BenchmarkTracker_Consume(b *testing.B) {
	tr := NewTracker()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tr.Consume(uint64(i%128), 1<<30)
	}
}
