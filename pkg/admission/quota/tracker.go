package quota

import (
	"sync"
	"time"
)

// dayLayout is the period key format, one key per UTC calendar date.
const dayLayout = "2006-01-02"

// state is the stored counter for one key.
type state struct {
	day   string
	count int
}

// Record is the serializable form of one quota entry, used for
// snapshotting to a storage backend.
type Record struct {
	// Key is the window key the count belongs to.
	Key uint64 `json:"key"`

	// Day is the UTC calendar date the count applies to.
	Day string `json:"day"`

	// Count is the number of requests consumed on Day.
	Count int `json:"count"`
}

// Tracker counts requests per key per UTC calendar day.
//
// # Reset Semantics
//
// The period key is the current UTC date. Whenever the stored period key
// differs from today's, the counter is reset before the check, so the
// boundary is exactly UTC midnight. A request at 23:59:59 and one at
// 00:00:01 the next day are accounted to different periods.
//
// # Thread Safety
//
// Tracker is thread-safe using a single sync.Mutex; check and increment
// happen under one critical section so the last quota slot cannot be
// handed out twice.
type Tracker struct {
	states map[uint64]state
	mu     sync.Mutex

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewTracker creates an empty quota tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[uint64]state),
		now:    time.Now,
	}
}

// Consume attempts to charge one request against the daily quota for key.
//
// Returns true and increments the counter if the quota has room. Returns
// false without mutating state when the quota is spent. A dailyLimit of
// zero or below means no quota is configured: the request is allowed
// without mutating state.
func (t *Tracker) Consume(key uint64, dailyLimit int) bool {
	if dailyLimit <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	st, ok := t.states[key]
	if !ok || st.day != today {
		st = state{day: today}
	}

	if st.count >= dailyLimit {
		return false
	}

	st.count++
	t.states[key] = st
	return true
}

// Remaining returns how many requests are left in today's quota for key.
// Returns -1 when no quota is configured.
func (t *Tracker) Remaining(key uint64, dailyLimit int) int {
	if dailyLimit <= 0 {
		return -1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok || st.day != t.today() {
		return dailyLimit
	}
	if st.count >= dailyLimit {
		return 0
	}
	return dailyLimit - st.count
}

// NextReset returns the next UTC midnight, when all quotas roll over.
func (t *Tracker) NextReset() time.Time {
	now := t.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, 1)
}

// Snapshot returns a copy of all live entries for today. Entries from past
// days are dropped rather than exported; they can never affect a decision
// again.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	records := make([]Record, 0, len(t.states))
	for key, st := range t.states {
		if st.day != today {
			delete(t.states, key)
			continue
		}
		records = append(records, Record{Key: key, Day: st.day, Count: st.count})
	}
	return records
}

// Restore loads entries produced by Snapshot, typically after a restart.
// Entries for past days are ignored. Restore overwrites any existing
// counter for the same key.
func (t *Tracker) Restore(records []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	for _, r := range records {
		if r.Day != today {
			continue
		}
		t.states[r.Key] = state{day: r.Day, count: r.Count}
	}
}

// Keys returns the number of keys with live state.
func (t *Tracker) Keys() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(dayLayout)
}
