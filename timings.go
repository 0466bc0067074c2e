package xtransport

import (
	"sync"
	"time"

	"github.com/trickstertwo/xclock"
)

// TimingRecord aggregates handler execution times for one topic. All values
// are integer milliseconds from the injected clock.
type TimingRecord struct {
	// MessageCount is the number of completed handler invocations.
	MessageCount int64
	// ElapsedTime is the running sum of per-invocation elapsed times, so
	// ElapsedTime / MessageCount is the mean.
	ElapsedTime int64
	// MinElapsedTime and MaxElapsedTime are the observed extrema. Zero is
	// both a legitimate elapsed value and the "unset" marker for the
	// minimum; see observe.
	MinElapsedTime int64
	MaxElapsedTime int64
}

// timingTable maps resolved topics to their timing records. Owned by a
// single Core instance, never shared across instances.
type timingTable struct {
	clock xclock.Clock

	mu      sync.Mutex
	records map[string]*TimingRecord
}

func newTimingTable(clock xclock.Clock) *timingTable {
	return &timingTable{
		clock:   clock,
		records: make(map[string]*TimingRecord),
	}
}

// record folds one handler invocation into the topic's record, creating it
// lazily on first use.
func (t *timingTable) record(topic string, start time.Time) error {
	if topic == "" {
		return NewInvalidArgument("topic must not be empty")
	}
	if start.IsZero() {
		return NewInvalidArgument("start timestamp must be set")
	}
	t.observe(topic, t.clock.Since(start).Milliseconds())
	return nil
}

// observe applies an elapsed sample. The minimum uses 0 as its unset
// sentinel, so a genuine zero-millisecond minimum is indistinguishable from
// "not yet set" and the next larger sample overwrites it.
func (t *timingTable) observe(topic string, elapsed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[topic]
	if !ok {
		r = &TimingRecord{}
		t.records[topic] = r
	}
	r.MessageCount++
	r.ElapsedTime += elapsed
	if r.MinElapsedTime == 0 || elapsed < r.MinElapsedTime {
		r.MinElapsedTime = elapsed
	}
	if elapsed > r.MaxElapsedTime {
		r.MaxElapsedTime = elapsed
	}
}

// reset clears the whole table unconditionally.
func (t *timingTable) reset() {
	t.mu.Lock()
	t.records = make(map[string]*TimingRecord)
	t.mu.Unlock()
}

// forget drops a single topic's record; no-op when absent.
func (t *timingTable) forget(topic string) {
	t.mu.Lock()
	delete(t.records, topic)
	t.mu.Unlock()
}

// snapshot returns a copy of the table safe for callers to inspect.
func (t *timingTable) snapshot() map[string]TimingRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]TimingRecord, len(t.records))
	for topic, r := range t.records {
		out[topic] = *r
	}
	return out
}
