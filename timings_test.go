package xtransport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *timingTable {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c.timings
}

func TestTimings_FirstObservation(t *testing.T) {
	tt := newTestTable(t)

	tt.observe("bob", 12)

	rec := tt.snapshot()["bob"]
	assert.Equal(t, int64(1), rec.MessageCount)
	assert.Equal(t, int64(12), rec.ElapsedTime)
	assert.Equal(t, int64(12), rec.MinElapsedTime)
	assert.Equal(t, int64(12), rec.MaxElapsedTime)
}

func TestTimings_MinMaxAccumulation(t *testing.T) {
	tt := newTestTable(t)

	tt.observe("t", 10)
	tt.observe("t", 5)

	rec := tt.snapshot()["t"]
	assert.Equal(t, int64(2), rec.MessageCount)
	assert.Equal(t, int64(15), rec.ElapsedTime)
	assert.Equal(t, int64(5), rec.MinElapsedTime)
	assert.Equal(t, int64(10), rec.MaxElapsedTime)
}

// A zero elapsed sample doubles as the "unset" marker for the minimum, so a
// later larger sample displaces a legitimate zero minimum. The behavior is
// intentional and must hold.
func TestTimings_ZeroMinimumIsDisplaced(t *testing.T) {
	tt := newTestTable(t)

	tt.observe("t", 0)
	tt.observe("t", 7)

	rec := tt.snapshot()["t"]
	assert.Equal(t, int64(2), rec.MessageCount)
	assert.Equal(t, int64(7), rec.ElapsedTime)
	assert.Equal(t, int64(7), rec.MinElapsedTime, "zero minimum must be overwritten")
	assert.Equal(t, int64(7), rec.MaxElapsedTime)
}

func TestTimings_RecordValidation(t *testing.T) {
	tt := newTestTable(t)

	err := tt.record("", time.Now())
	assert.Equal(t, KindInvalidArgument, KindOf(err))

	err = tt.record("t", time.Time{})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestTimings_RecordUsesClock(t *testing.T) {
	tt := newTestTable(t)

	require.NoError(t, tt.record("t", time.Now()))

	rec := tt.snapshot()["t"]
	assert.Equal(t, int64(1), rec.MessageCount)
	assert.GreaterOrEqual(t, rec.ElapsedTime, int64(0))
}

func TestTimings_ResetClearsWholeTable(t *testing.T) {
	tt := newTestTable(t)

	tt.observe("a", 1)
	tt.observe("b", 2)
	require.Len(t, tt.snapshot(), 2)

	tt.reset()
	assert.Empty(t, tt.snapshot())
}

func TestTimings_ForgetDropsSingleTopic(t *testing.T) {
	tt := newTestTable(t)

	tt.observe("a", 1)
	tt.observe("b", 2)

	tt.forget("a")
	tt.forget("missing") // no-op

	snap := tt.snapshot()
	assert.NotContains(t, snap, "a")
	assert.Contains(t, snap, "b")
}
