package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/observability"
)

func TestCountersAccumulate(t *testing.T) {
	m := observability.New()
	m.Inc("tick")
	m.Inc("tick")
	m.Add("tick", 3)

	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.Counters["tick"])
}

func TestDurationStats(t *testing.T) {
	m := observability.New()
	m.Observe("client.get_run", 10*time.Millisecond)
	m.Observe("client.get_run", 20*time.Millisecond)
	m.Observe("client.get_run", 30*time.Millisecond)

	snap := m.Snapshot()
	stats := snap.Durations["client.get_run"]
	require.Equal(t, 3, stats.Count)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.Equal(t, 30*time.Millisecond, stats.Max)
	assert.Equal(t, 20*time.Millisecond, stats.Mean)
}

func TestTimerRecordsElapsed(t *testing.T) {
	m := observability.New()
	stop := m.Timer("lock.wait")
	time.Sleep(time.Millisecond)
	stop()

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.Durations["lock.wait"].Count)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := observability.New()
	m.Inc("x")
	snap := m.Snapshot()
	m.Inc("x")
	assert.Equal(t, int64(1), snap.Counters["x"])
}
