// Package observability holds the in-process metrics registry used by the
// controller and status renderer. There is no push exporter in scope, and
// no command prints a Snapshot; only the tests read one.
package observability

import (
	"sort"
	"sync"
	"time"
)

// Metrics is a small thread-safe registry of counters and durations,
// scoped to tick counts, client-call latency, and lock-wait time.
type Metrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	durations  map[string][]time.Duration
}

// New creates an empty Metrics registry.
func New() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		durations: make(map[string][]time.Duration),
	}
}

// Inc increments a named counter by 1.
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

// Add increments a named counter by delta.
func (m *Metrics) Add(name string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

// Observe records a duration sample under name (e.g. a client call's
// latency, or time spent waiting on the release lock).
func (m *Metrics) Observe(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[name] = append(m.durations[name], d)
}

// Timer starts a duration observation; call the returned func when the
// operation completes.
func (m *Metrics) Timer(name string) func() {
	start := time.Now()
	return func() {
		m.Observe(name, time.Since(start))
	}
}

// Snapshot is a point-in-time, immutable copy of the registry suitable
// for rendering.
type Snapshot struct {
	Counters  map[string]int64
	Durations map[string]DurationStats
}

// DurationStats summarizes observed durations for one metric name.
type DurationStats struct {
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
}

// Snapshot returns a copy of the current registry state.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	durations := make(map[string]DurationStats, len(m.durations))
	for k, samples := range m.durations {
		durations[k] = summarize(samples)
	}

	return Snapshot{Counters: counters, Durations: durations}
}

func summarize(samples []time.Duration) DurationStats {
	if len(samples) == 0 {
		return DurationStats{}
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationStats{
		Count: len(sorted),
		Total: total,
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  total / time.Duration(len(sorted)),
	}
}
