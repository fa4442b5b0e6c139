package loadtest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry aggregates response times per stat name. Request entries and
// per-issue entries share the same registry, the way the original harness
// reported both through one stats table.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	failures  int
	durations []time.Duration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) Add(name string, d time.Duration) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	e.durations = append(e.durations, d)
	r.mu.Unlock()
}

func (r *Registry) AddFailure(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	e.failures++
	r.mu.Unlock()
}

// Stat is a computed summary for one entry.
type Stat struct {
	Name     string
	Count    int
	Failures int
	Avg      time.Duration
	Median   time.Duration
	P99      time.Duration
}

// Snapshot computes summaries for all entries, sorted by name.
func (r *Registry) Snapshot() []Stat {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]Stat, 0, len(r.entries))
	for name, e := range r.entries {
		s := Stat{Name: name, Count: len(e.durations), Failures: e.failures}
		if len(e.durations) > 0 {
			sorted := make([]time.Duration, len(e.durations))
			copy(sorted, e.durations)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			var total time.Duration
			for _, d := range sorted {
				total += d
			}
			s.Avg = total / time.Duration(len(sorted))
			s.Median = percentile(sorted, 0.50)
			s.P99 = percentile(sorted, 0.99)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// percentile expects a sorted slice and p in (0, 1].
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted))*p+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Report logs one summary line per entry with samples.
func (r *Registry) Report(logger *zap.Logger) {
	for _, s := range r.Snapshot() {
		if s.Count == 0 {
			continue
		}
		logger.Info(fmt.Sprintf(
			"Custom Report - %s | Avg Response Time: %.1f ms | Median Response Time: %.1f ms | 99%% Response Time: %.1f ms",
			s.Name, ms(s.Avg), ms(s.Median), ms(s.P99)))
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
