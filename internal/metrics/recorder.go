/*
Package metrics records named operation durations in a capacity bounded
buffer, computes summary statistics over them and exports them to
Prometheus. Measure wraps an operation and records exactly one metric for it.
*/
package metrics

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/ring"
)

// DefaultCapacity is the metric buffer size used when none is configured.
const DefaultCapacity = 500

// PerformanceMetric is one timed observation.
type PerformanceMetric struct {
	Name       string         `json:"name"`
	DurationMs float64        `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Filter selects metrics by name. An empty name matches everything.
type Filter struct {
	Name string
}

// Stats summarises the held metrics of one name.
type Stats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}

// Listener is called after a metric has been stored, outside the lock.
type Listener func(PerformanceMetric)

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(r *Recorder) { r.listeners = append(r.listeners, l) }
}

// Recorder is the capacity bounded metric buffer.
type Recorder struct {
	mu        sync.RWMutex
	buffer    *ring.Buffer[PerformanceMetric]
	now       func() time.Time
	listeners []Listener
}

// NewRecorder creates a recorder holding at most capacity metrics.
func NewRecorder(capacity int, opts ...Option) *Recorder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	r := &Recorder{
		buffer: ring.New[PerformanceMetric](capacity),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddListener registers a listener for subsequently recorded metrics.
func (r *Recorder) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()
}

// Record stores a duration under name. Empty names are ignored, negative
// and NaN durations are stored as zero. The metadata map is copied.
func (r *Recorder) Record(name string, durationMs float64, metadata map[string]any) {
	if name == "" {
		return
	}
	if math.IsNaN(durationMs) || durationMs < 0 {
		durationMs = 0
	}

	metric := PerformanceMetric{
		Name:       name,
		DurationMs: durationMs,
	}
	if len(metadata) > 0 {
		metric.Metadata = maps.Clone(metadata)
	}

	r.mu.Lock() // enter CRITICAL SECTION
	metric.Timestamp = r.now()
	r.buffer.Push(metric)
	listeners := r.listeners
	r.mu.Unlock() // end CRITICAL SECTION

	for _, listener := range listeners {
		r.notify(listener, metric)
	}
}

func (r *Recorder) notify(listener Listener, metric PerformanceMetric) {
	defer func() {
		if rec := recover(); rec != nil {
			config.LogError(context.Background(), fmt.Sprintf("metric listener panicked: %v", rec))
		}
	}()
	listener(metric)
}

// Query returns the matching metrics in insertion order.
func (r *Recorder) Query(filter Filter) []PerformanceMetric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PerformanceMetric, 0, r.buffer.Len())
	r.buffer.Each(func(m PerformanceMetric) bool {
		if filter.Name == "" || m.Name == filter.Name {
			result = append(result, m)
		}
		return true
	})
	return result
}

// Stats computes count, average, minimum, maximum and sum over the held
// metrics named name. It reports false when none are held.
func (r *Recorder) Stats(name string) (Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{}
	r.buffer.Each(func(m PerformanceMetric) bool {
		if m.Name != name {
			return true
		}
		if stats.Count == 0 || m.DurationMs < stats.Min {
			stats.Min = m.DurationMs
		}
		if stats.Count == 0 || m.DurationMs > stats.Max {
			stats.Max = m.DurationMs
		}
		stats.Sum += m.DurationMs
		stats.Count++
		return true
	})

	if stats.Count == 0 {
		return Stats{}, false
	}
	stats.Avg = stats.Sum / float64(stats.Count)
	return stats, true
}

// Names returns the distinct metric names currently held, in order of first
// appearance.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	r.buffer.Each(func(m PerformanceMetric) bool {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
		return true
	})
	return names
}

// Len returns the number of held metrics.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buffer.Len()
}

// Capacity returns the maximum number of held metrics.
func (r *Recorder) Capacity() int {
	return r.buffer.Cap()
}

// PurgeOlderThan removes every metric older than maxAge and returns how many
// were removed. A zero maxAge clears the recorder.
func (r *Recorder) PurgeOlderThan(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxAge <= 0 {
		removed := r.buffer.Len()
		r.buffer.Clear()
		return removed
	}

	cutoff := r.now().Add(-maxAge)
	return r.buffer.Retain(func(m PerformanceMetric) bool {
		return !m.Timestamp.Before(cutoff)
	})
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
