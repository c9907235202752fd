package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// WriteQueue batches events and metrics in memory and writes them to an
// Archive from a background goroutine. Metrics are aggregated into one
// minute windows before they are written.
type WriteQueue struct {
	archive       Archive
	flushInterval time.Duration
	batchSize     int
	maxPending    int

	mu      sync.Mutex
	events  []EventRecord
	metrics []MetricRecord
	dropped int

	flushNow chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWriteQueue creates a queue. Reaching batchSize pending entries
// triggers an early flush; more than 100 batches pending are dropped.
func NewWriteQueue(archive Archive, flushInterval time.Duration, batchSize int) *WriteQueue {
	if flushInterval <= 0 {
		flushInterval = 60 * time.Second
	}
	if batchSize < 1 {
		batchSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WriteQueue{
		archive:       archive,
		flushInterval: flushInterval,
		batchSize:     batchSize,
		maxPending:    batchSize * 100,
		flushNow:      make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins the background flush loop.
func (q *WriteQueue) Start() {
	q.wg.Add(1)
	go q.processQueue()
}

// Stop ends the flush loop and writes whatever is still pending.
func (q *WriteQueue) Stop() {
	q.cancel()
	q.wg.Wait()

	if err := q.Flush(); err != nil {
		config.LogError(context.Background(), fmt.Sprintf("final archive flush failed: %v", err))
	}
}

// EnqueueEvent adds an event. It never blocks on the archive.
func (q *WriteQueue) EnqueueEvent(e EventRecord) bool {
	q.mu.Lock()
	if len(q.events)+len(q.metrics) >= q.maxPending {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.events = append(q.events, e)
	full := len(q.events)+len(q.metrics) >= q.batchSize
	q.mu.Unlock()

	if full {
		q.signal()
	}
	return true
}

// EnqueueMetric adds a raw metric. It never blocks on the archive.
func (q *WriteQueue) EnqueueMetric(m MetricRecord) bool {
	q.mu.Lock()
	if len(q.events)+len(q.metrics) >= q.maxPending {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.metrics = append(q.metrics, m)
	full := len(q.events)+len(q.metrics) >= q.batchSize
	q.mu.Unlock()

	if full {
		q.signal()
	}
	return true
}

func (q *WriteQueue) signal() {
	select {
	case q.flushNow <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued entries (for testing)
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events) + len(q.metrics)
}

// Dropped returns how many entries were rejected because the queue was full.
func (q *WriteQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *WriteQueue) processQueue() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.flushAndLog()
		case <-q.flushNow:
			q.flushAndLog()
		}
	}
}

func (q *WriteQueue) flushAndLog() {
	if err := q.Flush(); err != nil {
		config.LogError(context.Background(), fmt.Sprintf("archive flush failed: %v", err))
	}
}

// Flush writes all pending entries now. Entries are taken off the queue
// before writing so producers are never blocked by the archive, and are put
// back in front of newer entries when a write fails.
func (q *WriteQueue) Flush() error {
	q.mu.Lock()
	events := q.events
	metrics := q.metrics
	q.events = nil
	q.metrics = nil
	q.mu.Unlock()

	if err := q.archive.WriteEvents(events); err != nil {
		q.requeue(events, metrics)
		return fmt.Errorf("failed to write %d events: %w", len(events), err)
	}
	if err := q.archive.WriteMetricWindows(aggregateMetrics(metrics)); err != nil {
		q.requeue(nil, metrics)
		return fmt.Errorf("failed to write metric windows: %w", err)
	}
	return nil
}

// requeue restores unwritten entries ahead of anything enqueued during the
// failed flush. Past maxPending the newest entries are dropped.
func (q *WriteQueue) requeue(events []EventRecord, metrics []MetricRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(events, q.events...)
	q.metrics = append(metrics, q.metrics...)

	over := len(q.events) + len(q.metrics) - q.maxPending
	if over <= 0 {
		return
	}
	if n := min(over, len(q.metrics)); n > 0 {
		q.metrics = q.metrics[:len(q.metrics)-n]
		q.dropped += n
		over -= n
	}
	if over > 0 {
		q.events = q.events[:len(q.events)-over]
		q.dropped += over
	}
}

// aggregateMetrics groups raw metrics by name and minute window.
func aggregateMetrics(raw []MetricRecord) []MetricWindow {
	type groupKey struct {
		window string
		name   string
	}

	groups := make(map[groupKey]*MetricWindow)
	var order []groupKey

	for _, m := range raw {
		key := groupKey{
			window: timeToWindowKey(m.Timestamp.Truncate(time.Minute)),
			name:   m.Name,
		}

		w, ok := groups[key]
		if !ok {
			w = &MetricWindow{WindowKey: key.window, Name: key.name, MinMs: m.DurationMs, MaxMs: m.DurationMs}
			groups[key] = w
			order = append(order, key)
		}
		if m.DurationMs < w.MinMs {
			w.MinMs = m.DurationMs
		}
		if m.DurationMs > w.MaxMs {
			w.MaxMs = m.DurationMs
		}
		// running sum in AvgMs until the final division
		w.AvgMs += m.DurationMs
		w.Count++
	}

	windows := make([]MetricWindow, 0, len(order))
	for _, key := range order {
		w := groups[key]
		w.AvgMs = w.AvgMs / float64(w.Count)
		windows = append(windows, *w)
	}
	return windows
}
