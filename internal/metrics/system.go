package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// RuntimeSampleMetric is the metric name used by SystemCollector. The
// duration is the time spent sampling, the runtime readings are metadata.
const RuntimeSampleMetric = "runtime.sample"

// SystemCollector periodically samples Go runtime statistics into a
// recorder.
type SystemCollector struct {
	recorder  MetricRecorder
	startTime time.Time
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	enabled   bool
	lastGC    uint32
	mu        sync.Mutex
}

// NewSystemCollector creates a collector using HEALTH_SAMPLE_RATE seconds as
// its interval. A rate of zero disables it.
func NewSystemCollector(recorder MetricRecorder) *SystemCollector {
	sampleRate := config.IntValue("HEALTH_SAMPLE_RATE")
	return NewSystemCollectorWithInterval(recorder, time.Duration(sampleRate)*time.Second)
}

// NewSystemCollectorWithInterval creates a collector with a custom interval.
func NewSystemCollectorWithInterval(recorder MetricRecorder, interval time.Duration) *SystemCollector {
	ctx, cancel := context.WithCancel(context.Background())

	return &SystemCollector{
		recorder:  recorder,
		startTime: time.Now(),
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   interval > 0,
	}
}

// Start begins background collection.
func (sc *SystemCollector) Start() {
	if !sc.IsEnabled() {
		return
	}

	sc.wg.Add(1)
	go sc.collectLoop()
}

// Stop ends background collection and waits for the loop to exit.
func (sc *SystemCollector) Stop() {
	sc.cancel()
	sc.wg.Wait()
}

// SetEnabled enables or disables collection.
func (sc *SystemCollector) SetEnabled(enabled bool) {
	sc.mu.Lock()
	sc.enabled = enabled
	sc.mu.Unlock()
}

// IsEnabled reports whether collection is enabled.
func (sc *SystemCollector) IsEnabled() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.enabled
}

// Interval returns the collection interval.
func (sc *SystemCollector) Interval() time.Duration {
	return sc.interval
}

func (sc *SystemCollector) collectLoop() {
	defer sc.wg.Done()

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	// first sample immediately
	sc.CollectOnce()

	for {
		select {
		case <-sc.ctx.Done():
			return
		case <-ticker.C:
			sc.CollectOnce()
		}
	}
}

// CollectOnce records a single runtime sample when enabled.
func (sc *SystemCollector) CollectOnce() {
	if !sc.IsEnabled() {
		return
	}

	start := time.Now()

	memStats := &runtime.MemStats{}
	runtime.ReadMemStats(memStats)

	sc.mu.Lock()
	gcCycles := memStats.NumGC - sc.lastGC
	sc.lastGC = memStats.NumGC
	sc.mu.Unlock()

	sample := map[string]any{
		"goroutines":     runtime.NumGoroutine(),
		"heap_bytes":     memStats.HeapAlloc,
		"heap_objects":   memStats.HeapObjects,
		"gc_cycles":      gcCycles,
		"uptime_seconds": time.Since(sc.startTime).Seconds(),
	}

	sc.recorder.Record(RuntimeSampleMetric, Milliseconds(time.Since(start)), sample)
}
