package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// Sink receives error events for export outside the process, e.g. to a
// message broker. Implementations may be slow or fail; the log never waits
// for them and never sees their errors.
type Sink interface {
	Export(ctx context.Context, event LogEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event LogEvent) error

// Export calls f.
func (f SinkFunc) Export(ctx context.Context, event LogEvent) error {
	return f(ctx, event)
}

const (
	defaultSinkQueueSize = 256
	defaultSinkTimeout   = 5 * time.Second
)

// dispatcher hands events to a sink from a single background goroutine.
type dispatcher struct {
	sink    Sink
	queue   chan LogEvent
	done    chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

func newDispatcher(sink Sink, size int, timeout time.Duration) *dispatcher {
	if size < 1 {
		size = defaultSinkQueueSize
	}
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	d := &dispatcher{
		sink:    sink,
		queue:   make(chan LogEvent, size),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// enqueue never blocks. It returns false when the event was dropped.
func (d *dispatcher) enqueue(event LogEvent) bool {
	select {
	case <-d.done:
		return false
	default:
	}

	select {
	case d.queue <- event:
		return true
	default:
		return false
	}
}

func (d *dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.export(event)
		case <-d.done:
			// drain what was accepted before close
			for {
				select {
				case event := <-d.queue:
					d.export(event)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) export(event LogEvent) {
	ctx := config.SetContextCorrelationId(context.Background(), "sink")
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			config.LogError(ctx, fmt.Sprintf("error sink panicked: %v", r))
		}
	}()

	if err := d.sink.Export(ctx, event); err != nil {
		config.LogError(ctx, fmt.Sprintf("error sink export failed: %v", err))
	}
}

// close stops accepting events and waits for queued ones to be exported.
func (d *dispatcher) close() {
	d.once.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
