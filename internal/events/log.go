package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/ring"
)

// DefaultCapacity is the event buffer size used when none is configured.
const DefaultCapacity = 1000

// Listener is called synchronously after an event has been stored, outside
// the log's lock. Listeners must be fast; a panicking listener is recovered.
type Listener func(LogEvent)

// Log is the capacity bounded event log. All mutation is serialised by a
// single lock which is never held while sinks or listeners run.
type Log struct {
	mu         sync.RWMutex
	buffer     *ring.Buffer[LogEvent]
	sessionID  string
	now        func() time.Time
	listeners  []Listener
	dispatcher *dispatcher
}

// Option configures a Log.
type Option func(*logOptions)

type logOptions struct {
	sessionID   string
	now         func() time.Time
	sink        Sink
	sinkQueue   int
	sinkTimeout time.Duration
	listeners   []Listener
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(o *logOptions) { o.sessionID = id }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *logOptions) { o.now = now }
}

// WithSink sets the external sink for error events. queueSize bounds the
// number of events waiting for export; timeout bounds a single export.
func WithSink(sink Sink, queueSize int, timeout time.Duration) Option {
	return func(o *logOptions) {
		o.sink = sink
		o.sinkQueue = queueSize
		o.sinkTimeout = timeout
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(o *logOptions) { o.listeners = append(o.listeners, l) }
}

// NewLog creates an event log holding at most capacity events.
func NewLog(capacity int, opts ...Option) *Log {
	o := logOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = NewSessionID()
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	l := &Log{
		buffer:    ring.New[LogEvent](capacity),
		sessionID: o.sessionID,
		now:       o.now,
		listeners: o.listeners,
	}
	if o.sink != nil {
		l.dispatcher = newDispatcher(o.sink, o.sinkQueue, o.sinkTimeout)
	}
	return l
}

// SessionID returns the id stamped on every event of this log.
func (l *Log) SessionID() string {
	return l.sessionID
}

// AddListener registers a listener for subsequently recorded events.
func (l *Log) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, listener)
	l.mu.Unlock()
}

// Record appends an event. It never blocks on export and never panics.
func (l *Log) Record(category Category, message string, opts ...RecordOption) {
	if category == "" {
		category = CategoryInfo
	}

	event := LogEvent{
		Category:  category,
		Message:   message,
		SessionID: l.sessionID,
	}
	for _, opt := range opts {
		opt(&event)
	}

	l.mu.Lock() // enter CRITICAL SECTION
	event.Timestamp = l.now()
	l.buffer.Push(event)
	listeners := l.listeners
	l.mu.Unlock() // end CRITICAL SECTION

	for _, listener := range listeners {
		l.notify(listener, event)
	}

	if category == CategoryError && l.dispatcher != nil {
		if !l.dispatcher.enqueue(event) {
			config.LogWarn(context.Background(), "error sink queue full or closed, event dropped: "+event.Message)
		}
	}
}

func (l *Log) notify(listener Listener, event LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			config.LogError(context.Background(), fmt.Sprintf("event listener panicked: %v", r))
		}
	}()
	listener(event)
}

// Query returns the matching events in insertion order.
func (l *Log) Query(filter Filter) []LogEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LogEvent, 0, l.buffer.Len())
	l.buffer.Each(func(e LogEvent) bool {
		if filter.Match(e) {
			result = append(result, e)
		}
		return true
	})
	return result
}

// Counts returns the number of held events per category.
func (l *Log) Counts() map[Category]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[Category]int)
	l.buffer.Each(func(e LogEvent) bool {
		counts[e.Category]++
		return true
	})
	return counts
}

// Len returns the number of held events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buffer.Len()
}

// Capacity returns the maximum number of held events.
func (l *Log) Capacity() int {
	return l.buffer.Cap()
}

// PurgeOlderThan removes every event older than maxAge and returns how many
// were removed. A zero maxAge clears the log.
func (l *Log) PurgeOlderThan(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if maxAge <= 0 {
		removed := l.buffer.Len()
		l.buffer.Clear()
		return removed
	}

	cutoff := l.now().Add(-maxAge)
	return l.buffer.Retain(func(e LogEvent) bool {
		return !e.Timestamp.Before(cutoff)
	})
}

// Close stops the sink dispatcher after exporting queued events. Events
// recorded afterwards are still stored but no longer exported.
func (l *Log) Close() {
	if l.dispatcher != nil {
		l.dispatcher.close()
	}
}
