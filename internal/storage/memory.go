package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/probe"
)

// MemoryArchive implements Archive in memory, for tests and development.
type MemoryArchive struct {
	mu      sync.RWMutex
	events  []EventRecord
	windows []MetricWindow
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (m *MemoryArchive) WriteEvents(events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryArchive) WriteMetricWindows(windows []MetricWindow) error {
	if len(windows) == 0 {
		return nil
	}
	m.mu.Lock()
	m.windows = append(m.windows, windows...)
	m.mu.Unlock()
	return nil
}

// ReadEvents returns matching events oldest first.
func (m *MemoryArchive) ReadEvents(query EventQuery) ([]EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []EventRecord
	for _, e := range m.events {
		if query.Match(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[len(result)-query.Limit:]
	}
	return result, nil
}

// ReadMetricWindows returns the windows of name (all names when empty)
// between start and end, ordered by window then name.
func (m *MemoryArchive) ReadMetricWindows(name string, start, end time.Time) ([]MetricWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	startKey := timeToWindowKey(start.Truncate(time.Minute))
	endKey := timeToWindowKey(end)

	var result []MetricWindow
	for _, w := range m.windows {
		if name != "" && w.Name != name {
			continue
		}
		if w.WindowKey < startKey || w.WindowKey > endKey {
			continue
		}
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].WindowKey != result[j].WindowKey {
			return result[i].WindowKey < result[j].WindowKey
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *MemoryArchive) Close() error {
	return nil
}

// Len returns the number of stored events and metric windows (for testing)
func (m *MemoryArchive) Len() (events, windows int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events), len(m.windows)
}

// MemoryStore implements ResourceStore in memory. PingErr and QueryErr
// inject failures.
type MemoryStore struct {
	mu        sync.RWMutex
	resources []probe.Resource
	PingErr   error
	QueryErr  error
	closed    bool
}

func NewMemoryStore(resources ...probe.Resource) *MemoryStore {
	return &MemoryStore{resources: resources}
}

// Put adds a resource.
func (m *MemoryStore) Put(r probe.Resource) {
	m.mu.Lock()
	m.resources = append(m.resources, r)
	m.mu.Unlock()
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.PingErr
}

func (m *MemoryStore) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]probe.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var result []probe.Resource
	for _, r := range m.resources {
		if r.OwnerID == ownerID && r.ModuleID == moduleID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
