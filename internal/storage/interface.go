package storage

import (
	"time"

	"github.com/thisdougb/gamehealth/internal/probe"
)

// Archive is the long-term store for events and aggregated metrics. Writes
// are batched by WriteQueue, so implementations only do CRUD.
type Archive interface {
	WriteEvents(events []EventRecord) error
	WriteMetricWindows(windows []MetricWindow) error
	ReadEvents(query EventQuery) ([]EventRecord, error)
	ReadMetricWindows(name string, start, end time.Time) ([]MetricWindow, error)
	Close() error
}

// ResourceStore is the persistence collaborator probed by the health
// checker.
type ResourceStore interface {
	probe.Pinger
	probe.ResourceQuerier
	Close() error
}

// EventRecord is an archived log event.
type EventRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	SubjectID string         `json:"subject_id,omitempty"`
	ModuleID  string         `json:"module_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// EventQuery selects archived events. Empty fields match everything; a zero
// Limit returns all matches.
type EventQuery struct {
	Category  string
	SubjectID string
	ModuleID  string
	Start     time.Time
	End       time.Time
	Limit     int
}

// Match reports whether an event satisfies the query.
func (q EventQuery) Match(e EventRecord) bool {
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.SubjectID != "" && e.SubjectID != q.SubjectID {
		return false
	}
	if q.ModuleID != "" && e.ModuleID != q.ModuleID {
		return false
	}
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	return true
}

// MetricRecord is a raw measurement waiting in the write queue.
type MetricRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Name       string    `json:"name"`
	DurationMs float64   `json:"duration_ms"`
}

// MetricWindow is the aggregate of one metric name over one time window.
type MetricWindow struct {
	WindowKey string  `json:"window_key"` // YYYYMMDDHHMMSS
	Name      string  `json:"name"`
	MinMs     float64 `json:"min_ms"`
	MaxMs     float64 `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	Count     int     `json:"count"`
}

const windowKeyLayout = "20060102150405"

func timeToWindowKey(t time.Time) string {
	return t.UTC().Format(windowKeyLayout)
}

// WindowTime parses a window key back into a UTC time.
func WindowTime(key string) (time.Time, error) {
	return time.ParseInLocation(windowKeyLayout, key, time.UTC)
}
