/*
Package events holds the in-memory event log: a capacity bounded buffer of
typed log events stamped with a session id. Recording never blocks on I/O and
never panics into the caller; error events are additionally handed to an
optional external sink on a background goroutine.
*/
package events

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Category is the kind of a log event. The set is open, callers may use
// their own domain tags.
type Category string

const (
	CategoryError       Category = "error"
	CategoryWarning     Category = "warning"
	CategoryInfo        Category = "info"
	CategorySuccess     Category = "success"
	CategoryGame        Category = "game"
	CategoryAuth        Category = "auth"
	CategoryPayment     Category = "payment"
	CategoryPerformance Category = "performance"
)

// LogEvent is a single immutable entry of the event log.
type LogEvent struct {
	Category  Category       `json:"category"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	SubjectID string         `json:"subject_id,omitempty"`
	ModuleID  string         `json:"module_id,omitempty"`
}

// RecordOption sets the optional fields of an event being recorded.
type RecordOption func(*LogEvent)

// WithDetails attaches an opaque payload. The map is copied.
func WithDetails(details map[string]any) RecordOption {
	return func(e *LogEvent) {
		if len(details) > 0 {
			e.Details = maps.Clone(details)
		}
	}
}

// WithSubject sets the acting subject, usually a user id.
func WithSubject(subjectID string) RecordOption {
	return func(e *LogEvent) { e.SubjectID = subjectID }
}

// WithModule sets the originating module id.
func WithModule(moduleID string) RecordOption {
	return func(e *LogEvent) { e.ModuleID = moduleID }
}

// Filter selects events. Empty fields match everything, set fields are
// combined with AND.
type Filter struct {
	Category  Category
	SubjectID string
	ModuleID  string
}

// Match reports whether the event satisfies the filter.
func (f Filter) Match(e LogEvent) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.ModuleID != "" && e.ModuleID != f.ModuleID {
		return false
	}
	return true
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
