package health

import (
	"github.com/thisdougb/gamehealth/internal/core"
	"github.com/thisdougb/gamehealth/internal/events"
	"github.com/thisdougb/gamehealth/internal/metrics"
	"github.com/thisdougb/gamehealth/internal/probe"
)

// Event log types.
type (
	Category     = events.Category
	LogEvent     = events.LogEvent
	LogFilter    = events.Filter
	RecordOption = events.RecordOption
	Sink         = events.Sink
	SinkFunc     = events.SinkFunc
)

const (
	CategoryError       = events.CategoryError
	CategoryWarning     = events.CategoryWarning
	CategoryInfo        = events.CategoryInfo
	CategorySuccess     = events.CategorySuccess
	CategoryGame        = events.CategoryGame
	CategoryAuth        = events.CategoryAuth
	CategoryPayment     = events.CategoryPayment
	CategoryPerformance = events.CategoryPerformance
)

var (
	WithDetails = events.WithDetails
	WithSubject = events.WithSubject
	WithModule  = events.WithModule
)

// Metric types.
type (
	PerformanceMetric = metrics.PerformanceMetric
	MetricFilter      = metrics.Filter
	MetricStats       = metrics.Stats
	MetricRecorder    = metrics.MetricRecorder
)

// Health check types.
type (
	Status             = probe.Status
	CheckResult        = probe.CheckResult
	ModuleHealthStatus = probe.ModuleHealthStatus
	PersistenceHealth  = probe.PersistenceHealth
	SystemHealthReport = probe.SystemHealthReport
	Module             = probe.Module
	Check              = probe.Check
	Resource           = probe.Resource
	Pinger             = probe.Pinger
	ResourceQuerier    = probe.ResourceQuerier
	CheckError         = probe.CheckError
)

const (
	StatusHealthy = probe.StatusHealthy
	StatusWarning = probe.StatusWarning
	StatusError   = probe.StatusError
)

var (
	ErrUnknownModule   = probe.ErrUnknownModule
	ErrModuleDisabled  = probe.ErrModuleDisabled
	ErrNoResourceStore = probe.ErrNoResourceStore
	ErrProbeTimeout    = probe.ErrProbeTimeout
)

// Service surface types.
type (
	Summary  = core.Summary
	Snapshot = core.Snapshot
)
