// Package core composes the event log, metric recorder, health aggregator
// and optional archive into the service behind the public Monitor.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/events"
	"github.com/thisdougb/gamehealth/internal/metrics"
	"github.com/thisdougb/gamehealth/internal/probe"
	"github.com/thisdougb/gamehealth/internal/storage"
)

// FullCheckMetric is the metric recorded for every full health check.
const FullCheckMetric = "health.full_check"

// Summary health values.
const (
	SummaryHealthy  = "healthy"
	SummaryWarning  = "warning"
	SummaryCritical = "critical"
)

// criticalErrorCount is the number of buffered error events at which the
// summary turns critical.
const criticalErrorCount = 10

// Summary counts the buffered events.
type Summary struct {
	TotalLogs    int    `json:"total_logs"`
	ErrorCount   int    `json:"error_count"`
	WarningCount int    `json:"warning_count"`
	Health       string `json:"health"`
}

// Snapshot is the exported state of both buffers.
type Snapshot struct {
	SessionID  string                      `json:"session_id"`
	ExportedAt time.Time                   `json:"exported_at"`
	Logs       []events.LogEvent           `json:"logs"`
	Metrics    []metrics.PerformanceMetric `json:"metrics"`
}

// ReportListener is called after every completed full health check.
type ReportListener func(probe.SystemHealthReport)

// Dependencies are the collaborators of a Service. Log, Recorder and
// Registry default to empty instances, the rest are optional.
type Dependencies struct {
	Log       *events.Log
	Recorder  *metrics.Recorder
	Registry  *probe.Registry
	Checker   probe.ModuleChecker // nil probes with a Prober over Registry and Resources
	Resources probe.ResourceQuerier
	Pinger    probe.Pinger
	Archive   *storage.Manager
	Exporter  *metrics.PrometheusExporter
	Timeout   time.Duration // per probe, zero uses HEALTH_PROBE_TIMEOUT
}

// Service is safe for concurrent use.
type Service struct {
	log        *events.Log
	recorder   *metrics.Recorder
	registry   *probe.Registry
	aggregator *probe.Aggregator
	archive    *storage.Manager
	exporter   *metrics.PrometheusExporter
	now        func() time.Time

	mu        sync.RWMutex
	last      *probe.SystemHealthReport
	listeners []ReportListener

	closeOnce sync.Once
}

// NewService wires the dependencies together. Events and metrics are
// mirrored into the archive and exporter when those are present.
func NewService(deps Dependencies) *Service {
	if deps.Log == nil {
		deps.Log = events.NewLog(config.IntValue("HEALTH_EVENT_CAPACITY"))
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewRecorder(config.IntValue("HEALTH_METRIC_CAPACITY"))
	}
	if deps.Registry == nil {
		deps.Registry = probe.NewRegistry()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = config.DurationValue("HEALTH_PROBE_TIMEOUT")
	}
	if deps.Checker == nil {
		deps.Checker = probe.NewProber(deps.Registry, deps.Resources, deps.Timeout)
	}

	s := &Service{
		log:        deps.Log,
		recorder:   deps.Recorder,
		registry:   deps.Registry,
		aggregator: probe.NewAggregator(deps.Registry, deps.Checker, deps.Pinger, deps.Timeout),
		archive:    deps.Archive,
		exporter:   deps.Exporter,
		now:        time.Now,
	}

	if s.archive != nil && s.archive.IsEnabled() {
		s.log.AddListener(s.archiveEvent)
		s.recorder.AddListener(s.archiveMetric)
	}
	if s.exporter != nil {
		s.log.AddListener(func(e events.LogEvent) { s.exporter.ObserveEvent(string(e.Category)) })
		s.recorder.AddListener(s.exporter.ObserveMetric)
	}

	return s
}

// SessionID returns the session id stamped on recorded events.
func (s *Service) SessionID() string {
	return s.log.SessionID()
}

// Log returns the event log for recording.
func (s *Service) Log() *events.Log {
	return s.log
}

// Recorder returns the metric recorder for recording.
func (s *Service) Recorder() *metrics.Recorder {
	return s.recorder
}

// Registry returns the module registry.
func (s *Service) Registry() *probe.Registry {
	return s.registry
}

// OnReport registers a listener for completed health reports.
func (s *Service) OnReport(listener ReportListener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

// RunFullHealthCheck probes persistence and every registered module, timed
// as FullCheckMetric. A completed check records one info event with the
// verdict. The only error is cancellation of ctx.
func (s *Service) RunFullHealthCheck(ctx context.Context, subjectID string) (probe.SystemHealthReport, error) {
	metadata := map[string]any{"modules": s.registry.Len()}
	if subjectID != "" {
		metadata["subject_id"] = subjectID
		ctx = config.SetContextSubject(ctx, subjectID)
	}

	report, err := metrics.Measure(ctx, s.recorder, FullCheckMetric,
		func(ctx context.Context) (probe.SystemHealthReport, error) {
			return s.aggregator.Run(ctx, subjectID)
		}, metadata)
	if err != nil {
		config.LogWarn(ctx, fmt.Sprintf("full health check did not complete: %v", err))
		return report, err
	}

	opts := []events.RecordOption{events.WithDetails(map[string]any{
		"overall":     string(report.Overall),
		"modules":     len(report.Modules),
		"duration_ms": report.DurationMs,
	})}
	if subjectID != "" {
		opts = append(opts, events.WithSubject(subjectID))
	}
	s.log.Record(events.CategoryInfo,
		fmt.Sprintf("health check completed: %s, %d modules in %.1fms", report.Overall, len(report.Modules), report.DurationMs),
		opts...)

	s.publish(ctx, report)
	return report, nil
}

func (s *Service) publish(ctx context.Context, report probe.SystemHealthReport) {
	if s.exporter != nil {
		for _, m := range report.Modules {
			s.exporter.ObserveModule(m.ModuleID, statusGauge(m.Status))
		}
		s.exporter.ObservePersistence(report.Persistence.Connected, report.Persistence.ResponseTimeMs)
	}

	s.mu.Lock()
	s.last = &report
	listeners := s.listeners
	s.mu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					config.LogError(ctx, fmt.Sprintf("report listener panicked: %v", r))
				}
			}()
			listener(report)
		}()
	}
}

func statusGauge(status probe.Status) float64 {
	switch status {
	case probe.StatusHealthy:
		return metrics.ModuleHealthy
	case probe.StatusWarning:
		return metrics.ModuleWarning
	default:
		return metrics.ModuleError
	}
}

// LastReport returns the most recent completed report.
func (s *Service) LastReport() (probe.SystemHealthReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return probe.SystemHealthReport{}, false
	}
	return *s.last, true
}

func (s *Service) GetLogs(filter events.Filter) []events.LogEvent {
	return s.log.Query(filter)
}

func (s *Service) GetMetrics(filter metrics.Filter) []metrics.PerformanceMetric {
	return s.recorder.Query(filter)
}

// MetricStats returns statistics over the buffered metrics named name.
func (s *Service) MetricStats(name string) (metrics.Stats, bool) {
	return s.recorder.Stats(name)
}

// GetSystemSummary counts buffered events. Health is critical from ten
// errors, warning from one, healthy otherwise.
func (s *Service) GetSystemSummary() Summary {
	counts := s.log.Counts()

	summary := Summary{
		TotalLogs:    s.log.Len(),
		ErrorCount:   counts[events.CategoryError],
		WarningCount: counts[events.CategoryWarning],
		Health:       SummaryHealthy,
	}
	switch {
	case summary.ErrorCount >= criticalErrorCount:
		summary.Health = SummaryCritical
	case summary.ErrorCount > 0:
		summary.Health = SummaryWarning
	}
	return summary
}

// ExportSnapshot copies both buffers.
func (s *Service) ExportSnapshot() Snapshot {
	return Snapshot{
		SessionID:  s.log.SessionID(),
		ExportedAt: s.now(),
		Logs:       s.log.Query(events.Filter{}),
		Metrics:    s.recorder.Query(metrics.Filter{}),
	}
}

// ExportLogs returns the snapshot as indented JSON.
func (s *Service) ExportLogs() ([]byte, error) {
	data, err := json.MarshalIndent(s.ExportSnapshot(), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling failed: %w", err)
	}
	return data, nil
}

// ClearLogs purges events and metrics older than maxAge from both buffers,
// zero clears them. The archive is not touched.
func (s *Service) ClearLogs(maxAge time.Duration) (eventsRemoved, metricsRemoved int) {
	return s.log.PurgeOlderThan(maxAge), s.recorder.PurgeOlderThan(maxAge)
}

// History reads archived events.
func (s *Service) History(query storage.EventQuery) ([]storage.EventRecord, error) {
	if s.archive == nil {
		return nil, storage.ErrArchiveDisabled
	}
	return s.archive.ReadEvents(query)
}

// MetricHistory reads archived metric windows.
func (s *Service) MetricHistory(name string, start, end time.Time) ([]storage.MetricWindow, error) {
	if s.archive == nil {
		return nil, storage.ErrArchiveDisabled
	}
	return s.archive.ReadMetricWindows(name, start, end)
}

func (s *Service) archiveEvent(e events.LogEvent) {
	s.archive.ArchiveEvent(storage.EventRecord{
		Timestamp: e.Timestamp,
		SessionID: e.SessionID,
		Category:  string(e.Category),
		Message:   e.Message,
		SubjectID: e.SubjectID,
		ModuleID:  e.ModuleID,
		Details:   e.Details,
	})
}

func (s *Service) archiveMetric(m metrics.PerformanceMetric) {
	s.archive.ArchiveMetric(storage.MetricRecord{
		Timestamp:  m.Timestamp,
		Name:       m.Name,
		DurationMs: m.DurationMs,
	})
}

// Close exports queued sink events, then flushes and closes the archive.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.log.Close()
		if s.archive != nil {
			if cerr := s.archive.Close(); cerr != nil {
				err = fmt.Errorf("close archive: %w", cerr)
			}
		}
	})
	return err
}
