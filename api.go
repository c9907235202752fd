package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	grpchealth "google.golang.org/grpc/health"

	"github.com/thisdougb/gamehealth/internal/config"
	"github.com/thisdougb/gamehealth/internal/core"
	"github.com/thisdougb/gamehealth/internal/events"
	"github.com/thisdougb/gamehealth/internal/handlers"
	"github.com/thisdougb/gamehealth/internal/metrics"
	"github.com/thisdougb/gamehealth/internal/probe"
	"github.com/thisdougb/gamehealth/internal/sink"
	"github.com/thisdougb/gamehealth/internal/storage"
)

// Monitor is the public interface for the health monitoring system.
type Monitor struct {
	svc       *core.Service
	exporter  *metrics.PrometheusExporter
	collector *metrics.SystemCollector
	closers   []func() error
}

// NewMonitor creates a monitor. Modules, store, sink and archive come
// from the HEALTH_* environment unless overridden by options.
func NewMonitor(ctx context.Context, opts ...Option) (*Monitor, error) {
	o := options{
		eventCapacity:  config.IntValue("HEALTH_EVENT_CAPACITY"),
		metricCapacity: config.IntValue("HEALTH_METRIC_CAPACITY"),
		probeTimeout:   config.DurationValue("HEALTH_PROBE_TIMEOUT"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Monitor{}
	ctx = config.SetContextCorrelationId(ctx, "monitor")

	registry, err := buildRegistry(o)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		driver := config.StringValue("HEALTH_STORE_DRIVER")
		opened, err := storage.OpenResourceStore(ctx, driver, config.StringValue("HEALTH_STORE_DSN"))
		if err != nil {
			return nil, err
		}
		store = opened
		m.closers = append(m.closers, opened.Close)
		config.LogInfo(ctx, fmt.Sprintf("opened %s resource store", driver))
	}

	logOpts := []events.Option{}
	if o.sessionID != "" {
		logOpts = append(logOpts, events.WithSessionID(o.sessionID))
	}
	errSink := o.sink
	if errSink == nil {
		kafkaSink, err := sink.NewKafkaSinkFromConfig()
		if err != nil {
			m.close()
			return nil, fmt.Errorf("error sink: %w", err)
		}
		if kafkaSink != nil {
			errSink = kafkaSink
			m.closers = append(m.closers, kafkaSink.Close)
		}
	}
	if errSink != nil {
		logOpts = append(logOpts, events.WithSink(errSink, 0, 0))
	}

	archive := storage.NewManager(nil, nil)
	if !o.archiveDisabled {
		if archive, err = storage.NewManagerFromConfig(); err != nil {
			m.close()
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	m.exporter = metrics.NewPrometheusExporter(o.namespace)
	recorder := metrics.NewRecorder(o.metricCapacity)
	m.svc = core.NewService(core.Dependencies{
		Log:       events.NewLog(o.eventCapacity, logOpts...),
		Recorder:  recorder,
		Registry:  registry,
		Resources: store,
		Pinger:    store,
		Archive:   archive,
		Exporter:  m.exporter,
		Timeout:   o.probeTimeout,
	})

	if o.sampleInterval != nil {
		m.collector = metrics.NewSystemCollectorWithInterval(recorder, *o.sampleInterval)
	} else {
		m.collector = metrics.NewSystemCollector(recorder)
	}
	m.collector.Start()

	config.LogInfo(ctx, fmt.Sprintf("monitor started, session %s, %d modules", m.svc.SessionID(), registry.Len()))
	return m, nil
}

func buildRegistry(o options) (*probe.Registry, error) {
	path := config.StringValue("HEALTH_MODULES_FILE")
	if o.modulesFile != nil {
		path = *o.modulesFile
	}

	specs, err := config.LoadModules(path)
	if err != nil {
		return nil, err
	}
	registry, err := probe.RegistryFromSpecs(specs)
	if err != nil {
		return nil, err
	}
	for _, module := range o.modules {
		if err := registry.Register(module); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// SessionID returns the id stamped on every event of this monitor.
func (m *Monitor) SessionID() string {
	return m.svc.SessionID()
}

// Record appends an event to the log. It never blocks on export and never
// panics.
func (m *Monitor) Record(category Category, message string, opts ...RecordOption) {
	m.svc.Log().Record(category, message, opts...)
}

// RecordMetric appends a performance metric.
func (m *Monitor) RecordMetric(name string, durationMs float64, metadata map[string]any) {
	m.svc.Recorder().Record(name, durationMs, metadata)
}

// Recorder returns the metric recorder, for use with Measure.
func (m *Monitor) Recorder() MetricRecorder {
	return m.svc.Recorder()
}

// RegisterModule adds or replaces a module.
func (m *Monitor) RegisterModule(module Module) error {
	return m.svc.Registry().Register(module)
}

// RunFullHealthCheck probes the store and every module concurrently. An
// error is returned only when ctx ends first.
func (m *Monitor) RunFullHealthCheck(ctx context.Context, subjectID string) (SystemHealthReport, error) {
	return m.svc.RunFullHealthCheck(ctx, subjectID)
}

// LastReport returns the most recent completed report.
func (m *Monitor) LastReport() (SystemHealthReport, bool) {
	return m.svc.LastReport()
}

// OnReport calls fn after every completed health check.
func (m *Monitor) OnReport(fn func(SystemHealthReport)) {
	m.svc.OnReport(fn)
}

// RunEvery runs a full health check immediately and then every interval
// until ctx ends. A non-positive interval uses HEALTH_CHECK_INTERVAL.
func (m *Monitor) RunEvery(ctx context.Context, interval time.Duration, subjectID string) error {
	if interval <= 0 {
		interval = config.DurationValue("HEALTH_CHECK_INTERVAL")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.svc.RunFullHealthCheck(ctx, subjectID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			config.LogWarn(ctx, fmt.Sprintf("periodic health check failed: %v", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) GetLogs(filter LogFilter) []LogEvent {
	return m.svc.GetLogs(filter)
}

func (m *Monitor) GetMetrics(filter MetricFilter) []PerformanceMetric {
	return m.svc.GetMetrics(filter)
}

// MetricStats returns statistics over the buffered metrics named name,
// false when there are none.
func (m *Monitor) MetricStats(name string) (MetricStats, bool) {
	return m.svc.MetricStats(name)
}

// GetSystemSummary counts buffered events by severity.
func (m *Monitor) GetSystemSummary() Summary {
	return m.svc.GetSystemSummary()
}

func (m *Monitor) ExportSnapshot() Snapshot {
	return m.svc.ExportSnapshot()
}

// ExportLogs returns the snapshot as indented JSON.
func (m *Monitor) ExportLogs() ([]byte, error) {
	return m.svc.ExportLogs()
}

// ClearLogs purges buffered events and metrics older than maxAge, zero
// clears everything.
func (m *Monitor) ClearLogs(maxAge time.Duration) (eventsRemoved, metricsRemoved int) {
	return m.svc.ClearLogs(maxAge)
}

// PublishTo mirrors every report into a gRPC health server.
func (m *Monitor) PublishTo(server *grpchealth.Server) {
	publisher := handlers.NewStatusPublisher(server)
	m.svc.OnReport(publisher.Publish)
	if report, ok := m.svc.LastReport(); ok {
		publisher.Publish(report)
	}
}

// MetricsHandler serves the Prometheus exposition of this monitor.
func (m *Monitor) MetricsHandler() http.Handler {
	return m.exporter
}

// Close stops the sampler, exports queued error events, flushes the
// archive and closes what the monitor opened.
func (m *Monitor) Close() error {
	m.collector.Stop()
	err := m.svc.Close()
	return errors.Join(err, m.close())
}

func (m *Monitor) close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Measure times op with the monitor's recorder, see metrics.Measure.
func Measure[T any](ctx context.Context, m *Monitor, name string,
	op func(ctx context.Context) (T, error), metadata map[string]any) (T, error) {
	return metrics.Measure(ctx, m.svc.Recorder(), name, op, metadata)
}
