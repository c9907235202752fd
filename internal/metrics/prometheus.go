package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module status gauge values.
const (
	ModuleHealthy = 0
	ModuleWarning = 1
	ModuleError   = 2
)

// PrometheusExporter mirrors recorded metrics, events and health reports
// into Prometheus collectors. Each exporter owns its registry so several
// monitors can live in one process.
type PrometheusExporter struct {
	registry           *prometheus.Registry
	durations          *prometheus.HistogramVec
	events             *prometheus.CounterVec
	moduleStatus       *prometheus.GaugeVec
	persistenceLatency prometheus.Gauge
	persistenceUp      prometheus.Gauge
	handler            http.Handler
}

// NewPrometheusExporter creates an exporter with Go runtime and process
// collectors registered alongside the health collectors.
func NewPrometheusExporter(namespace string) *PrometheusExporter {
	if namespace == "" {
		namespace = "gamehealth"
	}

	e := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_ms",
				Help:      "Duration of measured operations in milliseconds",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"name"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Number of log events recorded per category",
			},
			[]string{"category"},
		),
		moduleStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "module_status",
				Help:      "Last module health status (0 healthy, 1 warning, 2 error)",
			},
			[]string{"module"},
		),
		persistenceLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persistence_latency_ms",
			Help:      "Last persistence probe round trip in milliseconds",
		}),
		persistenceUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persistence_connected",
			Help:      "1 when the last persistence probe succeeded",
		}),
	}

	e.registry.MustRegister(
		e.durations,
		e.events,
		e.moduleStatus,
		e.persistenceLatency,
		e.persistenceUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	e.handler = promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})

	return e
}

// ObserveMetric adds a recorded duration to the histogram. It has the
// Listener signature so it can be attached to a Recorder.
func (e *PrometheusExporter) ObserveMetric(m PerformanceMetric) {
	e.durations.WithLabelValues(m.Name).Observe(m.DurationMs)
}

// ObserveEvent counts one event of the given category.
func (e *PrometheusExporter) ObserveEvent(category string) {
	e.events.WithLabelValues(category).Inc()
}

// ObserveModule sets the status gauge of a module.
func (e *PrometheusExporter) ObserveModule(moduleID string, status float64) {
	e.moduleStatus.WithLabelValues(moduleID).Set(status)
}

// ObservePersistence records the outcome of a persistence probe.
func (e *PrometheusExporter) ObservePersistence(connected bool, latencyMs float64) {
	e.persistenceLatency.Set(latencyMs)
	if connected {
		e.persistenceUp.Set(1)
	} else {
		e.persistenceUp.Set(0)
	}
}

// Registry exposes the underlying registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

// ServeHTTP writes the metrics in Prometheus text format.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.handler.ServeHTTP(w, r)
}
