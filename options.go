package health

import (
	"time"
)

// Store is the persistence collaborator probed by health checks.
type Store interface {
	Pinger
	ResourceQuerier
}

type options struct {
	modules         []Module
	modulesFile     *string
	store           Store
	sink            Sink
	eventCapacity   int
	metricCapacity  int
	probeTimeout    time.Duration
	sampleInterval  *time.Duration
	sessionID       string
	namespace       string
	archiveDisabled bool
}

// Option configures a Monitor. Anything not set falls back to the
// HEALTH_* environment configuration.
type Option func(*options)

// WithModules registers modules in addition to those of the modules file.
// A module with the id of a file module replaces it.
func WithModules(modules ...Module) Option {
	return func(o *options) { o.modules = append(o.modules, modules...) }
}

// WithModulesFile overrides HEALTH_MODULES_FILE. An empty path loads no
// file.
func WithModulesFile(path string) Option {
	return func(o *options) { o.modulesFile = &path }
}

// WithStore sets the persistence collaborator instead of opening one from
// HEALTH_STORE_DRIVER. The caller keeps ownership of it.
func WithStore(store Store) Option {
	return func(o *options) { o.store = store }
}

// WithSink exports error events to sink instead of the Kafka sink
// configured by HEALTH_KAFKA_BROKERS.
func WithSink(sink Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithCapacity sets the event and metric buffer capacities.
func WithCapacity(events, metrics int) Option {
	return func(o *options) {
		o.eventCapacity = events
		o.metricCapacity = metrics
	}
}

// WithProbeTimeout sets the deadline of a single probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) { o.probeTimeout = d }
}

// WithRuntimeSampling sets the runtime sampler interval, zero disables it.
func WithRuntimeSampling(interval time.Duration) Option {
	return func(o *options) { o.sampleInterval = &interval }
}

// WithSessionID fixes the session id stamped on events.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithNamespace sets the Prometheus metric namespace, default gamehealth.
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// WithoutArchive disables the SQLite archive whatever
// HEALTH_PERSISTENCE_ENABLED says.
func WithoutArchive() Option {
	return func(o *options) { o.archiveDisabled = true }
}
