package handlers

import (
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/thisdougb/gamehealth/internal/probe"
)

// ModuleServicePrefix prefixes module ids in gRPC health service names.
const ModuleServicePrefix = "gamehealth.module."

// StatusPublisher mirrors health reports into a gRPC health server. The
// overall status is published as the empty service name, each module as
// ModuleServicePrefix + id.
type StatusPublisher struct {
	server *health.Server

	mu    sync.Mutex
	known map[string]bool
}

// NewStatusPublisher publishes into server, which starts out SERVING for
// the empty service name.
func NewStatusPublisher(server *health.Server) *StatusPublisher {
	return &StatusPublisher{server: server, known: make(map[string]bool)}
}

// ModuleService returns the gRPC health service name of a module.
func ModuleService(moduleID string) string {
	return ModuleServicePrefix + moduleID
}

// Publish sets every service status from report. Modules missing from the
// report, e.g. after being unregistered, become SERVICE_UNKNOWN.
func (p *StatusPublisher) Publish(report probe.SystemHealthReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.server.SetServingStatus("", servingStatus(report.Overall))

	seen := make(map[string]bool, len(report.Modules))
	for _, m := range report.Modules {
		name := ModuleService(m.ModuleID)
		seen[name] = true
		p.server.SetServingStatus(name, servingStatus(m.Status))
	}

	for name := range p.known {
		if !seen[name] {
			p.server.SetServingStatus(name, healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
		}
	}
	p.known = seen
}

// Shutdown marks every service NOT_SERVING.
func (p *StatusPublisher) Shutdown() {
	p.server.Shutdown()
}

// A warning still serves.
func servingStatus(status probe.Status) healthpb.HealthCheckResponse_ServingStatus {
	if status == probe.StatusError {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
