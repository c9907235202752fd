package health

import (
	"net/http"

	"github.com/thisdougb/gamehealth/internal/handlers"
)

// Handler returns the full HTTP API: /health, /health/status, /logs,
// /summary, /export, /metrics and the history routes.
func (m *Monitor) Handler() http.Handler {
	return handlers.NewRouter(m.svc, m.exporter)
}

// HealthHandler runs a full health check per request, scoped to ?subject=.
// This provides a standard /health endpoint for containerized applications
func (m *Monitor) HealthHandler() http.HandlerFunc {
	return handlers.HealthHandler(m.svc)
}

// StatusHandler returns a simple UP/DOWN status endpoint
// Returns 200 OK for healthy, 503 Service Unavailable for unhealthy
func (m *Monitor) StatusHandler() http.HandlerFunc {
	return handlers.StatusHandler(m.svc)
}
