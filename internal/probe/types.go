/*
Package probe runs health checks against game modules and the persistence
collaborator, and aggregates their outcomes into one system health report.
Probe failures never escape as errors or panics; they become failed check
results. Every probe is bounded by a timeout.
*/
package probe

import (
	"context"
	"time"
)

// Status is the derived health of a module or of the whole system.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Check names produced by the prober.
const (
	CheckReachability   = "reachability"
	CheckScopedResource = "scoped_resources"
	CheckConfiguration  = "configuration"
)

// CheckResult is the outcome of one check. Message is always set when the
// check failed. A failed advisory check degrades rather than fails a module.
type CheckResult struct {
	CheckName string `json:"check_name"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message,omitempty"`
	Advisory  bool   `json:"advisory,omitempty"`
}

// ModuleHealthStatus holds the checks of one module in execution order.
type ModuleHealthStatus struct {
	ModuleID    string        `json:"module_id"`
	ModuleName  string        `json:"module_name"`
	Status      Status        `json:"status"`
	Checks      []CheckResult `json:"checks"`
	LastChecked time.Time     `json:"last_checked"`
}

// PersistenceHealth is the outcome of one persistence round trip.
type PersistenceHealth struct {
	Connected      bool    `json:"connected"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	Error          string  `json:"error,omitempty"`
}

// SystemHealthReport is the aggregated result of a full health check.
type SystemHealthReport struct {
	Overall     Status               `json:"overall"`
	Modules     []ModuleHealthStatus `json:"modules"`
	Persistence PersistenceHealth    `json:"persistence"`
	Timestamp   time.Time            `json:"timestamp"`
	DurationMs  float64              `json:"duration_ms"`
}

// Pinger performs a lightweight round trip against the persistence store.
// A nil error means the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Resource is an opaque record owned by a subject and tagged with a module.
// The prober only counts them.
type Resource struct {
	ID       string         `json:"id"`
	OwnerID  string         `json:"owner_id"`
	ModuleID string         `json:"module_id"`
	Data     map[string]any `json:"data,omitempty"`
}

// ResourceQuerier looks up resources by owner and module.
type ResourceQuerier interface {
	QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]Resource, error)
}

// DeriveModuleStatus applies the module status rule: error when a required
// check failed, warning when only advisory checks failed, else healthy.
func DeriveModuleStatus(checks []CheckResult) Status {
	status := StatusHealthy
	for _, c := range checks {
		if c.Passed {
			continue
		}
		if !c.Advisory {
			return StatusError
		}
		status = StatusWarning
	}
	return status
}

// DeriveOverall applies the system status rule: error when persistence is
// disconnected or any module is in error, warning when any module warns,
// else healthy.
func DeriveOverall(persistence PersistenceHealth, modules []ModuleHealthStatus) Status {
	if !persistence.Connected {
		return StatusError
	}
	overall := StatusHealthy
	for _, m := range modules {
		switch m.Status {
		case StatusError:
			return StatusError
		case StatusWarning:
			overall = StatusWarning
		}
	}
	return overall
}
