package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// Prober runs the ordered checks of a single module.
type Prober struct {
	registry  *Registry
	resources ResourceQuerier
	timeout   time.Duration
	now       func() time.Time
}

// NewProber creates a prober. resources may be nil, in which case scoped
// resource checks fail with ErrNoResourceStore. A zero timeout uses
// HEALTH_PROBE_TIMEOUT.
func NewProber(registry *Registry, resources ResourceQuerier, timeout time.Duration) *Prober {
	if registry == nil {
		registry = NewRegistry()
	}
	if timeout <= 0 {
		timeout = config.DurationValue("HEALTH_PROBE_TIMEOUT")
	}
	return &Prober{
		registry:  registry,
		resources: resources,
		timeout:   timeout,
		now:       time.Now,
	}
}

// CheckModule runs reachability, scoped resources (only when subjectID is
// set), configuration and then any extra checks of the module. It never
// fails; every problem is reported as a failed check.
func (p *Prober) CheckModule(ctx context.Context, moduleID, moduleName, subjectID string) ModuleHealthStatus {
	module, registered := p.registry.Lookup(moduleID)
	if moduleName == "" {
		moduleName = module.Name
	}
	if moduleName == "" {
		moduleName = moduleID
	}

	checks := make([]CheckResult, 0, 3+len(module.Checks))

	checks = append(checks, p.run(ctx, CheckReachability, false, func(ctx context.Context) (string, error) {
		if !registered {
			return "", ErrUnknownModule
		}
		if module.Disabled {
			return "", ErrModuleDisabled
		}
		return fmt.Sprintf("module %s is registered", moduleID), nil
	}))

	if subjectID != "" {
		checks = append(checks, p.run(ctx, CheckScopedResource, false, func(ctx context.Context) (string, error) {
			if p.resources == nil {
				return "", ErrNoResourceStore
			}
			resources, err := p.resources.QueryByOwnerAndModule(ctx, subjectID, moduleID)
			if err != nil {
				return "", fmt.Errorf("resource query failed: %w", err)
			}
			if len(resources) == 0 {
				return fmt.Sprintf("no resources found for subject %s", subjectID), nil
			}
			return fmt.Sprintf("found %d resources for subject %s", len(resources), subjectID), nil
		}))
	}

	checks = append(checks, p.run(ctx, CheckConfiguration, false, func(ctx context.Context) (string, error) {
		if module.Validate == nil {
			return "no configuration to validate", nil
		}
		if err := module.Validate(ctx); err != nil {
			return "", err
		}
		return "configuration valid", nil
	}))

	for _, extra := range module.Checks {
		run := extra.Run
		checks = append(checks, p.run(ctx, extra.Name, extra.Advisory, func(ctx context.Context) (string, error) {
			if run == nil {
				return "no check function", nil
			}
			return "", run(ctx)
		}))
	}

	return ModuleHealthStatus{
		ModuleID:    moduleID,
		ModuleName:  moduleName,
		Status:      DeriveModuleStatus(checks),
		Checks:      checks,
		LastChecked: p.now(),
	}
}

func (p *Prober) run(ctx context.Context, name string, advisory bool, fn func(ctx context.Context) (string, error)) CheckResult {
	result := CheckResult{CheckName: name, Advisory: advisory}

	var message string
	err := runGuarded(ctx, p.timeout, func(ctx context.Context) error {
		var err error
		message, err = fn(ctx)
		return err
	})

	if err != nil {
		result.Message = CheckError{Check: name, Err: err}.Error()
		return result
	}

	result.Passed = true
	result.Message = message
	return result
}
