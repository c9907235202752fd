package probe

import (
	"context"
	"sync"
	"time"
)

type fakePinger struct {
	err   error
	delay time.Duration
}

func (f fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type fakeResources struct {
	resources []Resource
	err       error
	mu        sync.Mutex
	calls     []string
}

func (f *fakeResources) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]Resource, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ownerID+"/"+moduleID)
	f.mu.Unlock()
	return f.resources, f.err
}

// scriptedChecker returns a fixed outcome per module after an optional delay.
type scriptedChecker struct {
	delay  time.Duration
	failed map[string]bool
	warned map[string]bool
	panics map[string]bool
}

func (s scriptedChecker) CheckModule(ctx context.Context, moduleID, moduleName, subjectID string) ModuleHealthStatus {
	if s.panics[moduleID] {
		panic("checker bug")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	reachable := CheckResult{CheckName: CheckReachability, Passed: !s.failed[moduleID]}
	if !reachable.Passed {
		reachable.Message = "unreachable"
	}
	checks := []CheckResult{reachable, {CheckName: CheckConfiguration, Passed: true}}
	if s.warned[moduleID] {
		checks = append(checks, CheckResult{CheckName: "advisory_settings", Advisory: true, Message: "missing"})
	}

	return ModuleHealthStatus{
		ModuleID:    moduleID,
		ModuleName:  moduleName,
		Status:      DeriveModuleStatus(checks),
		Checks:      checks,
		LastChecked: time.Now(),
	}
}

func registryOf(ids ...string) *Registry {
	r := NewRegistry()
	for _, id := range ids {
		_ = r.Register(Module{ID: id})
	}
	return r
}
