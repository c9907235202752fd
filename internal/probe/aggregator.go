package probe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thisdougb/gamehealth/internal/config"
)

// ModuleChecker probes one module. *Prober is the standard implementation.
type ModuleChecker interface {
	CheckModule(ctx context.Context, moduleID, moduleName, subjectID string) ModuleHealthStatus
}

// Aggregator fans out the persistence probe and one probe per registered
// module concurrently and combines them into a report.
type Aggregator struct {
	registry *Registry
	checker  ModuleChecker
	pinger   Pinger
	timeout  time.Duration
	now      func() time.Time
}

// NewAggregator creates an aggregator. A nil checker probes modules with a
// Prober over registry. A zero timeout uses HEALTH_PROBE_TIMEOUT for the
// persistence probe.
func NewAggregator(registry *Registry, checker ModuleChecker, pinger Pinger, timeout time.Duration) *Aggregator {
	if registry == nil {
		registry = NewRegistry()
	}
	if timeout <= 0 {
		timeout = config.DurationValue("HEALTH_PROBE_TIMEOUT")
	}
	if checker == nil {
		checker = NewProber(registry, nil, timeout)
	}
	return &Aggregator{
		registry: registry,
		checker:  checker,
		pinger:   pinger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run executes every probe and returns the complete report. Modules appear
// in registration order. The only error is cancellation of ctx, in which
// case no report is produced.
func (a *Aggregator) Run(ctx context.Context, subjectID string) (SystemHealthReport, error) {
	start := time.Now()
	modules := a.registry.Modules()

	results := make([]ModuleHealthStatus, len(modules))
	var persistence PersistenceHealth

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		persistence = ProbePersistence(gctx, a.pinger, a.timeout)
		return nil
	})

	for i, m := range modules {
		i, m := i, m
		g.Go(func() error {
			results[i] = a.checkModule(gctx, m, subjectID)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return SystemHealthReport{}, fmt.Errorf("health check aborted: %w", err)
	}

	return SystemHealthReport{
		Overall:     DeriveOverall(persistence, results),
		Modules:     results,
		Persistence: persistence,
		Timestamp:   a.now(),
		DurationMs:  float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

// checkModule shields the aggregation from a misbehaving checker.
func (a *Aggregator) checkModule(ctx context.Context, m Module, subjectID string) (status ModuleHealthStatus) {
	ctx = config.SetContextModule(ctx, m.ID)
	defer func() {
		if r := recover(); r != nil {
			config.LogError(ctx, fmt.Sprintf("module checker panicked: %v", r))
			check := CheckResult{
				CheckName: CheckReachability,
				Message:   CheckError{Check: CheckReachability, Err: fmt.Errorf("%w: %v", ErrProbePanic, r)}.Error(),
			}
			status = ModuleHealthStatus{
				ModuleID:    m.ID,
				ModuleName:  m.Name,
				Status:      StatusError,
				Checks:      []CheckResult{check},
				LastChecked: a.now(),
			}
		}
	}()

	return a.checker.CheckModule(ctx, m.ID, m.Name, subjectID)
}
