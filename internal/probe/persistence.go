package probe

import (
	"context"
	"time"
)

// ProbePersistence performs one timed round trip through pinger. The
// response time is measured whether or not the round trip succeeded.
func ProbePersistence(ctx context.Context, pinger Pinger, timeout time.Duration) PersistenceHealth {
	start := time.Now()

	err := runGuarded(ctx, timeout, func(ctx context.Context) error {
		if pinger == nil {
			return ErrNoResourceStore
		}
		return pinger.Ping(ctx)
	})

	health := PersistenceHealth{
		Connected:      err == nil,
		ResponseTimeMs: float64(time.Since(start)) / float64(time.Millisecond),
	}
	if err != nil {
		health.Error = err.Error()
	}
	return health
}
