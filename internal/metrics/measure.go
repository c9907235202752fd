package metrics

import (
	"context"
	"maps"
	"time"
)

// MetricRecorder is anything Measure can record into.
type MetricRecorder interface {
	Record(name string, durationMs float64, metadata map[string]any)
}

// Measure times op and records exactly one metric named name. A failed or
// panicking op is recorded with error=true added to a copy of metadata. The
// result and error of op are returned unchanged, a panic is re-raised with
// its original value after recording.
func Measure[T any](ctx context.Context, recorder MetricRecorder, name string,
	op func(ctx context.Context) (T, error), metadata map[string]any) (result T, err error) {

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			recorder.Record(name, Milliseconds(time.Since(start)), withError(metadata))
			panic(r)
		}
	}()

	result, err = op(ctx)
	elapsed := Milliseconds(time.Since(start))

	if err != nil {
		recorder.Record(name, elapsed, withError(metadata))
		return result, err
	}

	recorder.Record(name, elapsed, metadata)
	return result, nil
}

func withError(metadata map[string]any) map[string]any {
	tagged := make(map[string]any, len(metadata)+1)
	maps.Copy(tagged, metadata)
	tagged["error"] = true
	return tagged
}
