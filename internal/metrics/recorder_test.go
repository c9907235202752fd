package metrics

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndQuery(t *testing.T) {
	r := NewRecorder(10)
	r.Record("db.query", 12.5, map[string]any{"table": "users"})
	r.Record("api.call", 3, nil)
	r.Record("db.query", 7, nil)

	all := r.Query(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, "db.query", all[0].Name)
	assert.Equal(t, 12.5, all[0].DurationMs)
	assert.Equal(t, "users", all[0].Metadata["table"])
	assert.False(t, all[0].Timestamp.IsZero())

	byName := r.Query(Filter{Name: "db.query"})
	require.Len(t, byName, 2)
	assert.Equal(t, 7.0, byName[1].DurationMs)
}

func TestRecordSanitisesInput(t *testing.T) {
	r := NewRecorder(10)
	r.Record("", 10, nil)
	r.Record("negative", -5, nil)
	r.Record("nan", math.NaN(), nil)

	all := r.Query(Filter{})
	require.Len(t, all, 2)
	assert.Equal(t, 0.0, all[0].DurationMs)
	assert.Equal(t, 0.0, all[1].DurationMs)
}

func TestRecordCopiesMetadata(t *testing.T) {
	r := NewRecorder(10)
	metadata := map[string]any{"k": "v"}
	r.Record("op", 1, metadata)
	metadata["k"] = "changed"

	assert.Equal(t, "v", r.Query(Filter{})[0].Metadata["k"])
}

func TestRecorderEviction(t *testing.T) {
	r := NewRecorder(3)
	for i := 1; i <= 5; i++ {
		r.Record(fmt.Sprintf("m%d", i), float64(i), nil)
	}

	all := r.Query(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, "m3", all[0].Name)
	assert.Equal(t, "m5", all[2].Name)
	assert.Equal(t, 3, r.Capacity())
}

func TestStats(t *testing.T) {
	r := NewRecorder(10)
	r.Record("db", 10, nil)
	r.Record("other", 1000, nil)
	r.Record("db", 20, nil)
	r.Record("db", 30, nil)

	stats, ok := r.Stats("db")
	require.True(t, ok)
	assert.Equal(t, Stats{Count: 3, Avg: 20, Min: 10, Max: 30, Sum: 60}, stats)

	_, ok = r.Stats("missing")
	assert.False(t, ok)
}

func TestStatsReflectEviction(t *testing.T) {
	r := NewRecorder(2)
	r.Record("db", 100, nil)
	r.Record("db", 10, nil)
	r.Record("db", 20, nil)

	stats, ok := r.Stats("db")
	require.True(t, ok)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 20.0, stats.Max)
}

func TestNames(t *testing.T) {
	r := NewRecorder(10)
	r.Record("b", 1, nil)
	r.Record("a", 1, nil)
	r.Record("b", 1, nil)

	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestRecorderPurgeOlderThan(t *testing.T) {
	now := time.Now()
	r := NewRecorder(10, WithClock(func() time.Time { return now }))

	r.Record("old", 1, nil)
	now = now.Add(time.Hour)
	r.Record("new", 1, nil)

	assert.Equal(t, 1, r.PurgeOlderThan(30*time.Minute))
	assert.Equal(t, "new", r.Query(Filter{})[0].Name)

	assert.Equal(t, 1, r.PurgeOlderThan(0))
	assert.Equal(t, 0, r.Len())
}

func TestRecorderListeners(t *testing.T) {
	var got []string
	r := NewRecorder(10, WithListener(func(m PerformanceMetric) { panic("bad listener") }))
	r.AddListener(func(m PerformanceMetric) { got = append(got, m.Name) })

	assert.NotPanics(t, func() { r.Record("op", 1, nil) })
	assert.Equal(t, []string{"op"}, got)
}

func TestRecorderConcurrentAccess(t *testing.T) {
	r := NewRecorder(50)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Record("op", float64(i), nil)
				r.Stats("op")
			}
		}()
	}
	wg.Wait()

	stats, ok := r.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 50, stats.Count)
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 1.5, Milliseconds(1500*time.Microsecond))
}
