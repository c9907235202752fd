package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdougb/gamehealth/internal/core"
	"github.com/thisdougb/gamehealth/internal/events"
	"github.com/thisdougb/gamehealth/internal/metrics"
	"github.com/thisdougb/gamehealth/internal/probe"
	"github.com/thisdougb/gamehealth/internal/storage"
)

type testEnv struct {
	svc     *core.Service
	store   *storage.MemoryStore
	archive *storage.Manager
	router  http.Handler
}

func setupTestService(t *testing.T, withArchive bool) *testEnv {
	t.Helper()

	registry := probe.NewRegistry()
	require.NoError(t, registry.Register(probe.Module{ID: "roulette", Name: "Roulette"}))
	require.NoError(t, registry.Register(probe.Module{ID: "trivia", Name: "Trivia"}))

	env := &testEnv{store: storage.NewMemoryStore()}
	if withArchive {
		env.archive = storage.NewManager(storage.NewMemoryArchive(), storage.TestConfig())
	}

	exporter := metrics.NewPrometheusExporter("")
	env.svc = core.NewService(core.Dependencies{
		Registry:  registry,
		Resources: env.store,
		Pinger:    env.store,
		Archive:   env.archive,
		Exporter:  exporter,
		Timeout:   time.Second,
	})
	env.router = NewRouter(env.svc, exporter)
	t.Cleanup(func() { env.svc.Close() })
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	env := setupTestService(t, false)

	rec := env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var report probe.SystemHealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, probe.StatusHealthy, report.Overall)
	require.Len(t, report.Modules, 2)
	assert.Equal(t, "roulette", report.Modules[0].ModuleID)
}

func TestHealthHandlerWithSubject(t *testing.T) {
	env := setupTestService(t, false)
	env.store.Put(probe.Resource{ID: "bet-1", OwnerID: "u1", ModuleID: "roulette"})

	rec := env.do(t, http.MethodGet, "/health?subject=u1")
	require.Equal(t, http.StatusOK, rec.Code)

	var report probe.SystemHealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Modules[0].Checks, 3)
	assert.Contains(t, report.Modules[0].Checks[1].Message, "found 1 resources")
}

func TestHealthHandlerPersistenceOutage(t *testing.T) {
	env := setupTestService(t, false)
	env.store.PingErr = errors.New("connection refused")

	rec := env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report probe.SystemHealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, probe.StatusError, report.Overall)
	assert.False(t, report.Persistence.Connected)
}

func TestStatusHandler(t *testing.T) {
	env := setupTestService(t, false)

	// no report yet, one is run
	rec := env.do(t, http.MethodGet, "/health/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP\n", rec.Body.String())

	env.store.PingErr = errors.New("down")
	env.do(t, http.MethodGet, "/health")

	rec = env.do(t, http.MethodGet, "/health/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DOWN\n", rec.Body.String())
}

func TestLogsHandler(t *testing.T) {
	env := setupTestService(t, false)
	log := env.svc.Log()
	log.Record(events.CategoryPayment, "deposit", events.WithSubject("u1"))
	log.Record(events.CategoryGame, "spin", events.WithSubject("u1"), events.WithModule("roulette"))
	log.Record(events.CategoryGame, "answer", events.WithSubject("u2"), events.WithModule("trivia"))

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"deposit", "spin", "answer"}},
		{"?category=game", []string{"spin", "answer"}},
		{"?subject=u1", []string{"deposit", "spin"}},
		{"?category=game&module=trivia", []string{"answer"}},
		{"?category=auth", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/logs"+tc.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var logs []events.LogEvent
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
			messages := make([]string, 0, len(logs))
			for _, e := range logs {
				messages = append(messages, e.Message)
			}
			assert.Equal(t, tc.expected, messages)
		})
	}
}

func TestClearLogsHandler(t *testing.T) {
	env := setupTestService(t, false)
	env.svc.Log().Record(events.CategoryInfo, "a")
	env.svc.Recorder().Record("op", 5, nil)

	rec := env.do(t, http.MethodDelete, "/logs?max_age=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/logs?max_age=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ClearResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ClearResponse{}, resp)

	rec = env.do(t, http.MethodDelete, "/logs")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ClearResponse{EventsRemoved: 1, MetricsRemoved: 1}, resp)
}

func TestSummaryHandler(t *testing.T) {
	env := setupTestService(t, false)
	env.svc.Log().Record(events.CategoryError, "payment provider timeout")
	env.svc.Log().Record(events.CategoryWarning, "slow query")

	rec := env.do(t, http.MethodGet, "/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary core.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, core.Summary{TotalLogs: 2, ErrorCount: 1, WarningCount: 1, Health: core.SummaryWarning}, summary)
}

func TestExportHandler(t *testing.T) {
	env := setupTestService(t, false)
	env.svc.Log().Record(events.CategoryInfo, "hello")

	rec := env.do(t, http.MethodGet, "/export")
	require.Equal(t, http.StatusOK, rec.Code)
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment"))
	assert.Contains(t, disposition, env.svc.SessionID())

	var snapshot core.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, env.svc.SessionID(), snapshot.SessionID)
	assert.Len(t, snapshot.Logs, 1)
}

func TestMetricStatsHandler(t *testing.T) {
	env := setupTestService(t, false)
	env.svc.Recorder().Record("db.query", 10, nil)
	env.svc.Recorder().Record("db.query", 20, nil)

	rec := env.do(t, http.MethodGet, "/metrics/stats/db.query")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats metrics.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, metrics.Stats{Count: 2, Avg: 15, Min: 10, Max: 20, Sum: 30}, stats)

	rec = env.do(t, http.MethodGet, "/metrics/stats/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrometheusRoute(t *testing.T) {
	env := setupTestService(t, false)
	env.do(t, http.MethodGet, "/health")

	rec := env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gamehealth_module_status")
	assert.Contains(t, rec.Body.String(), "gamehealth_persistence_connected")
}

func TestEventHistoryHandler(t *testing.T) {
	env := setupTestService(t, true)
	env.svc.Log().Record(events.CategoryAuth, "login", events.WithSubject("u1"))
	env.svc.Log().Record(events.CategoryAuth, "login", events.WithSubject("u2"))
	require.NoError(t, env.archive.Flush())

	rec := env.do(t, http.MethodGet, "/logs/history?subject=u1&lookback=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []storage.EventRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0].SubjectID)

	rec = env.do(t, http.MethodGet, "/logs/history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/logs/history?lookback=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/logs/history?lookback=-1h")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryWithoutArchive(t *testing.T) {
	env := setupTestService(t, false)

	rec := env.do(t, http.MethodGet, "/logs/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics/history/op?window=1m&lookback=1h")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricHistoryHandler(t *testing.T) {
	env := setupTestService(t, true)
	env.svc.Recorder().Record("db.query", 10, nil)
	env.svc.Recorder().Record("db.query", 30, nil)
	env.svc.Recorder().Record("other", 99, nil)
	require.NoError(t, env.archive.Flush())

	rec := env.do(t, http.MethodGet, "/metrics/history/db.query?window=1h&lookback=2h")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TimeSeriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "db.query", resp.Metric)
	assert.Equal(t, "2h", resp.RequestParams.Lookback)
	require.Len(t, resp.Windows, 1)
	assert.Equal(t, 2, resp.Windows[0].Count)
	assert.Equal(t, 20.0, resp.Windows[0].AvgMs)
	assert.Equal(t, 10.0, resp.Windows[0].MinMs)
	assert.Equal(t, 30.0, resp.Windows[0].MaxMs)
}

func TestMetricHistoryHandlerValidation(t *testing.T) {
	env := setupTestService(t, true)

	tests := []struct {
		name  string
		query string
	}{
		{"missing window", "?lookback=1h"},
		{"bad window", "?window=wide&lookback=1h"},
		{"both directions", "?window=1m&lookback=1h&lookahead=1h"},
		{"no direction", "?window=1m"},
		{"bad date", "?window=1m&lookback=1h&date=01/10/2026"},
		{"bad time", "?window=1m&lookback=1h&time=25:00"},
		{"negative lookback", "?window=1m&lookback=-1h"},
		{"negative lookahead", "?window=1m&lookahead=-30m"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/metrics/history/op"+tc.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

type panickingService struct {
	*core.Service
}

func (p panickingService) GetSystemSummary() core.Summary {
	panic("summary exploded")
}

func TestRecoverMiddleware(t *testing.T) {
	env := setupTestService(t, false)
	router := NewRouter(panickingService{env.svc}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestRequestIDPropagation(t *testing.T) {
	env := setupTestService(t, false)

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	req.Header.Set("X-Request-Id", "abc123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.True(t, strings.HasSuffix(rec.Header().Get("X-Request-Id"), "-http-abc123"))
}
