package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thisdougb/gamehealth/internal/probe"
)

func setupTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	backend, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSQLiteBackend_NewBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	backend, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer backend.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created")
	}

	version, err := SchemaVersion(backend.db)
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != len(archiveMigrations) {
		t.Fatalf("Expected schema version %d, got %d", len(archiveMigrations), version)
	}
}

func TestSQLiteMigrations_Idempotent(t *testing.T) {
	backend := setupTestSQLiteBackend(t)

	if err := runMigrations(backend.db); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}

	var count int
	if err := backend.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != len(archiveMigrations) {
		t.Errorf("Expected %d migration rows, got %d", len(archiveMigrations), count)
	}
}

func TestSQLiteBackend_WriteAndReadEvents(t *testing.T) {
	backend := setupTestSQLiteBackend(t)
	now := time.Now()

	events := []EventRecord{
		{Timestamp: now.Add(-time.Minute), SessionID: "s1", Category: "error", Message: "db down", ModuleID: "roulette",
			Details: map[string]any{"attempt": 3}},
		{Timestamp: now, SessionID: "s1", Category: "info", Message: "recovered", SubjectID: "u1"},
	}
	if err := backend.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	all, err := backend.ReadEvents(EventQuery{})
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(all))
	}
	if all[0].Message != "db down" || all[1].Message != "recovered" {
		t.Errorf("Events not oldest first: %+v", all)
	}
	if all[0].Details["attempt"] != float64(3) {
		t.Errorf("Details not round-tripped: %+v", all[0].Details)
	}
	if !all[1].Timestamp.Equal(now) {
		t.Errorf("Timestamp mismatch: %v != %v", all[1].Timestamp, now)
	}

	errorsOnly, _ := backend.ReadEvents(EventQuery{Category: "error", ModuleID: "roulette"})
	if len(errorsOnly) != 1 {
		t.Errorf("Expected 1 error event, got %d", len(errorsOnly))
	}

	newest, _ := backend.ReadEvents(EventQuery{Limit: 1})
	if len(newest) != 1 || newest[0].Message != "recovered" {
		t.Errorf("Expected newest event with limit, got %+v", newest)
	}
}

func TestSQLiteBackend_MetricWindowsMerge(t *testing.T) {
	backend := setupTestSQLiteBackend(t)
	window := time.Now().UTC().Truncate(time.Minute)
	key := timeToWindowKey(window)

	first := []MetricWindow{{WindowKey: key, Name: "db", MinMs: 10, MaxMs: 30, AvgMs: 20, Count: 2}}
	second := []MetricWindow{{WindowKey: key, Name: "db", MinMs: 5, MaxMs: 25, AvgMs: 15, Count: 2}}

	if err := backend.WriteMetricWindows(first); err != nil {
		t.Fatalf("WriteMetricWindows failed: %v", err)
	}
	if err := backend.WriteMetricWindows(second); err != nil {
		t.Fatalf("WriteMetricWindows failed: %v", err)
	}

	got, err := backend.ReadMetricWindows("db", window.Add(-time.Minute), window.Add(time.Minute))
	if err != nil {
		t.Fatalf("ReadMetricWindows failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 merged window, got %d", len(got))
	}
	w := got[0]
	if w.Count != 4 || w.MinMs != 5 || w.MaxMs != 30 || w.AvgMs != 17.5 {
		t.Errorf("Unexpected merged window: %+v", w)
	}
}

func TestSQLiteBackend_MetricWindowsPartialStart(t *testing.T) {
	backend := setupTestSQLiteBackend(t)
	window := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := backend.WriteMetricWindows([]MetricWindow{{WindowKey: timeToWindowKey(window), Name: "db", MinMs: 1, MaxMs: 1, AvgMs: 1, Count: 1}}); err != nil {
		t.Fatalf("WriteMetricWindows failed: %v", err)
	}

	got, err := backend.ReadMetricWindows("db", window.Add(30*time.Second), window.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("ReadMetricWindows failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected the 12:00 window, got %+v", got)
	}
}

func TestSQLiteBackend_EmptyWrites(t *testing.T) {
	backend := setupTestSQLiteBackend(t)

	if err := backend.WriteEvents(nil); err != nil {
		t.Errorf("WriteEvents(nil) failed: %v", err)
	}
	if err := backend.WriteMetricWindows([]MetricWindow{}); err != nil {
		t.Errorf("WriteMetricWindows(empty) failed: %v", err)
	}
}

func TestSQLiteBackend_ResourceStore(t *testing.T) {
	backend := setupTestSQLiteBackend(t)
	ctx := context.Background()

	if err := backend.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	resources := []probe.Resource{
		{ID: "bet-1", OwnerID: "u1", ModuleID: "roulette", Data: map[string]any{"stake": 5.0}},
		{ID: "bet-2", OwnerID: "u1", ModuleID: "roulette"},
		{ID: "quiz-1", OwnerID: "u1", ModuleID: "trivia"},
	}
	for _, r := range resources {
		if err := backend.PutResource(ctx, r); err != nil {
			t.Fatalf("PutResource failed: %v", err)
		}
	}

	got, err := backend.QueryByOwnerAndModule(ctx, "u1", "roulette")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "bet-1" || got[0].Data["stake"] != 5.0 {
		t.Errorf("Unexpected resources: %+v", got)
	}

	none, err := backend.QueryByOwnerAndModule(ctx, "u2", "roulette")
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no resources, got %v, %v", none, err)
	}

	backend.Close()
	if err := backend.Ping(ctx); err == nil {
		t.Error("Expected ping to fail after close")
	}
}
