package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thisdougb/gamehealth/internal/probe"
)

// SQLiteBackend is both the event/metric archive and a resource store.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path and applies
// migrations.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// WriteEvents inserts events in a single transaction.
func (s *SQLiteBackend) WriteEvents(events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events
		(timestamp, session_id, category, message, subject_id, module_id, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		details := ""
		if len(e.Details) > 0 {
			data, err := json.Marshal(e.Details)
			if err != nil {
				// opaque payloads that cannot be encoded are stored as text
				data = []byte(fmt.Sprintf("%q", fmt.Sprint(e.Details)))
			}
			details = string(data)
		}

		if _, err := stmt.Exec(
			e.Timestamp.UnixNano(),
			e.SessionID,
			e.Category,
			e.Message,
			e.SubjectID,
			e.ModuleID,
			details,
		); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// WriteMetricWindows upserts windows, merging with an existing window of the
// same key and name.
func (s *SQLiteBackend) WriteMetricWindows(windows []MetricWindow) error {
	if len(windows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO metric_windows
		(window_key, name, min_ms, max_ms, avg_ms, count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(window_key, name) DO UPDATE SET
			min_ms = MIN(min_ms, excluded.min_ms),
			max_ms = MAX(max_ms, excluded.max_ms),
			avg_ms = (avg_ms * count + excluded.avg_ms * excluded.count) / (count + excluded.count),
			count = count + excluded.count`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		if _, err := stmt.Exec(w.WindowKey, w.Name, w.MinMs, w.MaxMs, w.AvgMs, w.Count); err != nil {
			return fmt.Errorf("failed to insert metric window: %w", err)
		}
	}

	return tx.Commit()
}

// ReadEvents returns matching events oldest first. With a Limit only the
// newest Limit events are returned.
func (s *SQLiteBackend) ReadEvents(query EventQuery) ([]EventRecord, error) {
	var where []string
	var args []interface{}

	if query.Category != "" {
		where = append(where, "category = ?")
		args = append(args, query.Category)
	}
	if query.SubjectID != "" {
		where = append(where, "subject_id = ?")
		args = append(args, query.SubjectID)
	}
	if query.ModuleID != "" {
		where = append(where, "module_id = ?")
		args = append(args, query.ModuleID)
	}
	if !query.Start.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, query.Start.UnixNano())
	}
	if !query.End.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, query.End.UnixNano())
	}

	sqlQuery := `SELECT timestamp, session_id, category, message, subject_id, module_id, details FROM events`
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY timestamp DESC, id DESC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var ts int64
		var details string
		if err := rows.Scan(&ts, &e.SessionID, &e.Category, &e.Message, &e.SubjectID, &e.ModuleID, &details); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		if details != "" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				e.Details = map[string]any{"raw": details}
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// newest first from the query, callers expect oldest first
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// ReadMetricWindows returns windows of name (all names when empty) between
// start and end.
func (s *SQLiteBackend) ReadMetricWindows(name string, start, end time.Time) ([]MetricWindow, error) {
	query := `SELECT window_key, name, min_ms, max_ms, avg_ms, count FROM metric_windows
		WHERE window_key >= ? AND window_key <= ?`
	args := []interface{}{timeToWindowKey(start.Truncate(time.Minute)), timeToWindowKey(end)}
	if name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}
	query += " ORDER BY window_key ASC, name ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric windows: %w", err)
	}
	defer rows.Close()

	var windows []MetricWindow
	for rows.Next() {
		var w MetricWindow
		if err := rows.Scan(&w.WindowKey, &w.Name, &w.MinMs, &w.MaxMs, &w.AvgMs, &w.Count); err != nil {
			return nil, fmt.Errorf("failed to scan metric window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return windows, nil
}

// Ping performs a single round trip query.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// PutResource inserts or replaces a resource.
func (s *SQLiteBackend) PutResource(ctx context.Context, r probe.Resource) error {
	data := ""
	if len(r.Data) > 0 {
		encoded, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("failed to encode resource data: %w", err)
		}
		data = string(encoded)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO resources (id, owner_id, module_id, data) VALUES (?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.ModuleID, data)
	if err != nil {
		return fmt.Errorf("failed to put resource: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]probe.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, module_id, data FROM resources WHERE owner_id = ? AND module_id = ? ORDER BY id`,
		ownerID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []probe.Resource
	for rows.Next() {
		var r probe.Resource
		var data string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.ModuleID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		if data != "" {
			_ = json.Unmarshal([]byte(data), &r.Data)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return resources, nil
}

// CreateBackup writes a backup using the open connection.
func (s *SQLiteBackend) CreateBackup(cfg *BackupConfig) error {
	if s.db == nil {
		return fmt.Errorf("no database connection available")
	}
	return BackupDatabase(s.db, cfg)
}

func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
