package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// ErrArchiveDisabled is returned by reads when no archive is configured.
var ErrArchiveDisabled = errors.New("persistence not enabled")

// Manager owns the archive and its write queue.
type Manager struct {
	archive Archive
	queue   *WriteQueue
	backup  BackupConfig
	enabled bool
}

// NewManager wraps archive. A disabled manager, or one without an archive,
// accepts writes as no-ops.
func NewManager(archive Archive, cfg *Config) *Manager {
	if cfg == nil {
		cfg = TestConfig()
	}
	m := &Manager{
		archive: archive,
		backup:  cfg.Backup,
		enabled: cfg.Enabled && archive != nil,
	}
	if m.enabled {
		m.queue = NewWriteQueue(archive, cfg.FlushInterval, cfg.BatchSize)
		m.queue.Start()
	}
	return m
}

// NewManagerFromConfig opens the SQLite archive when HEALTH_PERSISTENCE_ENABLED
// is set, otherwise returns a disabled manager.
func NewManagerFromConfig() (*Manager, error) {
	cfg := LoadConfig()
	if !cfg.Enabled {
		return NewManager(nil, cfg), nil
	}

	backend, err := NewSQLiteBackend(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
	}
	return NewManager(backend, cfg), nil
}

// IsEnabled reports whether the archive is active.
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// ArchiveEvent queues an event for archiving.
func (m *Manager) ArchiveEvent(e EventRecord) {
	if !m.enabled {
		return
	}
	if !m.queue.EnqueueEvent(e) {
		config.LogWarn(context.Background(), "archive queue full, event dropped")
	}
}

// ArchiveMetric queues a metric for archiving.
func (m *Manager) ArchiveMetric(r MetricRecord) {
	if !m.enabled {
		return
	}
	if !m.queue.EnqueueMetric(r) {
		config.LogWarn(context.Background(), "archive queue full, metric dropped")
	}
}

// Flush writes pending entries now.
func (m *Manager) Flush() error {
	if !m.enabled {
		return nil
	}
	return m.queue.Flush()
}

// ReadEvents reads archived events.
func (m *Manager) ReadEvents(query EventQuery) ([]EventRecord, error) {
	if !m.enabled {
		return nil, ErrArchiveDisabled
	}
	return m.archive.ReadEvents(query)
}

// ReadMetricWindows reads archived metric windows.
func (m *Manager) ReadMetricWindows(name string, start, end time.Time) ([]MetricWindow, error) {
	if !m.enabled {
		return nil, ErrArchiveDisabled
	}
	return m.archive.ReadMetricWindows(name, start, end)
}

// CreateBackup backs up the archive. It is a no-op unless backups are
// enabled and the archive is SQLite.
func (m *Manager) CreateBackup() error {
	if !m.enabled || !m.backup.Enabled {
		return nil
	}
	backend, ok := m.archive.(*SQLiteBackend)
	if !ok {
		return nil
	}
	if err := m.queue.Flush(); err != nil {
		return fmt.Errorf("failed to flush before backup: %w", err)
	}
	return backend.CreateBackup(&m.backup)
}

// ListBackups lists the available backup files.
func (m *Manager) ListBackups() ([]string, error) {
	return ListBackups(&m.backup)
}

// BackupInfo describes the backup configuration.
func (m *Manager) BackupInfo() map[string]interface{} {
	return map[string]interface{}{
		"enabled":        m.backup.Enabled,
		"backup_dir":     m.backup.BackupDir,
		"retention_days": m.backup.RetentionDays,
	}
}

// Close flushes the queue, takes a final backup when enabled and closes the
// archive.
func (m *Manager) Close() error {
	if !m.enabled {
		return nil
	}

	m.queue.Stop()

	var backupErr error
	if m.backup.Enabled {
		if backend, ok := m.archive.(*SQLiteBackend); ok {
			backupErr = backend.CreateBackup(&m.backup)
		}
	}

	if err := m.archive.Close(); err != nil {
		return err
	}
	if backupErr != nil {
		return fmt.Errorf("backup on close failed: %w", backupErr)
	}
	return nil
}
