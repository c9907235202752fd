package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_Disabled(t *testing.T) {
	manager := NewManager(nil, &Config{Enabled: false})
	defer manager.Close()

	if manager.IsEnabled() {
		t.Fatal("Expected disabled manager")
	}

	manager.ArchiveEvent(EventRecord{Category: "info"})
	manager.ArchiveMetric(MetricRecord{Name: "db"})

	if _, err := manager.ReadEvents(EventQuery{}); !errors.Is(err, ErrArchiveDisabled) {
		t.Errorf("Expected ErrArchiveDisabled, got %v", err)
	}
	if err := manager.CreateBackup(); err != nil {
		t.Errorf("Backup should be a no-op when disabled, got %v", err)
	}
}

func TestManager_ArchiveAndRead(t *testing.T) {
	archive := NewMemoryArchive()
	manager := NewManager(archive, TestConfig())
	defer manager.Close()

	now := time.Now()
	manager.ArchiveEvent(EventRecord{Timestamp: now, Category: "error", Message: "boom"})
	manager.ArchiveMetric(MetricRecord{Timestamp: now, Name: "db", DurationMs: 12})

	if err := manager.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	events, err := manager.ReadEvents(EventQuery{Category: "error"})
	if err != nil || len(events) != 1 {
		t.Fatalf("Expected 1 archived event, got %v, %v", events, err)
	}

	windows, err := manager.ReadMetricWindows("db", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || len(windows) != 1 || windows[0].AvgMs != 12 {
		t.Fatalf("Unexpected windows: %+v, %v", windows, err)
	}
}

func TestManager_FromConfigWithBackupOnClose(t *testing.T) {
	tempDir := t.TempDir()
	backupDir := filepath.Join(tempDir, "backups")

	t.Setenv("HEALTH_PERSISTENCE_ENABLED", "true")
	t.Setenv("HEALTH_DB_PATH", filepath.Join(tempDir, "test.db"))
	t.Setenv("HEALTH_BACKUP_ENABLED", "true")
	t.Setenv("HEALTH_BACKUP_DIR", backupDir)

	manager, err := NewManagerFromConfig()
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if !manager.IsEnabled() {
		t.Fatal("Expected enabled manager")
	}

	manager.ArchiveEvent(EventRecord{Timestamp: time.Now(), Category: "info", Message: "close test"})

	if err := manager.CreateBackup(); err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}
	backups, err := manager.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %v, %v", backups, err)
	}

	os.Remove(filepath.Join(backupDir, backups[0]))

	if err := manager.Close(); err != nil {
		t.Fatalf("Failed to close manager: %v", err)
	}
	if _, err := os.Stat(filepath.Join(backupDir, BackupFileName(time.Now()))); err != nil {
		t.Fatalf("Backup file was not created on close: %v", err)
	}
}

func TestManager_BackupInfo(t *testing.T) {
	t.Setenv("HEALTH_BACKUP_ENABLED", "true")
	t.Setenv("HEALTH_BACKUP_DIR", "/tmp/gamehealth-backups")

	manager := NewManager(nil, LoadConfig())
	info := manager.BackupInfo()

	if info["enabled"] != true {
		t.Errorf("Expected enabled=true, got %v", info["enabled"])
	}
	if info["backup_dir"] != "/tmp/gamehealth-backups" {
		t.Errorf("Unexpected backup_dir %v", info["backup_dir"])
	}
	if info["retention_days"] != 30 {
		t.Errorf("Expected retention_days=30, got %v", info["retention_days"])
	}
}
