package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupPrefix     = "gamehealth_"
	backupSuffix     = ".db"
	backupDateLayout = "20060102"
)

// BackupFileName returns the backup file name for the given day.
func BackupFileName(day time.Time) string {
	return backupPrefix + day.Format(backupDateLayout) + backupSuffix
}

// BackupDatabase writes a consistent copy of db using VACUUM INTO, replacing
// today's backup if one exists, then applies the retention policy.
func BackupDatabase(db *sql.DB, cfg *BackupConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath := filepath.Join(cfg.BackupDir, BackupFileName(time.Now()))

	// VACUUM INTO refuses to overwrite
	if _, err := os.Stat(backupPath); err == nil {
		if err := os.Remove(backupPath); err != nil {
			return fmt.Errorf("failed to remove existing backup: %w", err)
		}
	}

	escaped := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	if err := CleanupBackups(cfg); err != nil {
		return fmt.Errorf("backup succeeded but cleanup failed: %w", err)
	}
	return nil
}

// CleanupBackups removes backups older than the retention period. A
// retention of zero keeps everything.
func CleanupBackups(cfg *BackupConfig) error {
	if cfg.RetentionDays == 0 {
		return nil
	}

	files, err := os.ReadDir(cfg.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)

	for _, file := range files {
		day, ok := backupDay(file.Name())
		if !ok || day.After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(cfg.BackupDir, file.Name())); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", file.Name(), err)
		}
	}
	return nil
}

// ListBackups returns backup file names oldest first.
func ListBackups(cfg *BackupConfig) ([]string, error) {
	files, err := os.ReadDir(cfg.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []string{}
	for _, file := range files {
		if _, ok := backupDay(file.Name()); ok {
			backups = append(backups, file.Name())
		}
	}

	// the date layout sorts chronologically
	sort.Strings(backups)
	return backups, nil
}

// RestoreDatabase copies a backup over targetPath. The archive must not be
// open while restoring.
func RestoreDatabase(backupName, targetPath string, cfg *BackupConfig) error {
	if _, ok := backupDay(backupName); !ok {
		return fmt.Errorf("not a backup file: %s", backupName)
	}

	src, err := os.Open(filepath.Join(cfg.BackupDir, backupName))
	if err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

func backupDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	datePart := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	day, err := time.ParseInLocation(backupDateLayout, datePart, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
