package storage

import (
	"time"

	"github.com/thisdougb/gamehealth/internal/config"
)

// BackupConfig holds backup-specific configuration
type BackupConfig struct {
	Enabled       bool
	BackupDir     string
	RetentionDays int
}

// Config holds all configuration options for the archive
type Config struct {
	Enabled       bool
	DBPath        string
	FlushInterval time.Duration
	BatchSize     int
	Backup        BackupConfig
}

// LoadConfig reads the archive configuration from the environment.
func LoadConfig() *Config {
	cfg := &Config{
		Enabled:       config.BoolValue("HEALTH_PERSISTENCE_ENABLED"),
		DBPath:        config.StringValue("HEALTH_DB_PATH"),
		FlushInterval: config.DurationValue("HEALTH_FLUSH_INTERVAL"),
		BatchSize:     config.IntValue("HEALTH_BATCH_SIZE"),
		Backup: BackupConfig{
			Enabled:       config.BoolValue("HEALTH_BACKUP_ENABLED"),
			BackupDir:     config.StringValue("HEALTH_BACKUP_DIR"),
			RetentionDays: config.IntValue("HEALTH_BACKUP_RETENTION_DAYS"),
		},
	}

	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 60 * time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.Backup.RetentionDays < 0 {
		cfg.Backup.RetentionDays = 30
	}
	return cfg
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *Config {
	return &Config{
		Enabled:       true,
		DBPath:        ":memory:",
		FlushInterval: time.Second,
		BatchSize:     10,
	}
}
