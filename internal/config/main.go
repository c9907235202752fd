package config

import (
	"os"
	"strconv"
	"time"
)

var defaultValues = map[string]interface{}{
	// Event log and metric recorder
	"HEALTH_EVENT_CAPACITY":  1000, // Max log events held in memory
	"HEALTH_METRIC_CAPACITY": 500,  // Max performance metrics held in memory
	"HEALTH_SAMPLE_RATE":     60,   // Runtime sampler interval in seconds, 0 disables

	// Health checks
	"HEALTH_PROBE_TIMEOUT":    5 * time.Second,  // Deadline for a single probe
	"HEALTH_CHECK_INTERVAL":   60 * time.Second, // Interval used by Monitor.RunEvery
	"HEALTH_MODULES_FILE":     "",               // YAML module registry
	"HEALTH_DISABLED_MODULES": "",               // Comma separated module ids to mark disabled

	// Persistence collaborator probed by the health checker
	"HEALTH_STORE_DRIVER": "memory", // memory, sqlite, postgres, redis, mongo
	"HEALTH_STORE_DSN":    "",       // Driver specific DSN or URL

	// Archive of events and metrics
	"HEALTH_PERSISTENCE_ENABLED":   false,            // Enable SQLite archive
	"HEALTH_DB_PATH":               "/tmp/health.db", // SQLite archive path
	"HEALTH_FLUSH_INTERVAL":        60 * time.Second, // How often to flush the archive queue
	"HEALTH_BATCH_SIZE":            100,              // Entries to batch before writing
	"HEALTH_BACKUP_ENABLED":        false,            // Enable archive backups
	"HEALTH_BACKUP_DIR":            "./backups",      // Directory for backup files
	"HEALTH_BACKUP_RETENTION_DAYS": 30,               // Days to retain backup files

	// Error sink
	"HEALTH_KAFKA_BROKERS": "",              // Comma separated, empty disables
	"HEALTH_KAFKA_TOPIC":   "health-errors", // Topic for error events

	// Daemon
	"HEALTH_HTTP_ADDR": ":8080",
	"HEALTH_GRPC_ADDR": ":9090",

	"HEALTH_LOG_LEVEL": "info",
	"HEALTH_DEBUG":     false, // Enable debug logging
}

func StringValue(key string) string {
	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(string)).(string)
	}
	return ""
}

// IntValue gets an int value from the env or default
func IntValue(key string) int {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(int)).(int)
	}
	return 0
}

// BoolValue gets a bool value from the env or default
func BoolValue(key string) bool {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(bool)).(bool)
	}
	return false
}

// DurationValue gets a duration from the env (Go duration syntax) or default
func DurationValue(key string) time.Duration {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(time.Duration)).(time.Duration)
	}
	return 0
}

func getEnvVar(key string, fallback interface{}) interface{} {

	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	switch fallback.(type) {
	case string:
		return value
	case bool:
		valueAsBool, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return valueAsBool
	case int:
		valueAsInt, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return valueAsInt
	case time.Duration:
		valueAsDuration, err := time.ParseDuration(value)
		if err != nil || valueAsDuration < 0 {
			return fallback
		}
		return valueAsDuration
	}
	return fallback
}
