/*
Package health is the observability core of a party-game backend: an
in-memory event log, a performance metric recorder, a measurement wrapper
and an on-demand system health check over the game modules and the
persistence store.

Events and metrics live in capacity bounded buffers, the oldest entry is
evicted first. Recording never blocks on I/O and never panics into the
caller. Error events are also exported to an optional sink (Kafka when
HEALTH_KAFKA_BROKERS is set) on a background goroutine.

A full health check probes the store and every registered module
concurrently, each probe bounded by HEALTH_PROBE_TIMEOUT, and combines the
results into one report. Module failures never abort the check.

Example:

	m, err := health.NewMonitor(ctx, health.WithModules(
		health.Module{ID: "roulette", Name: "Roulette"},
		health.Module{ID: "trivia", Name: "Trivia"},
	))
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close() // Always close gracefully to flush pending data

	m.Record(health.CategoryPayment, "deposit accepted",
		health.WithSubject("user-42"),
		health.WithDetails(map[string]any{"amount": 20}))

	balance, err := health.Measure(ctx, m, "wallet.balance",
		func(ctx context.Context) (int, error) { return wallet.Balance(ctx, "user-42") },
		map[string]any{"user": "user-42"})

	report, err := m.RunFullHealthCheck(ctx, "user-42")

	http.Handle("/", m.Handler())

Output of GET /health:

	{
		"overall": "healthy",
		"modules": [
			{
				"module_id": "roulette",
				"module_name": "Roulette",
				"status": "healthy",
				"checks": [
					{"check_name": "reachability", "passed": true, "message": "module roulette is registered"},
					{"check_name": "scoped_resources", "passed": true, "message": "found 3 resources for subject user-42"},
					{"check_name": "configuration", "passed": true, "message": "no configuration to validate"}
				],
				"last_checked": "2026-10-18T09:12:44Z"
			}
		],
		"persistence": {"connected": true, "response_time_ms": 0.8},
		"timestamp": "2026-10-18T09:12:44Z",
		"duration_ms": 1.6
	}

Configuration:

	HEALTH_MODULES_FILE="/etc/gamehealth/modules.yaml"
	HEALTH_STORE_DRIVER="postgres"   // memory, sqlite, postgres, redis, mongo
	HEALTH_STORE_DSN="postgres://health@db/game"
	HEALTH_PROBE_TIMEOUT="5s"

	// Archive events and metrics to SQLite for historical analysis
	HEALTH_PERSISTENCE_ENABLED=true
	HEALTH_DB_PATH="/data/health.db"
	HEALTH_FLUSH_INTERVAL="60s"
	HEALTH_BATCH_SIZE="100"
*/
package health
