package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	// HTTPAddr serves the operational endpoints (/healthz, /readyz, /metrics).
	// The interactive command surface is a separate, external caller.
	HTTPAddr string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	// LockTimeout bounds balance-row lock waits in the ledger store.
	LockTimeout time.Duration

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("TELLER_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("TELLER_LOG_LEVEL", "info"),

		DatabaseURL: EnvString("TELLER_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TELLER_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TELLER_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("TELLER_DB_SCHEMA", "teller"),

		LockTimeout: EnvDuration("TELLER_LOCK_TIMEOUT", 3*time.Second),

		ReadinessRequireDB: EnvBool("TELLER_READINESS_REQUIRE_DB", false),
	}
}
