package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	Port string

	StateBackend string // memory | mysql
	MySQLDSN     string // required when STATE_BACKEND=mysql

	// Optional: run migrations at startup (dev convenience)
	RunMigrations bool
	MigrationsDir string

	LogLevel string

	// Worker tuning
	WorkerPollEvery   time.Duration
	WorkerStaleAfter  time.Duration
	WorkerMaxAttempts int
	WorkerMaxPerClaim int

	// Per-row store retry budget within one ingestion attempt
	RowAttempts int

	// Upper bound for satisfaction scores; values above reject, not clamp
	MaxScore string

	// protocol_only | synthetic — what to use as the dedup key for rows
	// without a protocol identifier
	DedupPolicy string

	MaxBatchRows int
}

const (
	DedupProtocolOnly = "protocol_only"
	DedupSynthetic    = "synthetic"
)

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:               getenv("ENV", "dev"),
		Port:              getenv("PORT", "8080"),
		StateBackend:      getenv("STATE_BACKEND", "memory"),
		MySQLDSN:          getenv("DB_DSN", ""),
		RunMigrations:     getenv("RUN_MIGRATIONS", "false") == "true",
		MigrationsDir:     getenv("MIGRATIONS_DIR", "./migrations"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		WorkerPollEvery:   getdur("WORKER_POLL_EVERY", 10*time.Second),
		WorkerStaleAfter:  getdur("WORKER_STALE_AFTER", 5*time.Minute),
		WorkerMaxAttempts: getint("WORKER_MAX_ATTEMPTS", 3),
		WorkerMaxPerClaim: getint("WORKER_MAX_PER_CLAIM", 10),
		RowAttempts:       getint("ROW_RETRY_ATTEMPTS", 3),
		MaxScore:          getenv("MAX_SCORE", "10"),
		DedupPolicy:       getenv("DEDUP_POLICY", DedupProtocolOnly),
		MaxBatchRows:      getint("MAX_BATCH_ROWS", 50000),
	}
}

func getenv(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getdur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
