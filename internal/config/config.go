package config

import (
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	Store        string // sqlite | memory
	DatabasePath string

	// Resilience
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxConcurrency  int
	ConflictRetries int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Events
	AMQPURL      string
	AMQPExchange string

	// Ledger policy
	RejectOverLimit bool

	// JWT / Auth
	JWTSecret string

	// Dev mode
	DevAuth bool // DEV_AUTH=true accepts X-Owner-ID instead of a bearer token
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Store:        getEnv("STORE", StoreSQLite),
		DatabasePath: getEnv("DATABASE_PATH", "data/fineixo.db"),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:  getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 50),
		ConflictRetries: getEnvInt("CONFLICT_RETRIES", 1),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fineixo.ledger"),

		RejectOverLimit: getEnvBool("LEDGER_REJECT_OVER_LIMIT", false),

		JWTSecret: getEnv("JWT_SECRET", "fineixo-default-dev-secret-change-me"),

		DevAuth: getEnvBool("DEV_AUTH", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
