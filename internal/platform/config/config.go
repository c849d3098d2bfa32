// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// ExternalOrigin is the public base URL embedded in one-time
	// authorization links, e.g. https://issuer.example.com.
	ExternalOrigin string
	JWTSigningKey  string
	LogLevel       string
}

// Postgres captures database connection settings. An empty URL selects the
// in-memory stores.
type Postgres struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures cache/idempotency store settings. An empty URL selects the
// in-memory idempotency store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures audit outbox shipping settings. Empty brokers disable the
// outbox worker.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Handoff captures one-time authorization handoff settings.
type Handoff struct {
	RequestTTL time.Duration
}

// Idempotency captures the at-most-once guard settings.
type Idempotency struct {
	TTL time.Duration
}

// Reconciler captures the periodic reconciliation batch settings.
type Reconciler struct {
	Interval          time.Duration
	MaxParallelAssets int
}

// Config is the full process configuration.
type Config struct {
	Server      Server
	Postgres    Postgres
	Redis       Redis
	Kafka       Kafka
	Handoff     Handoff
	Idempotency Idempotency
	Reconciler  Reconciler
}

// FromEnv builds the configuration from environment variables, applying
// development defaults where unset.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envOr("MINTGATE_ADDR", ":8080"),
			ExternalOrigin: envOr("MINTGATE_EXTERNAL_ORIGIN", "http://localhost:8080"),
			JWTSigningKey:  envOr("MINTGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			LogLevel:       envOr("MINTGATE_LOG_LEVEL", "info"),
		},
		Postgres: Postgres{
			URL:             os.Getenv("MINTGATE_POSTGRES_URL"),
			MaxOpenConns:    envIntOr("MINTGATE_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns:    envIntOr("MINTGATE_POSTGRES_MAX_IDLE", 5),
			ConnMaxLifetime: envDurationOr("MINTGATE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("MINTGATE_REDIS_URL"),
			PoolSize:     envIntOr("MINTGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("MINTGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("MINTGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("MINTGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("MINTGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    splitNonEmpty(os.Getenv("MINTGATE_KAFKA_BROKERS")),
			AuditTopic: envOr("MINTGATE_AUDIT_TOPIC", "mintgate.audit"),
		},
		Handoff: Handoff{
			RequestTTL: envDurationOr("MINTGATE_HANDOFF_TTL", 24*time.Hour),
		},
		Idempotency: Idempotency{
			TTL: envDurationOr("MINTGATE_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Reconciler: Reconciler{
			Interval:          envDurationOr("MINTGATE_RECONCILE_INTERVAL", 5*time.Minute),
			MaxParallelAssets: envIntOr("MINTGATE_RECONCILE_PARALLELISM", 4),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
