package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything main needs to wire the pipeline. All of it comes
// from the environment so main stays lean.
type Config struct {
	Addr string

	// PostgresURL selects the durable stores. Empty runs on memory stores,
	// which is the local-development mode.
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables the outbox drain worker. Empty leaves events in
	// the outbox unpublished.
	KafkaBrokers []string

	// SelfDomains and SelfNameMarkers identify the operating company for
	// direction detection and party self-exclusion.
	SelfDomains     []string
	SelfNameMarkers []string

	// ReconcileCacheTTL bounds staleness of cached reconciliation field
	// configs.
	ReconcileCacheTTL time.Duration

	// StepTimeout caps each orchestrator step; BatchDelay spaces extraction
	// calls in backfill mode.
	StepTimeout time.Duration
	BatchDelay  time.Duration
}

// RedisConfig tunes the optional redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds the Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:        envOr("STEVEDORE_ADDR", ":8080"),
		PostgresURL: os.Getenv("STEVEDORE_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("STEVEDORE_REDIS_URL"),
			PoolSize:     envInt("STEVEDORE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("STEVEDORE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("STEVEDORE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("STEVEDORE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("STEVEDORE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:      envList("STEVEDORE_KAFKA_BROKERS"),
		SelfDomains:       envList("STEVEDORE_SELF_DOMAINS"),
		SelfNameMarkers:   envList("STEVEDORE_SELF_NAME_MARKERS"),
		ReconcileCacheTTL: envDuration("STEVEDORE_RECONCILE_CACHE_TTL", 5*time.Minute),
		StepTimeout:       envDuration("STEVEDORE_STEP_TIMEOUT", 10*time.Second),
		BatchDelay:        envDuration("STEVEDORE_BATCH_DELAY", time.Second),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
