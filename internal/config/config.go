// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Dataset layout: single source of truth for artifact names and tables
// --------------------------------------------------------------------------

const (
	// FeatureRowsTable holds persisted feature rows when the Postgres sink is used.
	FeatureRowsTable = "feature_rows"

	// SeasonFilePattern names a per-season dataset; %s is the season ("2021-22").
	SeasonFilePattern = "games_%s.csv"
	// CorpusFilePattern names a merged corpus; %d is the first season's start
	// year, %02d the last season's end year ("all_games_2018-22.csv").
	CorpusFilePattern = "all_games_%d-%02d.csv"
)

// --------------------------------------------------------------------------
// Config struct: populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Upstream stats provider
	StatsBaseURL           string
	StatsTimeout           time.Duration
	StatsRequestsPerMinute int

	// Retry policy applied to every upstream call
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// Dataset artifacts
	DataDir string

	// Database (optional: Postgres sink and API)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// External classifier
	ClassifierURL     string
	ClassifierTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	return &Config{
		StatsBaseURL:           envOr("NBA_STATS_BASE_URL", "https://stats.nba.com/stats"),
		StatsTimeout:           envDuration("NBA_STATS_TIMEOUT", 30*time.Second),
		StatsRequestsPerMinute: envInt("NBA_STATS_REQUESTS_PER_MINUTE", 60),

		RetryMaxAttempts:     envInt("RETRY_MAX_ATTEMPTS", 8),
		RetryInitialInterval: envDuration("RETRY_INITIAL_INTERVAL", 100*time.Millisecond),
		RetryMaxInterval:     envDuration("RETRY_MAX_INTERVAL", 30*time.Second),

		DataDir: envOr("DATA_DIR", "data"),

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		ClassifierURL:     envOr("CLASSIFIER_URL", ""),
		ClassifierTimeout: envDuration("CLASSIFIER_TIMEOUT", 60*time.Second),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether a Postgres connection string is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("250ms", "1m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
