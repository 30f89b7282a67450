package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"NBA_STATS_BASE_URL", "RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_INTERVAL", "DATA_DIR", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://stats.nba.com/stats", cfg.StatsBaseURL)
	assert.Equal(t, 8, cfg.RetryMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, "data", cfg.DataDir)
	assert.False(t, cfg.HasDatabase())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("RETRY_INITIAL_INTERVAL", "250ms")
	t.Setenv("NBA_STATS_TIMEOUT", "45")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://localhost/scoracle")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, 45*time.Second, cfg.StatsTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.True(t, cfg.HasDatabase())
}

func TestEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("CLASSIFIER_TIMEOUT", "soon")
	assert.Equal(t, time.Minute, envDuration("CLASSIFIER_TIMEOUT", time.Minute))
}
