package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUANTSCALE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.20, cfg.DefaultMaxWeight)
	assert.Equal(t, 30*time.Second, cfg.SolverTimeout)
	assert.Equal(t, 252, cfg.LookbackDays)
	assert.Equal(t, 21, cfg.AttributionDays)
	assert.Equal(t, "SPY", cfg.BenchmarkTicker)
	assert.Equal(t, "SPY", cfg.DefaultProxyTicker)
	assert.Equal(t, "0 0 6 * * *", cfg.SnapshotRefreshCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUANTSCALE_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9000")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("DEFAULT_MAX_WEIGHT", "0.35")
	t.Setenv("SOLVER_TIMEOUT_SECONDS", "5")
	t.Setenv("LOOKBACK_DAYS", "126")
	t.Setenv("BENCHMARK_TICKER", "VOO")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 0.35, cfg.DefaultMaxWeight)
	assert.Equal(t, 5*time.Second, cfg.SolverTimeout)
	assert.Equal(t, 126, cfg.LookbackDays)
	assert.Equal(t, "VOO", cfg.BenchmarkTicker)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"max weight above one", "DEFAULT_MAX_WEIGHT", "1.5"},
		{"max weight zero", "DEFAULT_MAX_WEIGHT", "0"},
		{"negative timeout", "SOLVER_TIMEOUT_SECONDS", "-1"},
		{"lookback too short", "LOOKBACK_DAYS", "1"},
		{"attribution days zero", "ATTRIBUTION_DAYS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QUANTSCALE_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
