// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for all databases (always absolute)
	Port    int
	DevMode bool
	LogLevel string

	// Optimization defaults
	DefaultMaxWeight float64       // Base single-asset cap before the dynamic adjustment
	SolverTimeout    time.Duration // Hard deadline for a single solve
	LookbackDays     int           // Covariance estimation window
	AttributionDays  int           // Trailing observations for period returns

	// Benchmark and tax defaults
	BenchmarkTicker    string
	DefaultProxyTicker string // Broad-market fallback proxy for harvesting

	// Narrative generation (optional; template fallback when empty)
	GeminiAPIKey string

	// Cron expression (with seconds field) for the universe snapshot refresh job
	SnapshotRefreshCron string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUANTSCALE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("GO_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DefaultMaxWeight:    getEnvAsFloat("DEFAULT_MAX_WEIGHT", 0.20),
		SolverTimeout:       time.Duration(getEnvAsInt("SOLVER_TIMEOUT_SECONDS", 30)) * time.Second,
		LookbackDays:        getEnvAsInt("LOOKBACK_DAYS", 252),
		AttributionDays:     getEnvAsInt("ATTRIBUTION_DAYS", 21),
		BenchmarkTicker:     getEnv("BENCHMARK_TICKER", "SPY"),
		DefaultProxyTicker:  getEnv("DEFAULT_PROXY_TICKER", "SPY"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		SnapshotRefreshCron: getEnv("SNAPSHOT_REFRESH_CRON", "0 0 6 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.DefaultMaxWeight <= 0 || c.DefaultMaxWeight > 1 {
		return fmt.Errorf("DEFAULT_MAX_WEIGHT must be in (0, 1], got %v", c.DefaultMaxWeight)
	}
	if c.SolverTimeout <= 0 {
		return fmt.Errorf("SOLVER_TIMEOUT_SECONDS must be positive")
	}
	if c.LookbackDays < 2 {
		return fmt.Errorf("LOOKBACK_DAYS must be at least 2, got %d", c.LookbackDays)
	}
	if c.AttributionDays < 1 {
		return fmt.Errorf("ATTRIBUTION_DAYS must be at least 1, got %d", c.AttributionDays)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
