// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir string // base directory for the SQLite databases, always absolute

	FinnhubAPIKey      string
	AlphaVantageAPIKey string

	MLServiceURL    string
	MLServiceAPIKey string

	LogLevel string
	Port     int
	DevMode  bool
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("ADVISOR_DATA_DIR", "")
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
		DataDir:            absDataDir,
		FinnhubAPIKey:      getEnv("FINNHUB_API_KEY", ""),
		AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
		MLServiceURL:       getEnv("ML_SERVICE_URL", ""),
		MLServiceAPIKey:    getEnv("ML_SERVICE_API_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnvAsInt("PORT", 8080),
		DevMode:            getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present. The primary
// provider key is mandatory; everything else degrades gracefully.
func (c *Config) Validate() error {
	if c.FinnhubAPIKey == "" {
		return fmt.Errorf("FINNHUB_API_KEY is required")
	}
	return nil
}

// HasSecondaryProvider reports whether the Alpha Vantage fallback is
// configured.
func (c *Config) HasSecondaryProvider() bool {
	return c.AlphaVantageAPIKey != ""
}

// HasMLService reports whether the inference sidecar is configured.
// Both the URL and key are required.
func (c *Config) HasMLService() bool {
	return c.MLServiceURL != "" && c.MLServiceAPIKey != ""
}

// DatabasePath returns the path for a named database file under the
// data directory.
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
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
