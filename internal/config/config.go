package config

import (
	"os"
	"strconv"

	"behaviorkit/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Logging LoggingConfig
	Plot    PlotConfig
	Paths   PathConfig
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string // "debug", "info", "warn", "error"
}

// PlotConfig holds plot rendering defaults
type PlotConfig struct {
	Theme  string
	Width  int
	Height int
}

// PathConfig holds file system paths
type PathConfig struct {
	OutputDir string
}

// Load reads configuration from environment variables and validates it.
// The CLI loads .env beforehand via godotenv so env vars are the single
// source here.
func Load() (*Config, error) {
	config := &Config{
		Logging: LoggingConfig{
			Level: getEnvOrDefault("BEHAVIORKIT_LOG_LEVEL", "info"),
		},
		Plot: PlotConfig{
			Theme:  getEnvOrDefault("BEHAVIORKIT_THEME", "behavior"),
			Width:  getEnvIntOrDefault("BEHAVIORKIT_PLOT_WIDTH", 1024),
			Height: getEnvIntOrDefault("BEHAVIORKIT_PLOT_HEIGHT", 768),
		},
		Paths: PathConfig{
			OutputDir: getEnvOrDefault("BEHAVIORKIT_OUTPUT_DIR", "."),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(c *Config) error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigInvalidf("invalid log level %q", c.Logging.Level)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return errors.ConfigInvalid("plot dimensions must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
