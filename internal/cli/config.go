package cli

import (
	"log/slog"
	"os"

	appconfig "github.com/mcoot/lanequeue/internal/config"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	EnvFile   string
	Output    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("LANEQUEUE_SERVER", "http://localhost:8080"),
		EnvFile:   getEnvOrDefault("LANEQUEUE_ENV_FILE", ".env"),
		Output:    "text",
	}
}

// loadAppConfig reads the service settings for in-process commands
func (c *Config) loadAppConfig() (appconfig.Config, error) {
	return appconfig.Load(c.EnvFile)
}

// newLogger builds the JSON logger used by in-process commands
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
