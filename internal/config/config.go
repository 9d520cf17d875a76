package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Config holds process-wide settings read from the environment
type Config struct {
	// StorageType selects the backends: memory, or redis (Redis cache + Postgres stores)
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Scheduler
	TickInterval      time.Duration `env:"TICK_INTERVAL" envDefault:"5s"`
	MaxMatchesPerPass int           `env:"MAX_MATCHES_PER_PASS" envDefault:"1"`
	// SkipIdleCheck runs passes even when no delivery channel is connected
	SkipIdleCheck bool `env:"SKIP_IDLE_CHECK" envDefault:"false"`

	// Cache expiries
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	StateTTL      time.Duration `env:"STATE_TTL" envDefault:"2h"`
	OwnershipTTL  time.Duration `env:"OWNERSHIP_TTL" envDefault:"3h"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"90s"`
	AcceptTimeout time.Duration `env:"ACCEPT_TIMEOUT" envDefault:"30s"`
}

// Default returns the settings Load produces from an empty environment
func Default() Config {
	return Config{
		StorageType:       StorageTypeMemory,
		HTTPPort:          8080,
		LogLevel:          "info",
		TickInterval:      5 * time.Second,
		MaxMatchesPerPass: 1,
		LockTTL:           10 * time.Second,
		StateTTL:          2 * time.Hour,
		OwnershipTTL:      3 * time.Hour,
		SessionTTL:        90 * time.Second,
		AcceptTimeout:     30 * time.Second,
	}
}

// Load reads an optional .env file and then parses the environment.
// Variables already set in the environment take precedence over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable together
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be 'memory' or 'redis'", c.StorageType)
	}

	if c.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if c.MaxMatchesPerPass < 1 {
		return errors.New("MAX_MATCHES_PER_PASS must be at least 1")
	}
	// A crashed holder's lock and claims are recovered within two ticks
	if c.LockTTL <= 0 || c.LockTTL > 2*c.TickInterval {
		return fmt.Errorf("LOCK_TTL %s out of range for TICK_INTERVAL %s", c.LockTTL, c.TickInterval)
	}
	if c.StateTTL <= 0 || c.OwnershipTTL <= 0 || c.SessionTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}
