package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config carries all runtime settings, sourced from the environment with an
// optional .env file for local development.
type Config struct {
	HTTPPort     string
	StoreBackend string
	DatabaseURL  string
	RedisURL     string
	LogLevel     string

	ReconciliationInterval time.Duration
	MinReserveRatio        decimal.Decimal
	WarnReserveRatio       decimal.Decimal

	PublicRateLimitRPS int
	IdempotencyTTL     time.Duration
}

// Load reads configuration from LEDGER_-prefixed environment variables.
func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RECONCILIATION_INTERVAL", "24h")
	v.SetDefault("MIN_RESERVE_RATIO", "0.95")
	v.SetDefault("WARN_RESERVE_RATIO", "1.0")
	v.SetDefault("PUBLIC_RATE_LIMIT_RPS", 50)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")

	cfg := &Config{
		HTTPPort:           v.GetString("HTTP_PORT"),
		StoreBackend:       v.GetString("STORE_BACKEND"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisURL:           v.GetString("REDIS_URL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		PublicRateLimitRPS: v.GetInt("PUBLIC_RATE_LIMIT_RPS"),
	}

	var err error
	if cfg.ReconciliationInterval, err = time.ParseDuration(v.GetString("RECONCILIATION_INTERVAL")); err != nil {
		return nil, fmt.Errorf("parse LEDGER_RECONCILIATION_INTERVAL: %w", err)
	}
	if cfg.IdempotencyTTL, err = time.ParseDuration(v.GetString("IDEMPOTENCY_TTL")); err != nil {
		return nil, fmt.Errorf("parse LEDGER_IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.MinReserveRatio, err = decimal.NewFromString(v.GetString("MIN_RESERVE_RATIO")); err != nil {
		return nil, fmt.Errorf("parse LEDGER_MIN_RESERVE_RATIO: %w", err)
	}
	if cfg.WarnReserveRatio, err = decimal.NewFromString(v.GetString("WARN_RESERVE_RATIO")); err != nil {
		return nil, fmt.Errorf("parse LEDGER_WARN_RESERVE_RATIO: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_DATABASE_URL is required with the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	if c.MinReserveRatio.IsNegative() || c.WarnReserveRatio.IsNegative() {
		return fmt.Errorf("reserve ratio thresholds must be non-negative")
	}
	if c.WarnReserveRatio.LessThan(c.MinReserveRatio) {
		return fmt.Errorf("warn ratio %s must not be below min ratio %s", c.WarnReserveRatio, c.MinReserveRatio)
	}
	if c.PublicRateLimitRPS <= 0 {
		return fmt.Errorf("public rate limit must be positive")
	}
	return nil
}
