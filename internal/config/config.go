// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is filled from unprefixed environment variables, e.g. PORT, DB_PATH.
type Config struct {
	Port        int         `envconfig:"PORT" default:"8080"`
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/plants.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	PerenualAPIKey     string        `envconfig:"PERENUAL_API_KEY"`
	PerenualBaseURL    string        `envconfig:"PERENUAL_BASE_URL" default:"https://perenual.com/api"`
	ProviderTimeout    time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	ProviderMaxRetries int           `envconfig:"PROVIDER_MAX_RETRIES" default:"2"`

	RateLimit       int           `envconfig:"RATE_LIMIT" default:"100"`
	RateLimitPeriod time.Duration `envconfig:"RATE_LIMIT_PERIOD" default:"60s"`

	// Empty JWTSecret disables admin authentication on write routes.
	JWTSecret         string `envconfig:"JWT_SECRET"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER: %q", c.DBDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.ProviderMaxRetries < 0 {
		errs = append(errs, errors.New("PROVIDER_MAX_RETRIES must not be negative"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT must be positive"))
	}
	if c.RateLimitPeriod <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PERIOD must be positive"))
	}
	if c.AdminPasswordHash != "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is set but JWT_SECRET is empty"))
	}
	return errors.Join(errs...)
}

// AuthEnabled reports whether write routes require an admin token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
