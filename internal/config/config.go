package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds the settings shared by all commands. Values come from
// ECONDATA_* environment variables (a .env file is loaded first) and may be
// overridden by flags.
type Config struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:8000" validate:"required,url"`
	CSRFCookie     string        `env:"CSRF_COOKIE" envDefault:"csrftoken" validate:"required"`
	CSRFHeader     string        `env:"CSRF_HEADER" envDefault:"X-CSRFToken" validate:"required"`
	CSRFToken      string        `env:"CSRF_TOKEN"`
	SessionCookie  string        `env:"SESSION_COOKIE" envDefault:"sessionid"`
	SessionID      string        `env:"SESSION_ID"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	PostgresDSN    string        `env:"POSTGRES_DSN"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "ECONDATA_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration after flags were applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
