// Package config loads process configuration from the environment.
// Secret material (account token secret and project key secret) is injected
// here once at startup; nothing else reads the environment at runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every externally tunable value for the service.
type Config struct {
	Addr     string `env:"AUTHWAVE_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"AUTHWAVE_GRPC_ADDR" envDefault:":9090"`

	PGDSN string `env:"AUTHWAVE_PG_DSN"`

	// TokenSecret signs admin and user session tokens. KeySecret signs
	// project-scoped API keys. They are independent so rotating one does not
	// invalidate the other class of credentials.
	TokenSecret string `env:"AUTHWAVE_TOKEN_SECRET"`
	KeySecret   string `env:"AUTHWAVE_KEY_SECRET"`

	AccessTTL  time.Duration `env:"AUTHWAVE_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"AUTHWAVE_REFRESH_TTL" envDefault:"336h"`

	// InactiveUserDays is the default reclamation threshold for
	// project user cleanup.
	InactiveUserDays int `env:"AUTHWAVE_INACTIVE_USER_DAYS" envDefault:"30"`

	RateLimitPerSecond int `env:"AUTHWAVE_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int `env:"AUTHWAVE_RATE_LIMIT_BURST" envDefault:"40"`
}

// Load parses configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.TokenSecret) == "" {
		return errors.New("AUTHWAVE_TOKEN_SECRET is required")
	}
	if strings.TrimSpace(c.KeySecret) == "" {
		return errors.New("AUTHWAVE_KEY_SECRET is required")
	}
	if c.TokenSecret == c.KeySecret {
		return errors.New("token secret and key secret must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.InactiveUserDays <= 0 {
		return errors.New("inactive user threshold must be positive")
	}
	return nil
}
