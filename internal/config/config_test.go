package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Addr:               ":8080",
		TokenSecret:        "token-secret",
		KeySecret:          "key-secret",
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         14 * 24 * time.Hour,
		InactiveUserDays:   30,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("AUTHWAVE_TOKEN_SECRET", "token-secret")
	t.Setenv("AUTHWAVE_KEY_SECRET", "key-secret")
	t.Setenv("AUTHWAVE_ACCESS_TTL", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL != 10*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr default: %q", cfg.Addr)
	}
	if cfg.InactiveUserDays != 30 {
		t.Fatalf("unexpected inactivity default: %d", cfg.InactiveUserDays)
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	missing := validConfig()
	missing.TokenSecret = " "
	if err := missing.validate(); err == nil {
		t.Fatal("expected error for missing token secret")
	}

	same := validConfig()
	same.KeySecret = same.TokenSecret
	if err := same.validate(); err == nil {
		t.Fatal("expected error for identical secrets")
	}

	inverted := validConfig()
	inverted.RefreshTTL = time.Minute
	if err := inverted.validate(); err == nil {
		t.Fatal("expected error for refresh ttl below access ttl")
	}
}
