package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL"`
	UpstreamToken   string        `env:"UPSTREAM_TOKEN"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" default:"15s"`

	// RedisURL is optional. Without it the gateway runs with the in-process
	// cache only, which is fine for single-instance deployments.
	RedisURL string `env:"REDIS_URL"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	CatalogStaleTime time.Duration `env:"CATALOG_STALE_TIME" default:"10m"`
	ListStaleTime    time.Duration `env:"LIST_STALE_TIME" default:"30s"`
	ProfileStaleTime time.Duration `env:"PROFILE_STALE_TIME" default:"5m"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"40"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if !strings.HasPrefix(cfg.UpstreamBaseURL, "http://") && !strings.HasPrefix(cfg.UpstreamBaseURL, "https://") {
		return fmt.Errorf("UPSTREAM_BASE_URL must start with http:// or https://")
	}
	if cfg.AppEnv == "production" && strings.HasPrefix(cfg.UpstreamBaseURL, "http://") {
		return fmt.Errorf("UPSTREAM_BASE_URL must use https in production")
	}

	if cfg.ListStaleTime <= 0 {
		return fmt.Errorf("LIST_STALE_TIME must be positive")
	}
	if cfg.CatalogStaleTime <= 0 {
		return fmt.Errorf("CATALOG_STALE_TIME must be positive")
	}
	if cfg.ProfileStaleTime <= 0 {
		return fmt.Errorf("PROFILE_STALE_TIME must be positive")
	}

	if cfg.RateLimitPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be positive")
	}
	if cfg.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1")
	}

	return nil
}
