package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("UPSTREAM_BASE_URL", "https://api.municipality.test")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPSTREAM_TOKEN", "test-token")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.municipality.test", cfg.UpstreamBaseURL)
	assert.Equal(t, "test-token", cfg.UpstreamToken)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoad_MissingUpstreamBaseURL(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "UPSTREAM_BASE_URL is required", err.Error())
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CatalogStaleTime)
	assert.Equal(t, 30*time.Second, cfg.ListStaleTime)
	assert.Equal(t, 5*time.Minute, cfg.ProfileStaleTime)
	assert.Empty(t, cfg.RedisURL, "Redis stays optional")
}

func TestLoad_MalformedBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPSTREAM_BASE_URL", "api.municipality.test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with http:// or https://")
}

func TestLoad_ProductionRejectsPlainHTTP(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("UPSTREAM_BASE_URL", "http://api.municipality.test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must use https in production")
}

func TestLoad_DevelopmentAllowsPlainHTTP(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPSTREAM_BASE_URL", "http://localhost:3000")

	_, err := Load()
	require.NoError(t, err)
}

func TestLoad_RejectsNonPositiveStaleTimes(t *testing.T) {
	tests := []struct {
		name    string
		envVar  string
		wantErr string
	}{
		{"list", "LIST_STALE_TIME", "LIST_STALE_TIME must be positive"},
		{"catalog", "CATALOG_STALE_TIME", "CATALOG_STALE_TIME must be positive"},
		{"profile", "PROFILE_STALE_TIME", "PROFILE_STALE_TIME must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.envVar, "0s")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_RejectsBadRateLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_BURST", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "RATE_LIMIT_BURST must be at least 1", err.Error())
}
