package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quizhub")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "America/New_York", cfg.PollTimezone)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 50, cfg.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.RateLimitBlock)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 64, cfg.HubQueueSize)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quizhub")
	t.Setenv("RATE_LIMIT_WINDOW", "20")
	t.Setenv("RATE_LIMIT_BLOCK", "1m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, time.Minute, cfg.RateLimitBlock)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL:     "postgres://localhost/quizhub",
			PollTimezone:    "America/New_York",
			StoreTimeout:    time.Second,
			RateLimitWindow: 10 * time.Second,
			RateLimitMax:    50,
			RateLimitBlock:  30 * time.Second,
			HubQueueSize:    8,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "bad timezone", mutate: func(c *Config) { c.PollTimezone = "Mars/Olympus" }, wantErr: "POLL_TIMEZONE"},
		{name: "zero rate max", mutate: func(c *Config) { c.RateLimitMax = 0 }, wantErr: "rate limit"},
		{name: "zero hub queue", mutate: func(c *Config) { c.HubQueueSize = 0 }, wantErr: "HUB_QUEUE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{PollTimezone: "America/New_York"}
	assert.Equal(t, "America/New_York", cfg.Location().String())

	cfg.PollTimezone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}
