package container

import (
	"context"
	"strings"
	"testing"
	"time"

	"quizhub/internal/config"
	"quizhub/internal/repository/memory"
	"quizhub/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		PollTimezone:    "America/New_York",
		StoreTimeout:    time.Second,
		RateLimitWindow: 10 * time.Second,
		RateLimitMax:    50,
		RateLimitBlock:  30 * time.Second,
		HubQueueSize:    8,
		BcryptCost:      4,
		TokenSecret:     "test-secret",
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		redisURL    string
		expectRedis bool
	}{
		{name: "Container with Redis configured", redisURL: "redis://" + mr.Addr(), expectRedis: true},
		{name: "Container without Redis configured", redisURL: "", expectRedis: false},
		{name: "Container with invalid Redis URL", redisURL: "invalid://redis-url", expectRedis: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.RedisURL = tt.redisURL
			log := logger.NewNop()

			c, err := New(cfg, log, memory.New().Repositories())
			require.NoError(t, err)
			require.NotNil(t, c)

			assert.Equal(t, cfg, c.GetConfig())
			assert.Equal(t, log, c.GetLogger())
			assert.NotNil(t, c.Hub)
			assert.NotNil(t, c.Limiter)
			assert.NotNil(t, c.Tokens)
			assert.NotNil(t, c.Accounts)
			require.NotNil(t, c.Services)
			assert.NotNil(t, c.Services.Activity)
			assert.NotNil(t, c.Services.Poll)
			assert.NotNil(t, c.Services.Quiz)
			assert.Equal(t, tt.expectRedis, c.HasRedis())
			assert.Equal(t, tt.expectRedis, c.Services.Cache.Enabled())
		})
	}
}

func TestNew_RequiresRepositories(t *testing.T) {
	c, err := New(testConfig(), logger.NewNop(), nil)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestContainer_StartStop(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	c, err := New(cfg, logger.NewNop(), memory.New().Repositories())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	sub := c.Hub.Subscribe()
	require.NotNil(t, sub)
	c.Services.Activity.Connect("viewer-1")

	deadline := time.After(2 * time.Second)
	for seen := false; !seen; {
		select {
		case msg := <-sub.C():
			seen = strings.Contains(string(msg), `"update_times"`)
		case <-deadline:
			t.Fatal("no activity broadcast after connect")
		}
	}

	require.NoError(t, c.Stop(ctx))

	// Stop persisted the snapshot before closing Redis
	assert.True(t, mr.Exists("test:quizhub:activity:times"))
	assert.Nil(t, c.Hub.Subscribe())
}
