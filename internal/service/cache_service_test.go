package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizhub/internal/domain"
	"quizhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_DisabledIsPassThrough(t *testing.T) {
	cache := NewCacheService(nil, logger.NewNop())
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.Equal(t, "", cache.GetPollIDForDate(ctx, "2024-01-15"))
	assert.False(t, cache.HasVoted(ctx, "p", "alice"))
	assert.NoError(t, cache.SaveActiveTimes(ctx, domain.ActiveTimes{"a": 1}))
	assert.NoError(t, cache.HealthCheck(ctx))

	times, err := cache.LoadActiveTimes(ctx)
	require.NoError(t, err)
	assert.Empty(t, times)

	calls := 0
	view, err := cache.GetLikesWithCache(ctx, "q1", func(ctx context.Context, id string) (*domain.LikesView, error) {
		calls++
		return &domain.LikesView{QuizID: id, Likes: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Likes)
	assert.Equal(t, 1, calls)
}

func TestCacheService_PollIDForDate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	assert.Equal(t, "", cache.GetPollIDForDate(ctx, "2024-01-15"))
	cache.SetPollIDForDate(ctx, "2024-01-15", "poll-1")
	assert.Equal(t, "poll-1", cache.GetPollIDForDate(ctx, "2024-01-15"))

	mr.FastForward(26 * time.Hour)
	assert.Equal(t, "", cache.GetPollIDForDate(ctx, "2024-01-15"))
}

func TestCacheService_VotedMarker(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	assert.False(t, cache.HasVoted(ctx, "p1", "alice"))
	cache.MarkVoted(ctx, "p1", "alice")
	assert.True(t, cache.HasVoted(ctx, "p1", "alice"))
	assert.False(t, cache.HasVoted(ctx, "p1", "bob"))
}

func TestCacheService_LikesCacheAside(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fallback := func(ctx context.Context, id string) (*domain.LikesView, error) {
		calls++
		return &domain.LikesView{QuizID: id, Likes: calls, LikesUsers: []string{"alice"}}, nil
	}

	first, err := cache.GetLikesWithCache(ctx, "q1", fallback)
	require.NoError(t, err)
	second, err := cache.GetLikesWithCache(ctx, "q1", fallback)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	cache.InvalidateLikes(ctx, "q1")
	third, err := cache.GetLikesWithCache(ctx, "q1", fallback)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Likes)
}

func TestCacheService_LikesFallbackError(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.GetLikesWithCache(context.Background(), "q1", func(ctx context.Context, id string) (*domain.LikesView, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestCacheService_ActiveTimesRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SaveActiveTimes(ctx, domain.ActiveTimes{"a": 3, "b": 0}))
	require.NoError(t, cache.SaveActiveTimes(ctx, domain.ActiveTimes{"a": 5}))

	times, err := cache.LoadActiveTimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ActiveTimes{"a": 5}, times)
}

func TestCacheService_HealthCheck(t *testing.T) {
	cache, mr := newTestCache(t)

	assert.NoError(t, cache.HealthCheck(context.Background()))
	mr.Close()
	assert.Error(t, cache.HealthCheck(context.Background()))
}
