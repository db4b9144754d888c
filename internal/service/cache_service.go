package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quizhub/internal/domain"
	"quizhub/pkg/logger"
	"quizhub/pkg/redis"

	"go.uber.org/zap"
)

// CacheService wraps the optional Redis client with cache-aside helpers.
// A nil client turns every helper into a pass-through.
type CacheService struct {
	redis  *redis.Client
	logger *logger.Logger
}

// NewCacheService creates a new cache service. redisClient may be nil.
func NewCacheService(redisClient *redis.Client, log *logger.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: log.Named("cache"),
	}
}

// Enabled reports whether a Redis client is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

// GetPollIDForDate returns the cached poll id for date, or "" on miss
func (c *CacheService) GetPollIDForDate(ctx context.Context, date string) string {
	if !c.Enabled() {
		return ""
	}

	id, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyDailyPoll(date))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Poll cache error", zap.String("date", date), zap.Error(err))
		}
		return ""
	}
	return id
}

// SetPollIDForDate caches the date to poll id mapping, which never changes
func (c *CacheService) SetPollIDForDate(ctx context.Context, date, pollID string) {
	if !c.Enabled() {
		return
	}

	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyDailyPoll(date), pollID, redis.TTLDailyPoll); err != nil {
		c.logger.Warn("Failed to cache poll id", zap.String("date", date), zap.Error(err))
	}
}

// HasVoted checks the voted marker. Misses and errors read as false so the
// database stays the authority.
func (c *CacheService) HasVoted(ctx context.Context, pollID, username string) bool {
	if !c.Enabled() {
		return false
	}

	n, err := c.redis.Exists(ctx, c.redis.KeyBuilder.KeyPollVoted(pollID, username))
	if err != nil {
		c.logger.Warn("Voted marker lookup failed", zap.String("poll_id", pollID), zap.Error(err))
		return false
	}
	return n > 0
}

// MarkVoted records the voted marker after a successful or duplicate vote
func (c *CacheService) MarkVoted(ctx context.Context, pollID, username string) {
	if !c.Enabled() {
		return
	}

	if _, err := c.redis.SetNX(ctx, c.redis.KeyBuilder.KeyPollVoted(pollID, username), "1", redis.TTLPollVoted); err != nil {
		c.logger.Warn("Failed to set voted marker", zap.String("poll_id", pollID), zap.Error(err))
	}
}

// GetLikesWithCache returns the like view with cache-aside
func (c *CacheService) GetLikesWithCache(ctx context.Context, quizID string, fallback func(ctx context.Context, id string) (*domain.LikesView, error)) (*domain.LikesView, error) {
	if !c.Enabled() {
		return fallback(ctx, quizID)
	}

	key := c.redis.KeyBuilder.KeyQuizLikes(quizID)
	cached, err := c.redis.Get(ctx, key)
	if err == nil && cached != "" {
		var view domain.LikesView
		if jsonErr := json.Unmarshal([]byte(cached), &view); jsonErr == nil {
			return &view, nil
		} else {
			c.logger.Warn("Likes cache corrupted, falling back to database",
				zap.String("quiz_id", quizID), zap.Error(jsonErr))
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Likes cache error, falling back to database",
			zap.String("quiz_id", quizID), zap.Error(err))
	}

	view, err := fallback(ctx, quizID)
	if err != nil || view == nil {
		return view, err
	}

	if data, jsonErr := json.Marshal(view); jsonErr == nil {
		if setErr := c.redis.Set(ctx, key, string(data), redis.TTLQuizLikes); setErr != nil {
			c.logger.Warn("Failed to cache likes", zap.String("quiz_id", quizID), zap.Error(setErr))
		}
	}
	return view, nil
}

// InvalidateLikes drops the cached like view of a quiz
func (c *CacheService) InvalidateLikes(ctx context.Context, quizID string) {
	if !c.Enabled() {
		return
	}

	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyQuizLikes(quizID)); err != nil {
		c.logger.Warn("Failed to invalidate likes cache", zap.String("quiz_id", quizID), zap.Error(err))
	}
}

// SaveActiveTimes replaces the persisted activity snapshot
func (c *CacheService) SaveActiveTimes(ctx context.Context, times domain.ActiveTimes) error {
	if !c.Enabled() {
		return nil
	}

	fields := make(map[string]interface{}, len(times))
	for id, ticks := range times {
		fields[id] = ticks
	}
	if err := c.redis.ReplaceHash(ctx, c.redis.KeyBuilder.KeyActiveTimes(), fields); err != nil {
		return fmt.Errorf("failed to save activity snapshot: %w", err)
	}
	return nil
}

// LoadActiveTimes reads the persisted activity snapshot. Unparseable
// entries are skipped.
func (c *CacheService) LoadActiveTimes(ctx context.Context) (domain.ActiveTimes, error) {
	times := domain.ActiveTimes{}
	if !c.Enabled() {
		return times, nil
	}

	raw, err := c.redis.HGetAll(ctx, c.redis.KeyBuilder.KeyActiveTimes())
	if err != nil {
		return nil, fmt.Errorf("failed to load activity snapshot: %w", err)
	}

	for id, value := range raw {
		ticks, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			c.logger.Warn("Skipping bad activity entry", zap.String("id", id))
			continue
		}
		times[id] = ticks
	}
	return times, nil
}

// HealthCheck pings Redis when configured
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}
