package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizhub/internal/config"
	"quizhub/internal/realtime"
	"quizhub/internal/repository"
	"quizhub/internal/service"
	"quizhub/internal/service/auth"
	"quizhub/internal/service/ratelimit"
	"quizhub/pkg/logger"
	"quizhub/pkg/redis"
)

// hubShutdownTimeout bounds how long Stop waits for the dispatch loop
const hubShutdownTimeout = 5 * time.Second

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Hub          *realtime.Hub
	Limiter      *ratelimit.Limiter
	Tokens       *auth.TokenStore
	Accounts     *auth.AccountService
	Services     *service.Services
}

// New creates a new dependency injection container over repos
func New(cfg *config.Config, log *logger.Logger, repos *repository.Repositories) (*Container, error) {
	if repos == nil {
		return nil, errors.New("repositories are required")
	}

	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	hub := realtime.NewHub(cfg.HubQueueSize, log)
	tokens := auth.NewTokenStore(repos.User, cfg.TokenSecret, log)
	accounts := auth.NewAccountService(repos.User, tokens, auth.NewBcryptHasher(cfg.BcryptCost), log)

	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimitWindow,
		MaxRequests: cfg.RateLimitMax,
		Block:       cfg.RateLimitBlock,
	})

	cache := service.NewCacheService(redisClient, log)
	services := &service.Services{
		Activity: service.NewActivityService(hub, cache, log),
		Poll:     service.NewPollService(repos.Poll, repos.Quiz, cache, hub, cfg.Location(), log),
		Quiz:     service.NewQuizService(repos.Quiz, cache, hub, log),
		Cache:    cache,
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		RedisClient:  redisClient,
		Repositories: repos,
		Hub:          hub,
		Limiter:      limiter,
		Tokens:       tokens,
		Accounts:     accounts,
		Services:     services,
	}, nil
}

// Start launches the hub dispatch loop and the periodic broadcasters
func (c *Container) Start(ctx context.Context) error {
	go c.Hub.Run()

	if err := c.Services.Activity.Start(ctx); err != nil {
		return fmt.Errorf("activity service start: %w", err)
	}
	if err := c.Services.Poll.Start(ctx); err != nil {
		return fmt.Errorf("poll service start: %w", err)
	}
	return nil
}

// Stop halts the broadcasters, then the hub, then closes Redis.
// The activity snapshot is persisted before Redis goes away.
func (c *Container) Stop(ctx context.Context) error {
	var errs []error

	if err := c.Services.Poll.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("poll service stop: %w", err))
	}
	if err := c.Services.Activity.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("activity service stop: %w", err))
	}
	if err := c.Hub.Shutdown(hubShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	return errors.Join(errs...)
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
