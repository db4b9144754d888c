package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	Environment    string

	// TokenSecret keys the session token digest. Empty means a random
	// per-process secret, which logs everyone out on restart.
	TokenSecret  string
	CookieSecure bool
	BcryptCost   int

	PollTimezone string
	StoreTimeout time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int
	RateLimitBlock  time.Duration

	HubQueueSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:8080")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		Environment:     getEnv("ENVIRONMENT", "production"),
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		CookieSecure:    getBoolEnv("COOKIE_SECURE", false),
		BcryptCost:      getIntEnv("BCRYPT_COST", 10),
		PollTimezone:    getEnv("POLL_TIMEZONE", "America/New_York"),
		StoreTimeout:    getDurationEnv("STORE_TIMEOUT", 5*time.Second),
		RateLimitWindow: getDurationEnv("RATE_LIMIT_WINDOW", 10*time.Second),
		RateLimitMax:    getIntEnv("RATE_LIMIT_MAX", 50),
		RateLimitBlock:  getDurationEnv("RATE_LIMIT_BLOCK", 30*time.Second),
		HubQueueSize:    getIntEnv("HUB_QUEUE_SIZE", 64),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if _, err := time.LoadLocation(c.PollTimezone); err != nil {
		problems = append(problems, fmt.Sprintf("POLL_TIMEZONE %q is not a valid location", c.PollTimezone))
	}
	if c.RateLimitWindow <= 0 || c.RateLimitBlock <= 0 || c.RateLimitMax <= 0 {
		problems = append(problems, "rate limit window, max and block must be positive")
	}
	if c.StoreTimeout <= 0 {
		problems = append(problems, "STORE_TIMEOUT must be positive")
	}
	if c.HubQueueSize <= 0 {
		problems = append(problems, "HUB_QUEUE_SIZE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the poll reference timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.PollTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go duration strings ("10s") or bare seconds ("10")
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
