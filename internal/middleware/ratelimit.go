package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitConfig holds the configuration for one per-IP rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	StoreType         string // config.RateLimitStoreMemory or config.RateLimitStoreRedis
	Prefix            string // separates limiters sharing a store
	CleanupInterval   time.Duration

	// RedisClient is required when StoreType is redis
	RedisClient redis.UniversalClient
}

// NewRateLimiter creates a per-IP rate limiter
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	options := limiter.StoreOptions{
		Prefix:          "ratelimit:" + cfg.Prefix,
		CleanUpInterval: cfg.CleanupInterval,
	}

	var store limiter.Store
	switch cfg.StoreType {
	case config.RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, options)
		if err != nil {
			return nil, err
		}
	default:
		store = memory.NewStoreWithOptions(options)
	}

	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(limitReached)), nil
}

// limitReached answers browsers with plain text and API clients with JSON.
func limitReached(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.String(http.StatusTooManyRequests, "Too many requests. Please try again later.")
	} else {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
	}
	c.Abort()
}
