package bootstrap

import (
	"fmt"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	token gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration
func setupRateLimiting(
	cfg *config.Config,
	redisClient *redis.Client,
	log *zap.Logger,
) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		noOp := func(c *gin.Context) { c.Next() }
		log.Info("rate limiting disabled")
		return rateLimitMiddlewares{login: noOp, token: noOp}, nil
	}

	log.Info("rate limiting enabled",
		zap.String("store", cfg.RateLimitStore),
		zap.Int("login_per_minute", cfg.LoginRateLimit),
		zap.Int("token_per_minute", cfg.TokenRateLimit),
	)

	createLimiter := func(requestsPerMinute int, endpoint string) (gin.HandlerFunc, error) {
		limiterCfg := middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         cfg.RateLimitStore,
			Prefix:            endpoint,
		}
		// A nil *redis.Client must not become a non-nil interface.
		if redisClient != nil {
			limiterCfg.RedisClient = redisClient
		}
		limiter, err := middleware.NewRateLimiter(limiterCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter for /%s/: %w", endpoint, err)
		}
		return limiter, nil
	}

	login, err := createLimiter(cfg.LoginRateLimit, "auth")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	token, err := createLimiter(cfg.TokenRateLimit, "token")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	return rateLimitMiddlewares{login: login, token: token}, nil
}
