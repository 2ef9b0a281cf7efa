package bootstrap

import (
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/cache"
	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	tokenCachePrefix       = "homegate:tokens:"
	memoryCacheCleanupTick = 10 * time.Minute
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, log *zap.Logger) core.Recorder {
	m := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Info("prometheus metrics initialized")
	} else {
		log.Info("metrics disabled (using noop implementation)")
	}
	return m
}

// initializeTokenCache builds the access-token validation cache. The Redis
// variant shares the application's client and does not close it.
func initializeTokenCache(
	cfg *config.Config,
	client *redis.Client,
	log *zap.Logger,
) core.Cache[string] {
	if cfg.TokenCacheType == config.TokenCacheTypeRedis && client != nil {
		log.Info("token cache: redis",
			zap.String("addr", cfg.RedisAddr),
			zap.Duration("ttl", cfg.TokenCacheTTL),
		)
		return cache.NewRedisCache[string](client, tokenCachePrefix)
	}

	log.Info("token cache: memory (single instance only)", zap.Duration("ttl", cfg.TokenCacheTTL))
	return cache.NewMemoryCache[string](memoryCacheCleanupTick)
}
