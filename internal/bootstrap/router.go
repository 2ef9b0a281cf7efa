package bootstrap

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/metrics"
	"github.com/ClusterM/google-assistant-smart-home/internal/middleware"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"
	"github.com/ClusterM/google-assistant-smart-home/internal/templates"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	log *zap.Logger,
	db *store.Store,
	h handlerSet,
	tokens middleware.TokenValidator,
	m core.Recorder,
	auditService *services.AuditService,
	redisClient *redis.Client,
) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(m))
	r.Use(middleware.RequestContext(log.Named("http")), middleware.RequestLogger())
	r.Use(gin.Recovery())

	r.StaticFS("/css", templates.CSS())

	r.GET("/health", createHealthCheckHandler(db))
	setupMetricsEndpoint(r, cfg, log)

	rateLimiters, err := setupRateLimiting(cfg, redisClient, log)
	if err != nil {
		return nil, err
	}

	setupAllRoutes(r, h, tokens, auditService, rateLimiters)

	log.Info("fulfillment server configured",
		zap.String("addr", cfg.ServerAddr),
		zap.String("auth_url", strings.TrimSuffix(cfg.BaseURL, "/")+"/auth/"),
		zap.String("token_url", strings.TrimSuffix(cfg.BaseURL, "/")+"/token/"),
	)
	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, log *zap.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		log.Info("prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Info("prometheus metrics enabled at /metrics with bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Info("prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	h handlerSet,
	tokens middleware.TokenValidator,
	auditService *services.AuditService,
	rateLimiters rateLimitMiddlewares,
) {
	// Fulfillment webhook
	r.GET("/", h.fulfillment.Ready)
	r.POST("/", middleware.RequireBearerToken(tokens, auditService), h.fulfillment.Fulfill)

	// Account linking
	r.GET("/auth/", h.auth.LoginPage)
	r.POST("/auth/", rateLimiters.login, h.auth.Login)
	r.POST("/token/", rateLimiters.token, h.token.Token)
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		switch err := db.Health(ctx); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on the logging environment
func setupGinMode(cfg *config.Config) {
	if gin.Mode() == gin.TestMode {
		return
	}
	gin.SetMode(ginModeMap[strings.EqualFold(cfg.LogEnv, "dev")])
}

var ginModeMap = map[bool]string{
	true:  gin.DebugMode,
	false: gin.ReleaseMode,
}
