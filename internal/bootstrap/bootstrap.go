package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/homegraph"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Log    *zap.Logger

	// Core infrastructure
	DB          *store.Store
	Metrics     core.Recorder
	RedisClient *redis.Client
	TokenCache  core.Cache[string]
	Directory   *directory.Directory

	// Services
	AuditService       *services.AuditService
	OAuthService       *services.OAuthService
	FulfillmentService *services.FulfillmentService
	Syncer             *homegraph.Syncer

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes the application and serves until a shutdown signal.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	app.startWithGracefulShutdown()
	return nil
}

// New wires every component without starting the server.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Application, error) {
	app := &Application{
		Config: cfg,
		Log:    log,
	}

	// Phase 1: Validate configuration
	if err := validateConfiguration(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	return app, nil
}

// initializeInfrastructure sets up database, metrics, Redis, cache and records
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	app.Metrics = initializeMetrics(app.Config, app.Log)

	app.RedisClient, err = initializeRedisClient(ctx, app.Config, app.Log)
	if err != nil {
		return err
	}

	app.TokenCache = initializeTokenCache(app.Config, app.RedisClient, app.Log)

	app.Directory, err = directory.Load(
		app.Config.UsersDirectory,
		app.Config.DevicesDirectory,
		app.Log.Named("directory"),
	)
	if err != nil {
		return fmt.Errorf("failed to load device directory: %w", err)
	}
	app.Log.Info("device directory loaded",
		zap.String("users", app.Config.UsersDirectory),
		zap.String("devices", app.Config.DevicesDirectory),
		zap.Int("device_count", app.Directory.DeviceCount()),
	)
	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() error {
	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
		app.Log.Named("audit"),
	)

	app.OAuthService, app.FulfillmentService = initializeServices(
		app.Config,
		app.Log,
		app.DB,
		app.Directory,
		app.TokenCache,
		app.AuditService,
		app.Metrics,
	)

	syncer, err := initializeSyncer(app.Config, app.Directory, app.Metrics, app.Log)
	if err != nil {
		return err
	}
	app.Syncer = syncer
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.OAuthService,
		app.FulfillmentService,
		app.AuditService,
	)

	var err error
	app.Router, err = setupRouter(
		app.Config,
		app.Log,
		app.DB,
		app.HandlerSet,
		app.OAuthService,
		app.Metrics,
		app.AuditService,
		app.RedisClient,
	)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// closeInfrastructure releases what a failed New already opened.
func (app *Application) closeInfrastructure() {
	if app.AuditService != nil {
		_ = app.AuditService.Shutdown(context.Background())
	}
	if app.TokenCache != nil {
		_ = app.TokenCache.Close()
	}
	if app.RedisClient != nil {
		_ = app.RedisClient.Close()
	}
	if app.DB != nil {
		_ = app.DB.Close()
	}
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server, app.Log)
	addServerShutdownJob(m, app.Server, app.Log)
	addAuditServiceShutdownJob(m, app.AuditService, app.Log)
	addAuditLogCleanupJob(m, app.Config, app.AuditService, app.Log)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.Metrics, app.Log)
	addRequestSyncJob(m, app.Config, app.Syncer, app.Log)
	addCacheShutdownJob(m, app.TokenCache, app.Log)
	addRedisClientShutdownJob(m, app.RedisClient, app.Log)

	<-m.Done()
}
