package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/homegraph"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	auditCleanupInterval = 24 * time.Hour
	gaugeUpdateInterval  = time.Minute
	gaugeErrorLogWindow  = 5 * time.Minute
)

// createHTTPServer creates the HTTP server instance. WriteTimeout leaves
// room for a batch of driver calls.
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30*time.Second + 4*cfg.DriverTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("failed to start server", zap.Error(err))
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		log.Info("server exited")
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client, log *zap.Logger) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := redisClient.Close(); err != nil {
			log.Error("error closing redis client", zap.Error(err))
			return err
		}
		log.Info("redis connection closed")
		return nil
	})
}

// addCacheShutdownJob releases the token cache on shutdown
func addCacheShutdownJob(m *graceful.Manager, tokenCache core.Cache[string], log *zap.Logger) {
	if tokenCache == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := tokenCache.Close(); err != nil {
			log.Error("error closing token cache", zap.Error(err))
		}
		return nil
	})
}

// addAuditServiceShutdownJob adds audit service shutdown handler
func addAuditServiceShutdownJob(m *graceful.Manager, auditService *services.AuditService, log *zap.Logger) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down audit service")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Error("error shutting down audit service", zap.Error(err))
			return err
		}
		return nil
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
	log *zap.Logger,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	cleanup := func() {
		deleted, err := auditService.CleanupOldLogs(cfg.AuditLogRetention)
		switch {
		case err != nil:
			log.Error("failed to cleanup old audit logs", zap.Error(err))
		case deleted > 0:
			log.Info("cleaned up old audit logs", zap.Int64("deleted", deleted))
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(auditCleanupInterval)
		defer ticker.Stop()

		cleanup()
		for {
			select {
			case <-ticker.C:
				cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db core.MetricsStore,
	recorder core.Recorder,
	log *zap.Logger,
) {
	if !cfg.MetricsEnabled {
		return
	}

	errLog := newErrorLogger(log, gaugeErrorLogWindow)
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(gaugeUpdateInterval)
		defer ticker.Stop()

		updateGaugeMetrics(ctx, db, recorder, errLog)
		for {
			select {
			case <-ticker.C:
				updateGaugeMetrics(ctx, db, recorder, errLog)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addRequestSyncJob runs the periodic Home Graph request sync
func addRequestSyncJob(
	m *graceful.Manager,
	cfg *config.Config,
	syncer *homegraph.Syncer,
	log *zap.Logger,
) {
	if syncer == nil || cfg.SyncInterval <= 0 {
		return
	}

	log.Info("periodic request sync enabled", zap.Duration("interval", cfg.SyncInterval))
	m.AddRunningJob(func(ctx context.Context) error {
		return syncer.Run(ctx, cfg.SyncInterval)
	})
}

// errorLogger logs a failing operation at most once per window.
type errorLogger struct {
	log    *zap.Logger
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func newErrorLogger(log *zap.Logger, window time.Duration) *errorLogger {
	return &errorLogger{
		log:    log,
		window: window,
		last:   make(map[string]time.Time),
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if last, ok := e.last[operation]; ok && now.Sub(last) < e.window {
		return
	}
	e.last[operation] = now
	e.log.Error("database query failed",
		zap.String("operation", operation),
		zap.Duration("suppressed_for", e.window),
		zap.Error(err),
	)
}

// updateGaugeMetrics refreshes the active token gauge
func updateGaugeMetrics(
	ctx context.Context,
	db core.MetricsStore,
	m core.Recorder,
	errLog *errorLogger,
) {
	count, err := db.CountAccessTokens(ctx)
	if err != nil {
		m.RecordDatabaseQueryError("count_access_tokens")
		errLog.logIfNeeded("count_access_tokens", err)
		return
	}
	m.SetActiveTokensCount(int(count))
}
