package bootstrap

import (
	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/homegraph"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"

	"go.uber.org/zap"
)

// initializeServices creates the OAuth authority and the intent dispatcher
func initializeServices(
	cfg *config.Config,
	log *zap.Logger,
	db *store.Store,
	dir *directory.Directory,
	tokenCache core.Cache[string],
	auditService *services.AuditService,
	m core.Recorder,
) (*services.OAuthService, *services.FulfillmentService) {
	oauthService := services.NewOAuthService(
		services.OAuthConfig{
			ClientID:       cfg.ClientID,
			ClientSecret:   cfg.ClientSecret,
			CodeExpiration: cfg.AuthCodeExpiration,
			TokenCacheTTL:  cfg.TokenCacheTTL,
		},
		dir,
		db,
		tokenCache,
		auditService,
		m,
		log.Named("oauth"),
	)

	fulfillmentService := services.NewFulfillmentService(
		dir,
		oauthService,
		auditService,
		m,
		log.Named("fulfillment"),
		cfg.DriverTimeout,
	)

	return oauthService, fulfillmentService
}

// initializeSyncer builds the Home Graph request-sync runner. Returns nil
// when no API key is configured.
func initializeSyncer(
	cfg *config.Config,
	dir *directory.Directory,
	m core.Recorder,
	log *zap.Logger,
) (*homegraph.Syncer, error) {
	if cfg.HomeGraphAPIKey == "" {
		return nil, nil //nolint:nilnil // request sync not configured
	}

	client, err := homegraph.NewClient(homegraph.Config{
		URL:           cfg.HomeGraphURL,
		APIKey:        cfg.HomeGraphAPIKey,
		Timeout:       cfg.HomeGraphTimeout,
		MaxRetries:    cfg.HomeGraphMaxRetries,
		RetryDelay:    cfg.HomeGraphRetryDelay,
		MaxRetryDelay: cfg.HomeGraphMaxDelay,
	}, m, log.Named("homegraph"))
	if err != nil {
		return nil, err
	}
	return homegraph.NewSyncer(dir, client, log.Named("sync")), nil
}
