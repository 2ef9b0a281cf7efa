package bootstrap

import (
	"github.com/ClusterM/google-assistant-smart-home/internal/config"
	"github.com/ClusterM/google-assistant-smart-home/internal/handlers"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth        *handlers.AuthHandler
	token       *handlers.TokenHandler
	fulfillment *handlers.FulfillmentHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	oauthService *services.OAuthService,
	fulfillmentService *services.FulfillmentService,
	auditService *services.AuditService,
) handlerSet {
	return handlerSet{
		auth:        handlers.NewAuthHandler(oauthService, auditService, cfg.RedirectURIAllowlist),
		token:       handlers.NewTokenHandler(oauthService),
		fulfillment: handlers.NewFulfillmentHandler(fulfillmentService),
	}
}
