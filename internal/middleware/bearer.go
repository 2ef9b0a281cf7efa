package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextKeyAccessToken is the gin key holding the presented bearer token.
const ContextKeyAccessToken = "access_token"

// TokenValidator resolves a bearer token to its owner.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// ParseBearer extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive; anything else is rejected.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// RequireBearerToken rejects requests without a valid access token with
// 403 "Access denied" before any handler runs. On success the user id and
// token are stored in the gin context.
func RequireBearerToken(tokens TokenValidator, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.From(c.Request.Context())

		token, ok := ParseBearer(c.GetHeader("Authorization"))
		if !ok {
			denyAccess(c, log, audit, "missing or malformed authorization header")
			return
		}

		userID, err := tokens.ValidateToken(c.Request.Context(), token)
		if errors.Is(err, services.ErrTokenNotFound) {
			denyAccess(c, log, audit, "unknown access token")
			return
		}
		if err != nil {
			log.Error("token validation failed", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(models.ContextKeyUserID, userID)
		c.Set(ContextKeyAccessToken, token)
		ctx := models.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(logger.ToContext(ctx, log.With(logger.User(userID))))
		c.Next()
	}
}

func denyAccess(c *gin.Context, log *zap.Logger, audit *services.AuditService, reason string) {
	log.Warn("access denied", zap.String("reason", reason))
	audit.Log(c.Request.Context(), services.AuditLogEntry{
		EventType:     models.EventAccessDenied,
		Severity:      models.SeverityWarning,
		ResourceType:  models.ResourceRequest,
		Action:        "Fulfillment request rejected",
		Details:       models.AuditDetails{"reason": reason},
		Success:       false,
		ErrorMessage:  reason,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})
	c.String(http.StatusForbidden, "Access denied")
	c.Abort()
}
