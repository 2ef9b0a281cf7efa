package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"
	"github.com/ClusterM/google-assistant-smart-home/internal/templates"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CodeIssuer authenticates a user and issues an authorization code.
type CodeIssuer interface {
	IssueCode(ctx context.Context, username, password, clientID, responseType string) (string, error)
}

// AuthHandler serves the account-linking login form.
type AuthHandler struct {
	codes             CodeIssuer
	audit             *services.AuditService
	redirectAllowlist []string
}

func NewAuthHandler(codes CodeIssuer, audit *services.AuditService, redirectAllowlist []string) *AuthHandler {
	return &AuthHandler{
		codes:             codes,
		audit:             audit,
		redirectAllowlist: redirectAllowlist,
	}
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	templates.RenderLogin(c, http.StatusOK, templates.LoginPageProps{})
}

// Login checks the submitted credentials and, on success, redirects the
// user agent back to the platform with a fresh authorization code.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	username, hasUsername := c.GetPostForm("username")
	password, hasPassword := c.GetPostForm("password")
	state, hasState := c.GetQuery("state")
	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")
	log := logger.From(ctx).With(logger.User(username))

	if !hasUsername || !hasPassword || !hasState {
		h.rejectRequest(c, log, username, "missing required parameters")
		return
	}
	if !util.IsRedirectURIAllowed(redirectURI, h.redirectAllowlist) {
		h.rejectRequest(c, log, username, "redirect_uri not allowed")
		return
	}

	code, err := h.codes.IssueCode(ctx, username, password, clientID, c.Query("response_type"))
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.String(http.StatusBadRequest, "Invalid request")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		templates.RenderLogin(c, http.StatusOK, templates.LoginPageProps{
			Username:    username,
			LoginFailed: true,
		})
		return
	case err != nil:
		log.Error("failed to issue authorization code", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	target, err := util.AppendQuery(redirectURI, url.Values{
		"state":     {state},
		"code":      {code},
		"client_id": {clientID},
	})
	if err != nil {
		h.rejectRequest(c, log, username, "malformed redirect_uri")
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *AuthHandler) rejectRequest(c *gin.Context, log *zap.Logger, username, reason string) {
	log.Warn("invalid auth request", zap.String("reason", reason))
	h.audit.Log(c.Request.Context(), services.AuditLogEntry{
		EventType:     models.EventAuthRequestInvalid,
		Severity:      models.SeverityWarning,
		ActorUserID:   username,
		ResourceType:  models.ResourceAuthCode,
		Action:        "Authorization request rejected",
		Details:       models.AuditDetails{"reason": reason},
		Success:       false,
		ErrorMessage:  reason,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})
	c.String(http.StatusBadRequest, "Invalid request")
}
