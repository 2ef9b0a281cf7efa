package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CodeExchanger trades an authorization code for an access token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, clientID, clientSecret string) (string, error)
}

// TokenHandler serves the token endpoint.
type TokenHandler struct {
	codes CodeExchanger
}

func NewTokenHandler(codes CodeExchanger) *TokenHandler {
	return &TokenHandler{codes: codes}
}

// Token handles POST /token/ with form fields client_id, client_secret and code.
func (h *TokenHandler) Token(c *gin.Context) {
	clientID, hasClientID := c.GetPostForm("client_id")
	clientSecret, hasSecret := c.GetPostForm("client_secret")
	code, hasCode := c.GetPostForm("code")

	if !hasClientID || !hasSecret || !hasCode {
		logger.From(c.Request.Context()).Warn("token request missing fields")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "client_id, client_secret and code are required",
		})
		return
	}

	token, err := h.codes.ExchangeCode(c.Request.Context(), code, clientID, clientSecret)
	switch {
	case errors.Is(err, services.ErrInvalidClient):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_client"})
		return
	case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "invalid_grant",
			"error_description": err.Error(),
		})
		return
	case err != nil:
		logger.From(c.Request.Context()).Error("token exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
	})
}
