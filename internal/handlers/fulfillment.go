package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/metrics"
	"github.com/ClusterM/google-assistant-smart-home/internal/middleware"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readyMessage = "Your smart home is ready."

// Dispatcher runs the intents of a fulfillment request.
type Dispatcher interface {
	Handle(ctx context.Context, userID, token string, req *models.FulfillmentRequest) (*models.FulfillmentResponse, error)
}

// FulfillmentHandler serves the fulfillment webhook.
type FulfillmentHandler struct {
	dispatcher Dispatcher
}

func NewFulfillmentHandler(dispatcher Dispatcher) *FulfillmentHandler {
	return &FulfillmentHandler{dispatcher: dispatcher}
}

// Ready answers GET / so the endpoint can be probed without a token.
func (h *FulfillmentHandler) Ready(c *gin.Context) {
	c.String(http.StatusOK, readyMessage)
}

// Fulfill handles an authenticated POST / from the platform. The bearer
// middleware has already stored the user and token in the context.
func (h *FulfillmentHandler) Fulfill(c *gin.Context) {
	log := logger.From(c.Request.Context())

	var req models.FulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("malformed fulfillment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	log.Debug("fulfillment request", zap.Any("request", req))
	c.Set(metrics.ContextKeyIntent, leadingIntent(&req))

	resp, err := h.dispatcher.Handle(
		c.Request.Context(),
		c.GetString(models.ContextKeyUserID),
		c.GetString(middleware.ContextKeyAccessToken),
		&req,
	)
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	log.Debug("fulfillment response", zap.Any("response", resp))
	c.JSON(http.StatusOK, resp)
}

// leadingIntent labels a request by its first input. Anything outside the
// four known intents collapses to "other".
func leadingIntent(req *models.FulfillmentRequest) string {
	if len(req.Inputs) == 0 {
		return "none"
	}
	switch intent := req.Inputs[0].Intent; intent {
	case models.IntentSync, models.IntentQuery, models.IntentExecute, models.IntentDisconnect:
		return intent
	default:
		return "other"
	}
}
