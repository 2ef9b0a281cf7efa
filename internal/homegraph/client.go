package homegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
	"go.uber.org/zap"
)

const maxResponseBody = 64 << 10

// ErrSyncRejected is returned when Home Graph answers with anything but an
// empty JSON object.
var ErrSyncRejected = errors.New("request sync rejected")

// Config holds the request-sync endpoint settings.
type Config struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Client asks Home Graph to re-run SYNC for a user.
type Client struct {
	endpoint string
	http     *retry.Client
	metrics  core.Recorder
	log      *zap.Logger
}

func NewClient(cfg Config, m core.Recorder, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("home graph API key is not configured")
	}
	endpoint, err := util.AppendQuery(cfg.URL, url.Values{"key": {cfg.APIKey}})
	if err != nil {
		return nil, fmt.Errorf("invalid home graph URL: %w", err)
	}

	httpClient, err := httpclient.NewClient(httpclient.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create home graph HTTP client: %w", err)
	}

	// Retries network errors, 5xx and 429 with exponential backoff.
	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(httpClient),
		retry.WithMaxRetries(cfg.MaxRetries),
		retry.WithInitialRetryDelay(cfg.RetryDelay),
		retry.WithMaxRetryDelay(cfg.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create home graph retry client: %w", err)
	}

	return &Client{
		endpoint: endpoint,
		http:     retryClient,
		metrics:  m,
		log:      log,
	}, nil
}

type requestSyncBody struct {
	AgentUserID string `json:"agentUserId"`
}

// RequestSync posts {"agentUserId": userID}. The call succeeds only when
// the response body is "{}".
func (c *Client) RequestSync(ctx context.Context, userID string) error {
	err := c.requestSync(ctx, userID)
	c.metrics.RecordRequestSync(err == nil)
	return err
}

func (c *Client) requestSync(ctx context.Context, userID string) error {
	payload, err := json.Marshal(requestSyncBody{AgentUserID: userID})
	if err != nil {
		return err
	}

	resp, err := c.http.Post(
		ctx,
		c.endpoint,
		retry.WithBody("application/json", bytes.NewReader(payload)),
	)
	if err != nil {
		c.log.Warn("request sync failed", logger.User(userID), zap.Error(err))
		return fmt.Errorf("request sync for %s: %w", userID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text != "{}" {
		return fmt.Errorf("%w: status %d: %s", ErrSyncRejected, resp.StatusCode, text)
	}
	return nil
}
