package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/cache"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/logger"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	authCodeLength    = 8
	accessTokenLength = 32
	tokenCachePrefix  = "token:"
	revokeReason      = "disconnect"
	tokenLockStripes  = 64

	resultSuccess = "success"
	resultError   = "error"
)

// OAuth errors
var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidCode        = errors.New("invalid authorization code")
	ErrCodeExpired        = errors.New("authorization code expired")
	ErrTokenNotFound      = errors.New("access token not found")
)

// Authenticator verifies a user's password.
type Authenticator interface {
	Authenticate(userID, password string) (*models.User, error)
}

// TokenStore persists access tokens by hash.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, token *models.AccessToken) error
	GetAccessTokenByHash(ctx context.Context, hash string) (*models.AccessToken, error)
	DeleteAccessTokenByHash(ctx context.Context, hash string) error
}

// OAuthConfig carries the client registration and code lifetime.
type OAuthConfig struct {
	ClientID       string
	ClientSecret   string
	CodeExpiration time.Duration
	TokenCacheTTL  time.Duration
}

// authCode is the single live authorization code.
type authCode struct {
	code     string
	userID   string
	issuedAt time.Time
}

// OAuthService issues authorization codes and access tokens for the one
// registered client. Exactly one authorization code is live at a time:
// issuing a new code invalidates the previous one.
type OAuthService struct {
	cfg     OAuthConfig
	users   Authenticator
	store   TokenStore
	cache   core.Cache[string]
	audit   *AuditService
	metrics core.Recorder
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *authCode

	// tokenLocks serialize a cache fill against a revoke of the same hash.
	tokenLocks [tokenLockStripes]sync.Mutex
}

func NewOAuthService(
	cfg OAuthConfig,
	users Authenticator,
	s TokenStore,
	tokenCache core.Cache[string],
	audit *AuditService,
	m core.Recorder,
	log *zap.Logger,
) *OAuthService {
	return &OAuthService{
		cfg:     cfg,
		users:   users,
		store:   s,
		cache:   tokenCache,
		audit:   audit,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// ValidateClientID reports whether clientID is the registered client.
func (s *OAuthService) ValidateClientID(clientID string) bool {
	return clientID != "" && util.SecureCompare(clientID, s.cfg.ClientID)
}

// IssueCode authenticates the user and replaces the live authorization code.
func (s *OAuthService) IssueCode(
	ctx context.Context,
	username, password, clientID, responseType string,
) (string, error) {
	log := s.log.With(logger.RemoteAddr(util.GetIPFromContext(ctx)), logger.User(username))

	if responseType != "code" || !s.ValidateClientID(clientID) {
		log.Warn("invalid authorization request",
			zap.String("response_type", responseType),
			zap.String("client_id", clientID),
		)
		s.audit.Log(ctx, AuditLogEntry{
			EventType:    models.EventAuthRequestInvalid,
			Severity:     models.SeverityWarning,
			ActorUserID:  username,
			ResourceType: models.ResourceAuthCode,
			Action:       "Authorization request rejected",
			Details: models.AuditDetails{
				"response_type": responseType,
				"client_id":     clientID,
			},
			Success:      false,
			ErrorMessage: ErrInvalidRequest.Error(),
		})
		return "", ErrInvalidRequest
	}

	if _, err := s.users.Authenticate(username, password); err != nil {
		if !errors.Is(err, directory.ErrUserNotFound) && !errors.Is(err, directory.ErrInvalidPassword) {
			log.Error("failed to read user record", zap.Error(err))
		} else {
			log.Warn("invalid username or password")
		}
		s.metrics.RecordLogin(false)
		s.audit.Log(ctx, AuditLogEntry{
			EventType:    models.EventLoginFailed,
			Severity:     models.SeverityWarning,
			ActorUserID:  username,
			ResourceType: models.ResourceUser,
			ResourceID:   username,
			Action:       "Login failed",
			Success:      false,
			ErrorMessage: ErrInvalidCredentials.Error(),
		})
		return "", ErrInvalidCredentials
	}
	s.metrics.RecordLogin(true)

	code, err := util.RandomAlphanumeric(authCodeLength)
	if err != nil {
		s.metrics.RecordAuthCodeIssued(false)
		return "", fmt.Errorf("generate authorization code: %w", err)
	}

	s.mu.Lock()
	s.current = &authCode{code: code, userID: username, issuedAt: s.now()}
	s.mu.Unlock()

	s.metrics.RecordAuthCodeIssued(true)
	log.Info("authorization code issued")
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventAuthCodeIssued,
		Severity:     models.SeverityInfo,
		ActorUserID:  username,
		ResourceType: models.ResourceAuthCode,
		ResourceID:   username,
		Action:       "Authorization code issued",
		Details:      models.AuditDetails{"code": code},
		Success:      true,
	})
	return code, nil
}

// consumeCode takes the live code if it matches. An expired code is
// discarded as well.
func (s *OAuthService) consumeCode(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || code == "" || !util.SecureCompare(code, s.current.code) {
		return "", ErrInvalidCode
	}
	live := s.current
	s.current = nil

	if s.now().Sub(live.issuedAt) > s.cfg.CodeExpiration {
		return "", ErrCodeExpired
	}
	return live.userID, nil
}

// ExchangeCode trades the live authorization code for a new access token.
func (s *OAuthService) ExchangeCode(
	ctx context.Context,
	code, clientID, clientSecret string,
) (string, error) {
	log := s.log.With(logger.RemoteAddr(util.GetIPFromContext(ctx)))

	if !s.ValidateClientID(clientID) || clientSecret == "" ||
		!util.SecureCompare(clientSecret, s.cfg.ClientSecret) {
		log.Warn("invalid client credentials", zap.String("client_id", clientID))
		s.metrics.RecordCodeExchange("invalid_client")
		s.auditExchangeFailure(ctx, "", ErrInvalidClient, clientID)
		return "", ErrInvalidClient
	}

	userID, err := s.consumeCode(code)
	if err != nil {
		result := "invalid_code"
		if errors.Is(err, ErrCodeExpired) {
			result = "expired"
		}
		log.Warn("authorization code rejected", zap.Error(err))
		s.metrics.RecordCodeExchange(result)
		s.auditExchangeFailure(ctx, "", err, clientID)
		return "", err
	}
	log = log.With(logger.User(userID))

	token, err := util.RandomAlphanumeric(accessTokenLength)
	if err != nil {
		s.metrics.RecordCodeExchange(resultError)
		return "", fmt.Errorf("generate access token: %w", err)
	}

	record := &models.AccessToken{
		ID:        uuid.New().String(),
		TokenHash: util.SHA256Hex(token),
		UserID:    userID,
		ClientID:  clientID,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateAccessToken(ctx, record); err != nil {
		log.Error("failed to store access token", zap.Error(err))
		s.metrics.RecordCodeExchange(resultError)
		s.auditExchangeFailure(ctx, userID, err, clientID)
		return "", fmt.Errorf("store access token: %w", err)
	}
	if err := s.cache.Set(ctx, tokenCachePrefix+record.TokenHash, userID, s.cfg.TokenCacheTTL); err != nil {
		log.Warn("failed to cache access token", zap.Error(err))
	}

	s.metrics.RecordCodeExchange(resultSuccess)
	s.metrics.RecordTokenIssued()
	log.Info("access token issued")
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventAccessTokenIssued,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceToken,
		ResourceID:   record.ID,
		Action:       "Access token issued",
		Details:      models.AuditDetails{"client_id": clientID},
		Success:      true,
	})
	return token, nil
}

func (s *OAuthService) auditExchangeFailure(ctx context.Context, userID string, err error, clientID string) {
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventTokenExchangeFailed,
		Severity:     models.SeverityWarning,
		ActorUserID:  userID,
		ResourceType: models.ResourceAuthCode,
		Action:       "Authorization code exchange failed",
		Details:      models.AuditDetails{"client_id": clientID},
		Success:      false,
		ErrorMessage: err.Error(),
	})
}

func (s *OAuthService) tokenLock(hash string) *sync.Mutex {
	var h uint32
	for i := 0; i < len(hash); i++ {
		h = h*31 + uint32(hash[i])
	}
	return &s.tokenLocks[h%tokenLockStripes]
}

// ValidateToken returns the owner of token, or ErrTokenNotFound.
func (s *OAuthService) ValidateToken(ctx context.Context, token string) (string, error) {
	start := time.Now()
	if token == "" {
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
		return "", ErrTokenNotFound
	}

	hash := util.SHA256Hex(token)
	if userID, err := s.cache.Get(ctx, tokenCachePrefix+hash); err == nil {
		s.metrics.RecordTokenValidation("valid", time.Since(start))
		return userID, nil
	}

	// A miss reads the store and fills the cache under the hash lock, so a
	// concurrent revoke cannot be overwritten by a stale fill.
	lock := s.tokenLock(hash)
	lock.Lock()
	userID, err := cache.GetWithFetch(
		ctx,
		s.cache,
		tokenCachePrefix+hash,
		s.cfg.TokenCacheTTL,
		func(ctx context.Context, key string) (string, error) {
			record, err := s.store.GetAccessTokenByHash(ctx, key[len(tokenCachePrefix):])
			if errors.Is(err, store.ErrRecordNotFound) {
				return "", ErrTokenNotFound
			}
			if err != nil {
				return "", fmt.Errorf("lookup access token: %w", err)
			}
			return record.UserID, nil
		},
	)
	lock.Unlock()

	switch {
	case err == nil:
		s.metrics.RecordTokenValidation("valid", time.Since(start))
		return userID, nil
	case errors.Is(err, ErrTokenNotFound):
		s.metrics.RecordTokenValidation("invalid", time.Since(start))
	default:
		s.metrics.RecordTokenValidation(resultError, time.Since(start))
	}
	return "", err
}

// RevokeToken deletes token. Revoking an unknown token returns
// ErrTokenNotFound and changes nothing.
func (s *OAuthService) RevokeToken(ctx context.Context, token string) error {
	hash := util.SHA256Hex(token)
	userID := models.GetUserIDFromContext(ctx)
	log := s.log.With(logger.RemoteAddr(util.GetIPFromContext(ctx)), logger.User(userID))

	if token == "" {
		return ErrTokenNotFound
	}
	if err := s.deleteToken(ctx, hash, log); err != nil {
		return err
	}

	s.metrics.RecordTokenRevoked(revokeReason)
	log.Info("access token revoked")
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventTokenRevoked,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceToken,
		Action:       "Access token revoked",
		Success:      true,
	})
	return nil
}

// deleteToken removes the stored token and its cache entry as one step
// with respect to ValidateToken fills.
func (s *OAuthService) deleteToken(ctx context.Context, hash string, log *zap.Logger) error {
	lock := s.tokenLock(hash)
	lock.Lock()
	defer lock.Unlock()

	err := s.store.DeleteAccessTokenByHash(ctx, hash)
	if errors.Is(err, store.ErrRecordNotFound) {
		log.Warn("revoke of unknown access token")
		return ErrTokenNotFound
	}
	if err != nil {
		log.Error("failed to revoke access token", zap.Error(err))
		return fmt.Errorf("revoke access token: %w", err)
	}

	if err := s.cache.Delete(ctx, tokenCachePrefix+hash); err != nil {
		log.Warn("failed to evict revoked token from cache", zap.Error(err))
	}
	return nil
}
