package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alnum = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func issueAndExchange(t *testing.T, svc *OAuthService, user, password string) string {
	t.Helper()
	ctx := context.Background()
	code, err := svc.IssueCode(ctx, user, password, testClientID, "code")
	require.NoError(t, err)
	token, err := svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	require.NoError(t, err)
	return token
}

func TestOAuth_RoundTrip(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	for user, password := range map[string]string{"alice": "secret", "bob": "hunter2", "carol": "pw"} {
		t.Run(user, func(t *testing.T) {
			token := issueAndExchange(t, svc, user, password)

			got, err := svc.ValidateToken(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, user, got)
		})
	}
}

func TestIssueCode_Format(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)

	code, err := svc.IssueCode(context.Background(), "alice", "secret", testClientID, "code")
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Regexp(t, alnum, code)
}

func TestIssueCode_InvalidRequest(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name                   string
		clientID, responseType string
	}{
		{"wrong response type", testClientID, "token"},
		{"empty response type", testClientID, ""},
		{"wrong client", "someone-else", "code"},
		{"empty client", "", "code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IssueCode(ctx, "alice", "secret", tt.clientID, tt.responseType)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestIssueCode_InvalidCredentials(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "alice", "wrong", testClientID, "code")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.IssueCode(ctx, "mallory", "secret", testClientID, "code")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueCode_FailedLoginKeepsLiveCode(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	_, err = svc.IssueCode(ctx, "bob", "wrong", testClientID, "code")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.NoError(t, err)
}

func TestExchangeCode_SecondCodeInvalidatesFirst(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	first, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)
	second, err := svc.IssueCode(ctx, "bob", "hunter2", testClientID, "code")
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, first, testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode)

	token, err := svc.ExchangeCode(ctx, second, testClientID, testClientSecret)
	require.NoError(t, err)
	user, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "bob", user)
}

func TestExchangeCode_Expired(t *testing.T) {
	svc, _, clock := newTestOAuthService(t)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	clock.Advance(11 * time.Second)

	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrCodeExpired)

	// The expired code is gone for good.
	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestExchangeCode_AtExpiryBoundary(t *testing.T) {
	svc, _, clock := newTestOAuthService(t)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	clock.Advance(10 * time.Second)

	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.NoError(t, err)
}

func TestExchangeCode_SingleUse(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestExchangeCode_InvalidClient(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	for _, creds := range [][2]string{
		{testClientID, "wrong"},
		{"other", testClientSecret},
		{testClientID, ""},
		{"", ""},
	} {
		_, err := svc.ExchangeCode(ctx, code, creds[0], creds[1])
		assert.ErrorIs(t, err, ErrInvalidClient)
	}

	// Client failures leave the code usable.
	_, err = svc.ExchangeCode(ctx, code, testClientID, testClientSecret)
	assert.NoError(t, err)
}

func TestExchangeCode_WrongCode(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	_, err := svc.ExchangeCode(ctx, "whatever", testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode, "no live code")

	code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, "", testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = svc.ExchangeCode(ctx, code+"x", testClientID, testClientSecret)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestExchangeCode_TokenFormatAndStorage(t *testing.T) {
	svc, s, _ := newTestOAuthService(t)
	ctx := context.Background()

	token := issueAndExchange(t, svc, "alice", "secret")
	assert.Len(t, token, 32)
	assert.Regexp(t, alnum, token)

	count, err := s.CountAccessTokensByUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIssueCode_ConcurrentIssuanceLeavesOneLiveCode(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	const n = 20
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := svc.IssueCode(ctx, "alice", "secret", testClientID, "code")
			assert.NoError(t, err)
			codes[i] = code
		}()
	}
	wg.Wait()

	accepted := 0
	for _, code := range codes {
		if _, err := svc.ExchangeCode(ctx, code, testClientID, testClientSecret); err == nil {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestValidateToken_Unknown(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	_, err := svc.ValidateToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.ValidateToken(ctx, "")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateToken_ServedFromStoreWhenCacheCold(t *testing.T) {
	svc, _, _ := newTestOAuthService(t)
	ctx := context.Background()

	token := issueAndExchange(t, svc, "alice", "secret")
	require.NoError(t, svc.cache.Close()) // flush

	user, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestRevokeToken(t *testing.T) {
	svc, s, _ := newTestOAuthService(t)
	ctx := context.Background()

	token := issueAndExchange(t, svc, "alice", "secret")
	_, err := svc.ValidateToken(ctx, token) // warm the cache
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(ctx, token))

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	count, err := s.CountAccessTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRevokeToken_UnknownHasNoSideEffects(t *testing.T) {
	svc, s, _ := newTestOAuthService(t)
	ctx := context.Background()

	token := issueAndExchange(t, svc, "alice", "secret")

	assert.ErrorIs(t, svc.RevokeToken(ctx, "unknown-token"), ErrTokenNotFound)
	assert.ErrorIs(t, svc.RevokeToken(ctx, ""), ErrTokenNotFound)

	count, err := s.CountAccessTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	user, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

// pausingTokenStore holds the first lookup after the row has been read.
type pausingTokenStore struct {
	TokenStore
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingTokenStore) GetAccessTokenByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	record, err := p.TokenStore.GetAccessTokenByHash(ctx, hash)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return record, err
}

func TestRevokeToken_DuringCacheFill(t *testing.T) {
	svc, s, _ := newTestOAuthService(t)
	ctx := context.Background()

	token := issueAndExchange(t, svc, "alice", "secret")
	require.NoError(t, svc.cache.Delete(ctx, tokenCachePrefix+util.SHA256Hex(token)))

	paused := &pausingTokenStore{
		TokenStore: s,
		read:       make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc.store = paused

	validated := make(chan error, 1)
	go func() {
		_, err := svc.ValidateToken(ctx, token)
		validated <- err
	}()
	<-paused.read

	revoked := make(chan error, 1)
	go func() { revoked <- svc.RevokeToken(ctx, token) }()

	select {
	case <-revoked:
		t.Fatal("revoke completed while a cache fill was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(paused.release)
	require.NoError(t, <-validated)
	require.NoError(t, <-revoked)

	_, err := svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
