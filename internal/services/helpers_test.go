package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/cache"
	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/directory"
	"github.com/ClusterM/google-assistant-smart-home/internal/metrics"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"
	"github.com/ClusterM/google-assistant-smart-home/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testClientID     = "google"
	testClientSecret = "s3cret"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeUsers authenticates against an in-memory password map.
type fakeUsers map[string]string

func (f fakeUsers) Authenticate(userID, password string) (*models.User, error) {
	want, ok := f[userID]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	if want != password {
		return nil, directory.ErrInvalidPassword
	}
	return &models.User{ID: userID}, nil
}

// fakeClock is a settable time source for code expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestOAuthService(t *testing.T) (*OAuthService, *store.Store, *fakeClock) {
	t.Helper()
	s := setupTestStore(t)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}

	svc := NewOAuthService(
		OAuthConfig{
			ClientID:       testClientID,
			ClientSecret:   testClientSecret,
			CodeExpiration: 10 * time.Second,
			TokenCacheTTL:  time.Minute,
		},
		fakeUsers{"alice": "secret", "bob": "hunter2", "carol": "pw"},
		s,
		cache.NewMemoryCache[string](time.Minute),
		NewAuditService(s, false, 0, nil),
		metrics.NewNoopMetrics(),
		zap.NewNop(),
	)
	svc.now = clock.Now
	return svc, s, clock
}

// stubDriver is a scripted driver for dispatcher tests.
type stubDriver struct {
	mu       sync.Mutex
	state    models.DeviceState
	queryErr error
	block    bool // wait for ctx to end
	action   models.ActionResult
	actErr   error
	calls    []string
}

func (d *stubDriver) Query(ctx context.Context, _ map[string]any) (models.DeviceState, error) {
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return d.state, d.queryErr
}

func (d *stubDriver) Action(
	ctx context.Context,
	_ map[string]any,
	command string,
	params map[string]any,
) (models.ActionResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, command)
	d.mu.Unlock()
	if d.block {
		<-ctx.Done()
		return models.ActionResult{}, ctx.Err()
	}
	return d.action, d.actErr
}

func (d *stubDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// fakeDirectory mirrors directory.Directory semantics over fixed maps.
type fakeDirectory struct {
	users   map[string][]string
	drivers map[string]core.Driver
}

func (f *fakeDirectory) ListForUser(userID string) ([]models.DeviceDescriptor, error) {
	ids, ok := f.users[userID]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	out := make([]models.DeviceDescriptor, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.drivers[id]; !ok {
			return nil, directory.ErrDeviceNotFound
		}
		out = append(out, models.DeviceDescriptor{
			ID:     id,
			Type:   models.DeviceTypeSwitch,
			Traits: []string{models.TraitOnOff},
			Name:   models.DeviceName{Name: id},
		})
	}
	return out, nil
}

func (f *fakeDirectory) DriverFor(deviceID string) (core.Driver, error) {
	d, ok := f.drivers[deviceID]
	if !ok {
		return nil, directory.ErrDeviceNotFound
	}
	return d, nil
}

func (f *fakeDirectory) DriverType(deviceID string) string {
	if _, ok := f.drivers[deviceID]; ok {
		return "stub"
	}
	return ""
}

// fakeRevoker records revoked tokens.
type fakeRevoker struct {
	mu      sync.Mutex
	revoked []string
	err     error
}

func (f *fakeRevoker) RevokeToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.err
}
