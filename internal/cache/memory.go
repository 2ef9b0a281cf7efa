package cache

import (
	"context"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"

	gocache "github.com/patrickmn/go-cache"
)

// Compile-time interface check.
var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache implements Cache with an in-process go-cache store.
// Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	c *gocache.Cache
}

// NewMemoryCache creates a new memory cache; expired items are purged
// every cleanupInterval.
func NewMemoryCache[T any](cleanupInterval time.Duration) *MemoryCache[T] {
	return &MemoryCache[T]{
		c: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	v, ok := m.c.Get(key)
	if !ok {
		return zero, ErrCacheMiss
	}
	value, ok := v.(T)
	if !ok {
		return zero, ErrInvalidValue
	}
	return value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

// Delete removes a key from cache.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Close drops every entry.
func (m *MemoryCache[T]) Close() error {
	m.c.Flush()
	return nil
}

// Health always succeeds for the in-process cache.
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}
