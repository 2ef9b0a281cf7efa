package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
)

// GetWithFetch is a cache-aside helper: on a miss it calls fetchFunc,
// stores the result, and returns it. Cache backend failures fall through
// to fetchFunc so an unavailable cache never blocks a lookup.
// Note: does not provide stampede protection under concurrent load.
func GetWithFetch[T any](
	ctx context.Context,
	c core.Cache[T],
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	value, err := c.Get(ctx, key)
	if err == nil {
		return value, nil
	}

	value, fetchErr := fetchFunc(ctx, key)
	if fetchErr != nil {
		var zero T
		return zero, fetchErr
	}

	// Only populate on a clean miss; a broken backend is skipped.
	if errors.Is(err, ErrCacheMiss) {
		_ = c.Set(ctx, key, value, ttl)
	}
	return value, nil
}
