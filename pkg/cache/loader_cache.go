// Package cache provides a generic read-through cache combining LRU storage with
// singleflight so concurrent misses for the same key share one load.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a shared load when WithLoadTimeout is not given.
const DefaultLoadTimeout = 30 * time.Second

// LoaderCache loads values on miss via a callback. Keys are mapped to strings with keyFn
// before lookup, so callers can normalize equivalent keys (e.g. trimmed query text) onto
// one entry. Failed loads are not cached.
type LoaderCache[K comparable, V any] struct {
	lru         *lru.Cache[string, V]
	group       singleflight.Group
	keyFn       func(K) string
	loadTimeout time.Duration
}

// Option configures a LoaderCache.
type Option func(*options)

type options struct {
	loadTimeout time.Duration
}

// WithLoadTimeout bounds each shared load. Non-positive values keep DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// NewLoaderCache creates a loader cache with the given max entries and key function.
func NewLoaderCache[K comparable, V any](maxEntries int, keyFn func(K) string, opts ...Option) (*LoaderCache[K, V], error) {
	lruCache, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	o := options{loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &LoaderCache[K, V]{
		lru:         lruCache,
		keyFn:       keyFn,
		loadTimeout: o.loadTimeout,
	}, nil
}

// Get returns the value for key, loading it via load on cache miss.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, error) {
	v, _, err := c.GetWithStats(ctx, key, load)

	return v, err
}

// GetWithStats is like Get but also reports whether the value came from cache (hit) or was loaded (miss).
//
// The load is shared by every caller waiting on the key, so it runs detached from the starting
// caller's cancellation (its values are kept) and is bounded by the load timeout instead. A caller
// whose own context ends while waiting returns ctx.Err() without cancelling the load.
func (c *LoaderCache[K, V]) GetWithStats(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, bool, error) {
	var zero V

	keyStr := c.keyFn(key)
	if v, ok := c.lru.Get(keyStr); ok {
		return v, true, nil
	}

	ch := c.group.DoChan(keyStr, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		loaded, err := load(loadCtx, key)
		if err != nil {
			return nil, err
		}

		c.lru.Add(keyStr, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, fmt.Errorf("cache load %q: %w", keyStr, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}

		v, ok := res.Val.(V)
		if !ok {
			return zero, false, fmt.Errorf("cache load %q: unexpected value type %T", keyStr, res.Val)
		}

		return v, false, nil
	}
}

// Len returns the number of entries in the cache.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
