package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryCache[V any](t *testing.T) *LoaderCache[string, V] {
	t.Helper()

	c, err := NewLoaderCache[string, V](10, func(q string) string {
		return strings.ToLower(strings.TrimSpace(q))
	})
	require.NoError(t, err)

	return c
}

func TestNewLoaderCache_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewLoaderCache[string, int](0, strings.TrimSpace)
	require.Error(t, err)
}

func TestLoaderCache_NormalizedKeysShareEntry(t *testing.T) {
	c := newQueryCache[[]float32](t)

	var loads atomic.Int32

	load := func(context.Context, string) ([]float32, error) {
		loads.Add(1)

		return []float32{0.6, 0.8}, nil
	}

	ctx := context.Background()

	v, hit, err := c.GetWithStats(ctx, "how to throw away batteries", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []float32{0.6, 0.8}, v)

	_, hit, err = c.GetWithStats(ctx, "  How to throw away batteries ", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(1), loads.Load())
}

func TestLoaderCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := newQueryCache[int](t)

	var loads atomic.Int32

	entered := make(chan struct{})
	release := make(chan struct{})

	load := func(context.Context, string) (int, error) {
		if loads.Add(1) == 1 {
			close(entered)
		}
		<-release

		return 42, nil
	}

	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		results = make([]int, 8)
	)

	for i := range results {
		wg.Go(func() {
			v, err := c.Get(ctx, "pork", load)
			assert.NoError(t, err)

			results[i] = v
		})
	}

	<-entered
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestLoaderCache_FailedLoadIsNotCached(t *testing.T) {
	c := newQueryCache[string](t)
	loadErr := errors.New("embedding backend unavailable")

	_, err := c.Get(context.Background(), "a", func(context.Context, string) (string, error) {
		return "", loadErr
	})
	require.ErrorIs(t, err, loadErr)
	assert.Zero(t, c.Len())
}

func TestLoaderCache_WaiterCancellationKeepsLoad(t *testing.T) {
	c := newQueryCache[string](t)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(_ context.Context, key string) (string, error) {
		close(started)
		<-release

		return "v-" + key, nil
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, err := c.Get(context.Background(), "a", load)
		assert.NoError(t, err)
	}()

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "a", load)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done

	assert.Equal(t, 1, c.Len())
}

func TestLoaderCache_LoadOutlivesStartingCaller(t *testing.T) {
	c := newQueryCache[string](t)

	started := make(chan struct{})
	release := make(chan struct{})

	var loadErr atomic.Value

	load := func(ctx context.Context, key string) (string, error) {
		close(started)
		<-release

		if err := ctx.Err(); err != nil {
			loadErr.Store(err)

			return "", err
		}

		return "v-" + key, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)

	go func() {
		_, err := c.Get(firstCtx, "a", load)
		firstDone <- err
	}()

	<-started

	secondDone := make(chan string, 1)

	go func() {
		v, err := c.Get(context.Background(), "a", load)
		assert.NoError(t, err)
		secondDone <- v
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	assert.Equal(t, "v-a", <-secondDone)
	assert.Nil(t, loadErr.Load())
	assert.Equal(t, 1, c.Len())
}

func TestLoaderCache_LoadTimeout(t *testing.T) {
	c, err := NewLoaderCache[string, string](10, strings.TrimSpace, WithLoadTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "a", func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()

		return "", ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Len())
}
