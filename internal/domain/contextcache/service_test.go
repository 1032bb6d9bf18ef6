package contextcache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
	"github.com/wildfireranch/commandcenter/internal/infra/cachestore"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// flakyCache fails every Get/Put once failing is set, and recovers once
// the test flips it back, exercising the disable/recover contract
// without a real network dependency.
type flakyCache struct {
	failing  atomic.Bool
	pingOK   atomic.Bool
	inner    *cachestore.MemoryCache
	putCalls atomic.Int32
}

func newFlakyCache() *flakyCache {
	return &flakyCache{inner: cachestore.NewMemoryCache()}
}

func (f *flakyCache) Get(ctx context.Context, key string) (contextcache.Bundle, bool, error) {
	if f.failing.Load() {
		return contextcache.Bundle{}, false, errors.New("connection refused")
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyCache) Put(ctx context.Context, key string, bundle contextcache.Bundle, ttl time.Duration) error {
	f.putCalls.Add(1)
	if f.failing.Load() {
		return errors.New("connection refused")
	}
	return f.inner.Put(ctx, key, bundle, ttl)
}

func (f *flakyCache) Ping(context.Context) error {
	if f.pingOK.Load() {
		return nil
	}
	return errors.New("still down")
}

var _ contextcache.Cache = (*flakyCache)(nil)
var _ contextcache.Prober = (*flakyCache)(nil)

func TestService_HealthyBackendRoundTrips(t *testing.T) {
	backend := newFlakyCache()
	svc := contextcache.NewService(backend, 0, time.Hour, testLogger())
	defer svc.Close()

	bundle := contextcache.Bundle{SystemText: "sys", QueryType: "GENERAL", TotalTokens: 42}
	svc.Put(context.Background(), "k1", bundle, time.Minute)

	got, ok := svc.Get(context.Background(), "k1")
	require.True(t, ok)
	require.Equal(t, "sys", got.SystemText)
	require.True(t, svc.Enabled())
}

func TestService_TransportErrorDisablesAndFallsBackToLRU(t *testing.T) {
	backend := newFlakyCache()
	svc := contextcache.NewService(backend, 0, time.Hour, testLogger())
	defer svc.Close()

	bundle := contextcache.Bundle{SystemText: "sys", QueryType: "GENERAL"}
	svc.Put(context.Background(), "k1", bundle, time.Minute)
	require.True(t, svc.Enabled())

	backend.failing.Store(true)

	// A failed backend Get disables the service; the fallback LRU still
	// has the entry from the earlier successful Put.
	got, ok := svc.Get(context.Background(), "k1")
	require.True(t, ok)
	require.Equal(t, "sys", got.SystemText)
	require.False(t, svc.Enabled())

	// A brand new key was never in the fallback, so it's a clean miss,
	// never an error, even while the backend is down.
	_, ok = svc.Get(context.Background(), "unknown")
	require.False(t, ok)
}

func TestService_DisabledServiceSkipsBackendWrites(t *testing.T) {
	backend := newFlakyCache()
	svc := contextcache.NewService(backend, 0, time.Hour, testLogger())
	defer svc.Close()

	backend.failing.Store(true)
	_, _ = svc.Get(context.Background(), "missing")
	require.False(t, svc.Enabled())

	before := backend.putCalls.Load()
	svc.Put(context.Background(), "k2", contextcache.Bundle{SystemText: "x"}, time.Minute)
	require.Equal(t, before, backend.putCalls.Load())

	got, ok := svc.Get(context.Background(), "k2")
	require.True(t, ok)
	require.Equal(t, "x", got.SystemText)
}

func TestService_RecoversAfterSuccessfulProbe(t *testing.T) {
	backend := newFlakyCache()
	svc := contextcache.NewService(backend, 0, 20*time.Millisecond, testLogger())
	defer svc.Close()

	backend.failing.Store(true)
	_, _ = svc.Get(context.Background(), "missing")
	require.False(t, svc.Enabled())

	backend.pingOK.Store(true)
	backend.failing.Store(false)

	require.Eventually(t, func() bool {
		return svc.Enabled()
	}, time.Second, 5*time.Millisecond)
}

func TestKey_IsStableAndNormalizesWhitespaceAndCase(t *testing.T) {
	a := contextcache.Key("user-1", "  What's My   SOC?  ", "GENERAL")
	b := contextcache.Key("user-1", "what's my soc?", "GENERAL")
	require.Equal(t, a, b)

	c := contextcache.Key("user-2", "what's my soc?", "GENERAL")
	require.NotEqual(t, a, c)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	cache := cachestore.NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "k", contextcache.Bundle{SystemText: "s"}, 10*time.Millisecond))

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
