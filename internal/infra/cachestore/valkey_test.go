package cachestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
	"github.com/wildfireranch/commandcenter/internal/infra/cachestore"
)

func newTestValkeyCache(t *testing.T) *cachestore.ValkeyCache {
	t.Helper()
	server := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{server.Addr()}})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return cachestore.NewValkeyCache(client, "ctxtest")
}

func TestValkeyCache_MissReturnsFalse(t *testing.T) {
	cache := newTestValkeyCache(t)
	_, hit, err := cache.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestValkeyCache_PutThenGetRoundTrips(t *testing.T) {
	cache := newTestValkeyCache(t)
	bundle := contextcache.Bundle{
		SystemText:  "system context",
		KBText:      "kb context",
		TotalTokens: 120,
		QueryType:   "SYSTEM",
		BuiltAt:     time.Now().Truncate(time.Second),
	}

	require.NoError(t, cache.Put(context.Background(), "session-1", bundle, time.Minute))

	got, hit, err := cache.Get(context.Background(), "session-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.True(t, got.CacheHit)
	require.Equal(t, bundle.SystemText, got.SystemText)
	require.Equal(t, bundle.TotalTokens, got.TotalTokens)
}

func TestValkeyCache_ExpiresAfterTTL(t *testing.T) {
	cache := newTestValkeyCache(t)
	bundle := contextcache.Bundle{SystemText: "expiring"}

	require.NoError(t, cache.Put(context.Background(), "short-lived", bundle, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, hit, err := cache.Get(context.Background(), "short-lived")
	require.NoError(t, err)
	require.False(t, hit)
}
