package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
)

type cacheEntry struct {
	bundle    contextcache.Bundle
	expiresAt time.Time
}

// MemoryCache is a dependency-free contextcache.Cache for tests and
// local dev, adapted from the teacher's expiry-aware faqstore.MemoryStore.
// It never fails a transport call, so it does not implement Prober.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (contextcache.Bundle, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return contextcache.Bundle{}, false, nil
	}
	if hasExpired(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return contextcache.Bundle{}, false, nil
	}
	bundle := e.bundle
	bundle.CacheHit = true
	return bundle, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, bundle contextcache.Bundle, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.entries[key] = cacheEntry{bundle: bundle, expiresAt: exp}
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ contextcache.Cache = (*MemoryCache)(nil)
