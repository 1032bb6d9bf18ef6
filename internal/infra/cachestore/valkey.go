package cachestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/wildfireranch/commandcenter/internal/domain/contextcache"
)

// ValkeyCache persists context bundles in a Valkey-compatible database,
// grounded on the teacher's faqstore.ValkeyStore command-builder
// pattern (client.B()....Build()) and nil-check idiom.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a ValkeyCache. prefix defaults to "ctx".
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "ctx"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) (contextcache.Bundle, bool, error) {
	cmd := c.client.B().Get().Key(c.entryKey(key)).Build()
	payload, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return contextcache.Bundle{}, false, nil
		}
		return contextcache.Bundle{}, false, err
	}
	var bundle contextcache.Bundle
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return contextcache.Bundle{}, false, err
	}
	bundle.CacheHit = true
	return bundle, true, nil
}

func (c *ValkeyCache) Put(ctx context.Context, key string, bundle contextcache.Bundle, ttl time.Duration) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.entryKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

// Ping verifies connectivity to the backend; used by contextcache.Service
// to detect recovery after a disable.
func (c *ValkeyCache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *ValkeyCache) entryKey(key string) string {
	return c.prefix + ":" + key
}

var _ contextcache.Cache = (*ValkeyCache)(nil)
var _ contextcache.Prober = (*ValkeyCache)(nil)
