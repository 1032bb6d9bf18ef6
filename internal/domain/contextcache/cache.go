package contextcache

import (
	"context"
	"time"
)

// Cache gets/puts ContextBundles by key. Correctness of the calling
// code must never depend on cache availability: Get returning a miss
// is always a valid, safe outcome.
type Cache interface {
	Get(ctx context.Context, key string) (Bundle, bool, error)
	Put(ctx context.Context, key string, bundle Bundle, ttl time.Duration) error
}

// Prober is implemented by Cache backends that can verify connectivity
// out-of-band. Service uses it to recover from a disabled state once a
// periodic probe succeeds again.
type Prober interface {
	Ping(ctx context.Context) error
}
