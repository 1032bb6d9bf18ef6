package contextcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultFallbackSize  = 256
	defaultProbeInterval = 30 * time.Second
	probeTimeout         = 5 * time.Second
)

// Service is the entry point the Context Manager (C7) talks to. It wraps
// a Cache backend with the spec's degrade/recover policy: any transport
// error from the backend disables it for subsequent requests, falling
// back to an in-process LRU and, failing that, a miss, until a
// periodic probe against the backend succeeds again.
type Service struct {
	backend  Cache
	prober   Prober
	fallback *lru.Cache[string, Bundle]
	disabled atomic.Bool
	log      *slog.Logger
	stop     chan struct{}
}

// NewService constructs a Service around backend. fallbackSize <= 0
// uses a built-in default. probeInterval <= 0 uses a built-in default;
// the probe loop only runs at all when backend also implements Prober.
func NewService(backend Cache, fallbackSize int, probeInterval time.Duration, log *slog.Logger) *Service {
	if fallbackSize <= 0 {
		fallbackSize = defaultFallbackSize
	}
	if probeInterval <= 0 {
		probeInterval = defaultProbeInterval
	}
	fallback, _ := lru.New[string, Bundle](fallbackSize)
	svc := &Service{
		backend:  backend,
		fallback: fallback,
		log:      log,
		stop:     make(chan struct{}),
	}
	if prober, ok := backend.(Prober); ok {
		svc.prober = prober
		go svc.probeLoop(probeInterval)
	}
	return svc
}

// Close stops the background probe loop. Safe to call once.
func (s *Service) Close() {
	close(s.stop)
}

// Get returns the cached bundle for key. ok is false on a miss; the
// backend is never allowed to surface an error to the caller, it only
// ever degrades to the fallback and then to a miss.
func (s *Service) Get(ctx context.Context, key string) (Bundle, bool) {
	if !s.disabled.Load() {
		bundle, ok, err := s.backend.Get(ctx, key)
		if err != nil {
			s.disable(err)
		} else if ok {
			return bundle, true
		} else {
			return Bundle{}, false
		}
	}
	if bundle, ok := s.fallback.Get(key); ok {
		return bundle, true
	}
	return Bundle{}, false
}

// Put writes bundle into the in-process fallback unconditionally and,
// when the backend is enabled, writes through to it as well. A
// transport error here disables the backend rather than propagating.
func (s *Service) Put(ctx context.Context, key string, bundle Bundle, ttl time.Duration) {
	s.fallback.Add(key, bundle)
	if s.disabled.Load() {
		return
	}
	if err := s.backend.Put(ctx, key, bundle, ttl); err != nil {
		s.disable(err)
	}
}

// Enabled reports whether the backend cache is currently in use,
// exposed for health reporting (C11 /health/monitoring/status).
func (s *Service) Enabled() bool {
	return !s.disabled.Load()
}

func (s *Service) disable(err error) {
	if s.disabled.CompareAndSwap(false, true) {
		s.log.Warn("context cache backend disabled after transport error", "error", err)
	}
}

func (s *Service) probeLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.disabled.Load() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			err := s.prober.Ping(ctx)
			cancel()
			if err == nil && s.disabled.CompareAndSwap(true, false) {
				s.log.Info("context cache backend recovered, re-enabling")
			}
		}
	}
}
