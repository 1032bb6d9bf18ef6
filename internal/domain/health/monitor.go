package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wildfireranch/commandcenter/pkg/util"
)

const defaultCheckTimeout = 3 * time.Second

// Checker probes one subsystem. Check should return promptly; Monitor
// bounds every call with defaultCheckTimeout regardless.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                   { return c.CheckerName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Monitor polls a fixed set of Checkers on an interval and caches the
// most recent Status, so /health/monitoring/status never blocks on a
// live probe of a degraded dependency.
type Monitor struct {
	checkers []Checker
	interval time.Duration
	log      *slog.Logger

	mu     sync.RWMutex
	latest Status

	stop chan struct{}
}

// NewMonitor constructs a Monitor and runs one check immediately so
// Status is well-formed before the first tick. interval<=0 uses the
// spec's default 300s.
func NewMonitor(checkers []Checker, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	m := &Monitor{
		checkers: checkers,
		interval: interval,
		log:      log.With("component", "health.monitor"),
		stop:     make(chan struct{}),
	}
	m.runOnce(context.Background())
	return m
}

// Start launches the background polling loop. Call once; Stop ends it.
func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.runOnce(context.Background())
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the background polling loop.
func (m *Monitor) Stop() {
	close(m.stop)
}

// Status returns the most recently computed snapshot.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) runOnce(ctx context.Context) {
	components := make([]ComponentStatus, 0, len(m.checkers))
	healthy := true
	for _, checker := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
		err := checker.Check(checkCtx)
		cancel()

		status := ComponentStatus{Name: checker.Name(), Healthy: err == nil}
		if err != nil {
			status.Detail = err.Error()
			healthy = false
			m.log.Warn("health check failed", "component", checker.Name(), "error", err)
		}
		components = append(components, status)
	}

	snapshot := Status{Healthy: healthy, CheckedAt: util.NowUTC(), Components: components}
	m.mu.Lock()
	m.latest = snapshot
	m.mu.Unlock()
}
