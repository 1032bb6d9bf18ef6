// Package pollers runs the background telemetry ingestion loops: one
// goroutine per upstream source (inverter, battery monitor), each
// fetching on a fixed interval and appending to the Time-Series Store.
package pollers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// Fetcher retrieves one telemetry sample from an upstream provider.
// Implementations set only the fields their source owns; DeriveFlowFlags
// runs after Append regardless.
type Fetcher interface {
	Fetch(ctx context.Context) (telemetry.Record, error)
}

// Poller runs one Fetcher on a fixed interval, appending successful
// reads to telemetry.Service and tracking a bounded consecutive-failure
// counter so a flapping upstream degrades health reporting rather than
// crashing the loop.
type Poller struct {
	source    string
	fetch     Fetcher
	telemetry *telemetry.Service
	limiter   *HourlyLimiter

	interval         time.Duration
	baseBackoff      time.Duration
	maxBackoff       time.Duration
	failureThreshold int

	log *slog.Logger

	consecutiveFailures atomic.Int64
	stop                chan struct{}
	stopOnce            sync.Once
}

// Config bundles the cadence/backoff knobs a Poller needs, mirroring
// config.PollerConfig's field set.
type Config struct {
	Interval         time.Duration
	MaxBackoff       time.Duration
	FailureThreshold int
}

// NewPoller constructs a Poller. interval<=0 uses the spec's 180s
// default; failureThreshold<=0 uses 5.
func NewPoller(source string, fetch Fetcher, telemetrySvc *telemetry.Service, limiter *HourlyLimiter, cfg Config, log *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 180 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	return &Poller{
		source:           source,
		fetch:            fetch,
		telemetry:        telemetrySvc,
		limiter:          limiter,
		interval:         cfg.Interval,
		baseBackoff:      500 * time.Millisecond,
		maxBackoff:       cfg.MaxBackoff,
		failureThreshold: cfg.FailureThreshold,
		log:              log.With("component", "pollers.poller", "source", source),
		stop:             make(chan struct{}),
	}
}

// Name satisfies health.Checker.
func (p *Poller) Name() string { return "poller:" + p.source }

// Check satisfies health.Checker: unhealthy once consecutive failures
// reach the configured threshold.
func (p *Poller) Check(ctx context.Context) error {
	if p.consecutiveFailures.Load() >= int64(p.failureThreshold) {
		return errTooManyFailures(p.source, int(p.consecutiveFailures.Load()))
	}
	return nil
}

// Start launches the polling loop in a new goroutine. Stop ends it.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.tick(ctx)
		for {
			select {
			case <-ticker.C:
				p.tick(ctx)
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop ends the polling loop.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Poller) tick(ctx context.Context) {
	if p.limiter != nil {
		if p.limiter.ApproachingLimit() {
			p.log.Warn("approaching hourly call quota", "source", p.source)
		}
		if !p.limiter.Allow() {
			p.log.Warn("hourly call quota exceeded, skipping poll", "source", p.source)
			return
		}
	}

	record, err := p.fetch.Fetch(ctx)
	if err != nil {
		p.handleFailure(ctx, err)
		return
	}
	p.consecutiveFailures.Store(0)

	if err := p.telemetry.Append(ctx, record); err != nil {
		p.log.Error("failed to append telemetry", "error", err)
	}
}

// handleFailure retries the fetch inline with exponential backoff
// (BaseBackoff * 2^(attempt-1), capped at maxBackoff), the arithmetic
// the teacher's retry_middleware.go uses for transient HTTP failures,
// generalized here from a single request to a background poll.
func (p *Poller) handleFailure(ctx context.Context, firstErr error) {
	p.consecutiveFailures.Add(1)
	p.log.Warn("poll failed, retrying with backoff", "error", firstErr)
	attempt := 1
	for attempt < p.failureThreshold {
		delay := p.baseBackoff * time.Duration(1<<(attempt-1))
		if delay > p.maxBackoff {
			delay = p.maxBackoff
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		record, err := p.fetch.Fetch(ctx)
		if err == nil {
			p.consecutiveFailures.Store(0)
			if appendErr := p.telemetry.Append(ctx, record); appendErr != nil {
				p.log.Error("failed to append telemetry", "error", appendErr)
			}
			return
		}
		p.log.Warn("retry failed", "attempt", attempt+1, "error", err)
		p.consecutiveFailures.Add(1)
		attempt++
	}
	p.log.Error("poll exhausted retries, deferring to next interval", "consecutive_failures", p.consecutiveFailures.Load())
}
