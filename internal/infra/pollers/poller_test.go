package pollers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	"github.com/wildfireranch/commandcenter/internal/infra/pollers"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryrepo"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeFetcher struct {
	calls   atomic.Int64
	failing atomic.Bool
}

func (f *fakeFetcher) Fetch(ctx context.Context) (telemetry.Record, error) {
	f.calls.Add(1)
	if f.failing.Load() {
		return telemetry.Record{}, errors.New("upstream unreachable")
	}
	return telemetry.Record{Source: "inverter", Timestamp: time.Now(), PVPower: 400}, nil
}

func TestPoller_SuccessfulTickAppendsRecord(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())
	p := pollers.NewPoller("inverter", fetcher, svc, nil, pollers.Config{Interval: 10 * time.Millisecond}, testLogger())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		_, ok, err := svc.Latest(context.Background(), "inverter")
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_HealthyWhenUnderFailureThreshold(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())
	p := pollers.NewPoller("inverter", fetcher, svc, nil, pollers.Config{Interval: time.Hour}, testLogger())

	require.NoError(t, p.Check(context.Background()))
	require.Equal(t, "poller:inverter", p.Name())
}

func TestPoller_RetriesOnFailureThenDefersAfterThreshold(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.failing.Store(true)
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())
	p := pollers.NewPoller("inverter", fetcher, svc, nil, pollers.Config{Interval: time.Hour, FailureThreshold: 2}, testLogger())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return p.Check(context.Background()) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestHourlyLimiter_BlocksOverQuota(t *testing.T) {
	limiter := pollers.NewHourlyLimiter(2)
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())
}

func TestHourlyLimiter_ApproachingLimitAt80Percent(t *testing.T) {
	limiter := pollers.NewHourlyLimiter(5)
	for i := 0; i < 4; i++ {
		limiter.Allow()
	}
	require.True(t, limiter.ApproachingLimit())
}

func TestHourlyLimiter_DisabledAlwaysAllows(t *testing.T) {
	limiter := pollers.NewHourlyLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow())
	}
	require.False(t, limiter.ApproachingLimit())
}
