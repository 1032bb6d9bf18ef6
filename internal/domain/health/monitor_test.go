package health_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/health"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestMonitor_AllHealthyChecksReportHealthy(t *testing.T) {
	ok := health.CheckerFunc{CheckerName: "db", Fn: func(ctx context.Context) error { return nil }}
	m := health.NewMonitor([]health.Checker{ok}, time.Hour, testLogger())

	status := m.Status()
	require.True(t, status.Healthy)
	require.Len(t, status.Components, 1)
	require.True(t, status.Components[0].Healthy)
}

func TestMonitor_OneFailingCheckDegradesOverallStatus(t *testing.T) {
	ok := health.CheckerFunc{CheckerName: "db", Fn: func(ctx context.Context) error { return nil }}
	bad := health.CheckerFunc{CheckerName: "cache", Fn: func(ctx context.Context) error { return errors.New("unreachable") }}
	m := health.NewMonitor([]health.Checker{ok, bad}, time.Hour, testLogger())

	status := m.Status()
	require.False(t, status.Healthy)
	require.Len(t, status.Components, 2)

	var cacheStatus health.ComponentStatus
	for _, c := range status.Components {
		if c.Name == "cache" {
			cacheStatus = c
		}
	}
	require.False(t, cacheStatus.Healthy)
	require.Contains(t, cacheStatus.Detail, "unreachable")
}

func TestMonitor_StartPollsOnInterval(t *testing.T) {
	calls := 0
	counter := health.CheckerFunc{CheckerName: "poller", Fn: func(ctx context.Context) error {
		calls++
		return nil
	}}
	m := health.NewMonitor([]health.Checker{counter}, 10*time.Millisecond, testLogger())
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return calls >= 3 }, time.Second, 5*time.Millisecond)
}

func TestMonitor_SlowCheckTimesOut(t *testing.T) {
	slow := health.CheckerFunc{CheckerName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	m := health.NewMonitor([]health.Checker{slow}, time.Hour, testLogger())

	status := m.Status()
	require.False(t, status.Healthy)
	require.Contains(t, status.Components[0].Detail, "deadline exceeded")
}
