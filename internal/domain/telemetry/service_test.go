package telemetry_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryrepo"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestService_AppendDerivesFlowFlags(t *testing.T) {
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())

	err := svc.Append(context.Background(), telemetry.Record{
		Source: "inverter-1", Timestamp: time.Now(), BatteryPower: 50, GridPower: -10,
	})
	require.NoError(t, err)

	rec, ok, err := svc.Latest(context.Background(), "inverter-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rec.Charging)
	require.True(t, rec.Importing)
	require.False(t, rec.Exporting)
}

func TestService_StatsFlagsLowConfidenceBelowMinimum(t *testing.T) {
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 100, testLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Append(context.Background(), telemetry.Record{
			Source: "inverter-1", Timestamp: time.Now().Add(-time.Duration(i) * time.Minute), BatterySOC: 80,
		}))
	}

	stats, err := svc.Stats(context.Background(), "inverter-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Count)
	require.True(t, stats.LowConfidence)
}

func TestService_StatsOnEmptyWindowIsWellFormed(t *testing.T) {
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 100, testLogger())

	stats, err := svc.Stats(context.Background(), "inverter-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Count)
	require.True(t, stats.LowConfidence)
	require.Equal(t, 0.0, stats.SOC.Avg)
}

func TestService_AppendIsIdempotentOnSourceAndTimestamp(t *testing.T) {
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())
	ts := time.Now()

	require.NoError(t, svc.Append(context.Background(), telemetry.Record{Source: "inverter-1", Timestamp: ts, BatterySOC: 50}))
	require.NoError(t, svc.Append(context.Background(), telemetry.Record{Source: "inverter-1", Timestamp: ts, BatterySOC: 99}))

	stats, err := svc.Stats(context.Background(), "inverter-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Count)
	require.Equal(t, 50.0, stats.SOC.Avg)
}

func TestService_SeriesOrdersOldestToNewest(t *testing.T) {
	store := telemetryrepo.NewMemoryStore()
	svc := telemetry.NewService(store, 0, testLogger())
	base := time.Now().Add(-10 * time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Append(context.Background(), telemetry.Record{
			Source: "inverter-1", Timestamp: base.Add(time.Duration(i) * time.Minute), BatterySOC: float64(i),
		}))
	}

	series, err := svc.Series(context.Background(), "inverter-1", time.Hour, 0)
	require.NoError(t, err)
	require.Len(t, series, 3)
	require.True(t, series[0].Timestamp.Before(series[1].Timestamp))
	require.True(t, series[1].Timestamp.Before(series[2].Timestamp))
}

func TestClampHours(t *testing.T) {
	require.Equal(t, 1, telemetry.ClampHours(0))
	require.Equal(t, 1, telemetry.ClampHours(-5))
	require.Equal(t, 168, telemetry.ClampHours(9000))
	require.Equal(t, 24, telemetry.ClampHours(24))
}
