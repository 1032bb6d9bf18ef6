package agenttools_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	"github.com/wildfireranch/commandcenter/internal/infra/kbrepo"
	"github.com/wildfireranch/commandcenter/internal/infra/telemetryrepo"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const testSource = "site"

func seedTelemetry(t *testing.T, svc *telemetry.Service, soc, pv, load, battery, grid float64) {
	t.Helper()
	require.NoError(t, svc.Append(context.Background(), telemetry.Record{
		Source: testSource, Timestamp: time.Now(), BatterySOC: soc,
		PVPower: pv, LoadPower: load, BatteryPower: battery, GridPower: grid,
	}))
}

func TestCurrentStatusTool_ReturnsLatestReading(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 62, 3000, 1200, 500, -400)

	tool := agenttools.NewCurrentStatusTool(svc, testSource)
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	status, ok := result.Value.(agenttools.CurrentStatus)
	require.True(t, ok)
	require.Equal(t, 62.0, status.SOC)
}

func TestCurrentStatusTool_NoDataFails(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	tool := agenttools.NewCurrentStatusTool(svc, testSource)
	result := tool.Invoke(context.Background(), nil)
	require.False(t, result.OK)
	require.NotEmpty(t, result.Reason)
}

func TestDetailedStatusTool_IncludesFlowFlags(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 62, 3000, 1200, 500, -400)

	tool := agenttools.NewDetailedStatusTool(svc, testSource)
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	status := result.Value.(agenttools.DetailedStatus)
	require.True(t, status.Charging)
	require.True(t, status.Importing)
}

func TestHistoricalStatsTool_ClampsHours(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 62, 3000, 1200, 500, -400)

	tool := agenttools.NewHistoricalStatsTool(svc, testSource)
	args, _ := json.Marshal(map[string]int{"hours": 9000})
	result := tool.Invoke(context.Background(), args)
	require.True(t, result.OK)
}

func TestKBSearchTool_ReturnsCitations(t *testing.T) {
	store := kbrepo.NewMemoryStore()
	kbSvc := kb.NewService(store, 3, testLogger())
	id, err := kbSvc.UpsertDocument(context.Background(), kb.UpsertDocumentInput{ExternalID: "doc", Title: "Battery Specs"})
	require.NoError(t, err)
	require.NoError(t, kbSvc.ReplaceChunks(context.Background(), id, []kb.ChunkInput{
		{Index: 0, Text: "min SOC is 40%", Embedding: []float32{1, 0, 0}},
	}))

	tool := agenttools.NewKBSearchTool(kbSvc, fakeEmbedder{vec: []float32{1, 0, 0}})
	args, _ := json.Marshal(map[string]any{"query": "what's the minimum SOC"})
	result := tool.Invoke(context.Background(), args)
	require.True(t, result.OK)
	citations := result.Value.([]agenttools.Citation)
	require.Len(t, citations, 1)
	require.Equal(t, "Battery Specs", citations[0].Title)
}

func TestKBSearchTool_EmptyQueryFails(t *testing.T) {
	kbSvc := kb.NewService(kbrepo.NewMemoryStore(), 3, testLogger())
	tool := agenttools.NewKBSearchTool(kbSvc, fakeEmbedder{})
	args, _ := json.Marshal(map[string]any{"query": ""})
	result := tool.Invoke(context.Background(), args)
	require.False(t, result.OK)
}

func TestOptimizeBatteryTool_RecommendsChargingBelowFloor(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 20, 100, 2000, -1900, -1900)

	tool := agenttools.NewOptimizeBatteryTool(svc, testSource, agenttools.DefaultPolicy())
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	rec := result.Value.(agenttools.OptimizationRecommendation)
	require.Contains(t, rec.Recommendation, "below the 40%")
}

func TestCoordinateMinersTool_DeniesBelowFloor(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 20, 5000, 1000, 4000, 4000)

	tool := agenttools.NewCoordinateMinersTool(svc, testSource, agenttools.DefaultPolicy())
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	rec := result.Value.(agenttools.MinerRecommendation)
	require.False(t, rec.On)
	require.Contains(t, rec.Justification, "floor")
}

func TestCoordinateMinersTool_AllowsWithSurplus(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 80, 5000, 1000, 4000, 4000)

	tool := agenttools.NewCoordinateMinersTool(svc, testSource, agenttools.DefaultPolicy())
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	rec := result.Value.(agenttools.MinerRecommendation)
	require.True(t, rec.On)
}

func TestCreateEnergyPlanTool_ProducesPlanText(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	seedTelemetry(t, svc, 55, 2000, 1500, 500, -500)

	tool := agenttools.NewCreateEnergyPlanTool(svc, testSource, agenttools.DefaultPolicy())
	result := tool.Invoke(context.Background(), nil)
	require.True(t, result.OK)
	plan := result.Value.(agenttools.EnergyPlan)
	require.Contains(t, plan.PlanText, "Current SOC")
}

func TestRegistry_SubsetScopesToolsByRole(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	kbSvc := kb.NewService(kbrepo.NewMemoryStore(), 3, testLogger())
	reg := agenttools.NewRegistry(svc, testSource, kbSvc, fakeEmbedder{}, agenttools.DefaultPolicy(), nil)

	solar := reg.Subset(agenttools.SolarControllerTools...)
	require.Contains(t, solar, agenttools.CurrentStatus)
	require.NotContains(t, solar, agenttools.OptimizeBattery)

	orchestrator := reg.Subset(agenttools.EnergyOrchestratorTools...)
	require.Contains(t, orchestrator, agenttools.OptimizeBattery)
}

func TestRegistry_WebFetchOmittedWhenFetcherNil(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	kbSvc := kb.NewService(kbrepo.NewMemoryStore(), 3, testLogger())
	reg := agenttools.NewRegistry(svc, testSource, kbSvc, fakeEmbedder{}, agenttools.DefaultPolicy(), nil)
	require.NotContains(t, reg, agenttools.WebFetch)
}

type fakeWebFetcher struct{}

func (fakeWebFetcher) Fetch(ctx context.Context, url string) (agenttools.WebPage, error) {
	return agenttools.WebPage{URL: url, Title: "t", Content: "c"}, nil
}

func TestRegistry_WebFetchWiredWhenFetcherProvided(t *testing.T) {
	svc := telemetry.NewService(telemetryrepo.NewMemoryStore(), 0, testLogger())
	kbSvc := kb.NewService(kbrepo.NewMemoryStore(), 3, testLogger())
	reg := agenttools.NewRegistry(svc, testSource, kbSvc, fakeEmbedder{}, agenttools.DefaultPolicy(), fakeWebFetcher{})
	require.Contains(t, reg, agenttools.WebFetch)
}

func TestRegistry_CallUnknownToolFails(t *testing.T) {
	reg := agenttools.Registry{}
	result := reg.Call(context.Background(), "nonexistent", nil)
	require.False(t, result.OK)
}

type fakeEmbedder struct {
	vec []float32
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, nil
}
