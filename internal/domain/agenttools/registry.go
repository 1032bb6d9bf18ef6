package agenttools

import (
	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// Tool name constants, used both to build the registry and to scope
// reasoner roles in the Specialist Agents layer (C9).
const (
	CurrentStatus    = "current_status"
	DetailedStatus   = "detailed_status"
	HistoricalStats  = "historical_stats"
	TimeSeries       = "time_series"
	KBSearch         = "kb_search"
	OptimizeBattery  = "optimize_battery"
	CoordinateMiners = "coordinate_miners"
	CreateEnergyPlan = "create_energy_plan"
	WebFetch         = "web_fetch"
)

// NewRegistry builds the full set of agent tools wired against the
// concrete telemetry/kb services, policy thresholds, and (optionally)
// a web fetcher. webFetcher may be nil, in which case web_fetch is
// omitted from the registry.
func NewRegistry(telemetrySvc *telemetry.Service, source string, kbSvc *kb.Service, embedder Embedder, policy Policy, webFetcher WebFetcher) Registry {
	registry := Registry{
		CurrentStatus:    NewCurrentStatusTool(telemetrySvc, source),
		DetailedStatus:   NewDetailedStatusTool(telemetrySvc, source),
		HistoricalStats:  NewHistoricalStatsTool(telemetrySvc, source),
		TimeSeries:       NewTimeSeriesTool(telemetrySvc, source),
		KBSearch:         NewKBSearchTool(kbSvc, embedder),
		OptimizeBattery:  NewOptimizeBatteryTool(telemetrySvc, source, policy),
		CoordinateMiners: NewCoordinateMinersTool(telemetrySvc, source, policy),
		CreateEnergyPlan: NewCreateEnergyPlanTool(telemetrySvc, source, policy),
	}
	if webFetcher != nil {
		registry[WebFetch] = NewWebFetchTool(webFetcher)
	}
	return registry
}

// SolarControllerTools is the tool subset the Solar Controller role
// permits: real-time state tools plus kb_search.
var SolarControllerTools = []string{CurrentStatus, DetailedStatus, HistoricalStats, TimeSeries, KBSearch}

// EnergyOrchestratorTools is the tool subset the Energy Orchestrator
// role permits: all Solar Controller tools plus the planning tools.
var EnergyOrchestratorTools = append(append([]string{}, SolarControllerTools...), OptimizeBattery, CoordinateMiners, CreateEnergyPlan)

// ResearchTools is the tool subset the Research Agent permits:
// kb_search plus web_fetch for sources outside the synced document
// tree.
var ResearchTools = []string{KBSearch, WebFetch}
