package agenttools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// CurrentStatus is the rendering of telemetry.Record returned by
// current_status/detailed_status — a stable shape reasoners can quote
// numbers from directly.
type CurrentStatus struct {
	SOC          float64   `json:"soc"`
	PVPower      float64   `json:"pv_power_w"`
	LoadPower    float64   `json:"load_power_w"`
	BatteryPower float64   `json:"battery_power_w"`
	GridPower    float64   `json:"grid_power_w"`
	Timestamp    time.Time `json:"timestamp"`
}

// DetailedStatus extends CurrentStatus with the derived flow flags the
// spec's "current + derived flow flags" notes call for.
type DetailedStatus struct {
	CurrentStatus
	Charging  bool `json:"charging"`
	Exporting bool `json:"exporting"`
	Importing bool `json:"importing"`
}

func toCurrentStatus(r telemetry.Record) CurrentStatus {
	return CurrentStatus{
		SOC:          r.BatterySOC,
		PVPower:      r.PVPower,
		LoadPower:    r.LoadPower,
		BatteryPower: r.BatteryPower,
		GridPower:    r.GridPower,
		Timestamp:    r.Timestamp,
	}
}

// historicalStatsArgs is the historical_stats tool's JSON argument
// shape; current_status takes no arguments.
type historicalStatsArgs struct {
	Hours int `json:"hours"`
}

type timeSeriesArgs struct {
	Hours int `json:"hours"`
	Limit int `json:"limit"`
}

// NewCurrentStatusTool returns the current_status() tool: SOC, PV/load/
// battery/grid watts, and timestamp, read from C3.latest.
func NewCurrentStatusTool(svc *telemetry.Service, source string) Tool {
	return Tool{
		Name:        "current_status",
		Description: "Returns the most recent SOC, PV, load, battery, and grid power readings.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, _ json.RawMessage) Result {
			record, ok, err := svc.Latest(ctx, source)
			if err != nil {
				return Fail("failed to read latest telemetry: " + err.Error())
			}
			if !ok {
				return Fail("no telemetry recorded yet")
			}
			return Ok(toCurrentStatus(record))
		},
	}
}

// NewDetailedStatusTool returns the detailed_status() tool: current
// status plus derived charge/export/import flow flags.
func NewDetailedStatusTool(svc *telemetry.Service, source string) Tool {
	return Tool{
		Name:        "detailed_status",
		Description: "Returns current status plus derived charging/exporting/importing flow flags.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, _ json.RawMessage) Result {
			record, ok, err := svc.Latest(ctx, source)
			if err != nil {
				return Fail("failed to read latest telemetry: " + err.Error())
			}
			if !ok {
				return Fail("no telemetry recorded yet")
			}
			return Ok(DetailedStatus{
				CurrentStatus: toCurrentStatus(record),
				Charging:      record.Charging,
				Exporting:     record.Exporting,
				Importing:     record.Importing,
			})
		},
	}
}

// NewHistoricalStatsTool returns the historical_stats(hours) tool,
// clamping hours to [1,168] per the spec.
func NewHistoricalStatsTool(svc *telemetry.Service, source string) Tool {
	return Tool{
		Name:        "historical_stats",
		Description: "Returns aggregate SOC/PV/load/battery/grid stats over the last N hours (clamped to [1,168]).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"hours": map[string]any{"type": "integer", "description": "lookback window in hours"},
			},
		},
		Invoke: func(ctx context.Context, raw json.RawMessage) Result {
			var args historicalStatsArgs
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return Fail("invalid arguments: " + err.Error())
				}
			}
			hours := telemetry.ClampHours(args.Hours)
			stats, err := svc.Stats(ctx, source, time.Duration(hours)*time.Hour)
			if err != nil {
				return Fail("failed to compute stats: " + err.Error())
			}
			return Ok(stats)
		},
	}
}

// NewTimeSeriesTool returns the time_series(hours, limit) tool,
// returning monotonically ordered records.
func NewTimeSeriesTool(svc *telemetry.Service, source string) Tool {
	return Tool{
		Name:        "time_series",
		Description: "Returns ordered telemetry records over the last N hours, capped at limit entries.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"hours": map[string]any{"type": "integer", "description": "lookback window in hours"},
				"limit": map[string]any{"type": "integer", "description": "max records to return"},
			},
		},
		Invoke: func(ctx context.Context, raw json.RawMessage) Result {
			var args timeSeriesArgs
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return Fail("invalid arguments: " + err.Error())
				}
			}
			hours := telemetry.ClampHours(args.Hours)
			records, err := svc.Series(ctx, source, time.Duration(hours)*time.Hour, args.Limit)
			if err != nil {
				return Fail("failed to load time series: " + err.Error())
			}
			return Ok(records)
		},
	}
}
