package agenttools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// Policy holds the battery/miner operating thresholds the spec calls
// "policy thresholds from tier-1 context" — in this deployment they're
// a static config value rather than parsed out of markdown docs at
// request time, since the tier-1 context files are prose, not a
// structured policy format.
type Policy struct {
	// MinSOCForMiners is the minimum battery SOC percent required before
	// coordinate_miners recommends running miner load.
	MinSOCForMiners float64
	// TargetSOC is the SOC percent optimize_battery tries to protect/reach.
	TargetSOC float64
}

// DefaultPolicy returns the ranch's standing thresholds.
func DefaultPolicy() Policy {
	return Policy{MinSOCForMiners: 40, TargetSOC: 80}
}

// MinerRecommendation is coordinate_miners's result shape.
type MinerRecommendation struct {
	On            bool    `json:"on"`
	Justification string  `json:"justification"`
	SOC           float64 `json:"soc"`
	SurplusWatts  float64 `json:"surplus_watts"`
}

// OptimizationRecommendation is optimize_battery's result shape.
type OptimizationRecommendation struct {
	Recommendation string  `json:"recommendation"`
	SOC            float64 `json:"soc"`
}

// EnergyPlan is create_energy_plan's result shape: an hour-bucketed
// textual plan.
type EnergyPlan struct {
	PlanText string `json:"plan_text"`
}

// NewOptimizeBatteryTool returns the optimize_battery() tool: a
// recommendation text derived from current status and policy
// thresholds.
func NewOptimizeBatteryTool(svc *telemetry.Service, source string, policy Policy) Tool {
	return Tool{
		Name:        "optimize_battery",
		Description: "Recommends a battery charge/discharge posture from current status and policy thresholds.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, _ json.RawMessage) Result {
			record, ok, err := svc.Latest(ctx, source)
			if err != nil {
				return Fail("failed to read latest telemetry: " + err.Error())
			}
			if !ok {
				return Fail("no telemetry recorded yet")
			}
			return Ok(OptimizationRecommendation{
				Recommendation: optimizeBatteryText(record, policy),
				SOC:            record.BatterySOC,
			})
		},
	}
}

func optimizeBatteryText(r telemetry.Record, policy Policy) string {
	switch {
	case r.BatterySOC < policy.MinSOCForMiners:
		return fmt.Sprintf("SOC %.0f%% is below the %.0f%% floor: prioritize charging, avoid adding load.", r.BatterySOC, policy.MinSOCForMiners)
	case r.BatterySOC < policy.TargetSOC:
		return fmt.Sprintf("SOC %.0f%% is below the %.0f%% target: continue charging when solar allows, defer non-essential load.", r.BatterySOC, policy.TargetSOC)
	case r.PVPower > r.LoadPower:
		return fmt.Sprintf("SOC %.0f%% is at or above target with %.0fW of solar surplus: safe to run flexible load.", r.BatterySOC, r.PVPower-r.LoadPower)
	default:
		return fmt.Sprintf("SOC %.0f%% is at or above target: hold current posture.", r.BatterySOC)
	}
}

// NewCoordinateMinersTool returns the coordinate_miners() tool: an
// on/off recommendation justified by SOC and PV surplus against policy
// thresholds.
func NewCoordinateMinersTool(svc *telemetry.Service, source string, policy Policy) Tool {
	return Tool{
		Name:        "coordinate_miners",
		Description: "Recommends whether miner load should run, based on SOC and solar surplus against policy thresholds.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, _ json.RawMessage) Result {
			record, ok, err := svc.Latest(ctx, source)
			if err != nil {
				return Fail("failed to read latest telemetry: " + err.Error())
			}
			if !ok {
				return Fail("no telemetry recorded yet")
			}
			surplus := record.PVPower - record.LoadPower
			on := record.BatterySOC >= policy.MinSOCForMiners && surplus > 0
			var justification string
			switch {
			case record.BatterySOC < policy.MinSOCForMiners:
				justification = fmt.Sprintf("SOC %.0f%% is below the %.0f%% floor required to run miners.", record.BatterySOC, policy.MinSOCForMiners)
			case surplus <= 0:
				justification = fmt.Sprintf("no solar surplus available (PV %.0fW, load %.0fW).", record.PVPower, record.LoadPower)
			default:
				justification = fmt.Sprintf("SOC %.0f%% clears the floor and %.0fW of solar surplus is available.", record.BatterySOC, surplus)
			}
			return Ok(MinerRecommendation{
				On:            on,
				Justification: justification,
				SOC:           record.BatterySOC,
				SurplusWatts:  surplus,
			})
		},
	}
}

// NewCreateEnergyPlanTool returns the create_energy_plan() tool: an
// hour-bucketed textual plan derived from recent stats, current status,
// and policy thresholds.
func NewCreateEnergyPlanTool(svc *telemetry.Service, source string, policy Policy) Tool {
	return Tool{
		Name:        "create_energy_plan",
		Description: "Produces an hour-bucketed energy plan from recent telemetry trends and policy thresholds.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, _ json.RawMessage) Result {
			record, ok, err := svc.Latest(ctx, source)
			if err != nil {
				return Fail("failed to read latest telemetry: " + err.Error())
			}
			if !ok {
				return Fail("no telemetry recorded yet")
			}
			records, err := svc.Series(ctx, source, 24*time.Hour, 0)
			if err != nil {
				return Fail("failed to load telemetry series: " + err.Error())
			}
			return Ok(EnergyPlan{PlanText: buildEnergyPlan(record, records, policy)})
		},
	}
}

func buildEnergyPlan(current telemetry.Record, records []telemetry.Record, policy Policy) string {
	type bucket struct {
		socSum, pvSum float64
		count         int
	}
	buckets := make(map[int]*bucket)
	for _, r := range records {
		h := r.Timestamp.Hour()
		b, ok := buckets[h]
		if !ok {
			b = &bucket{}
			buckets[h] = b
		}
		b.socSum += r.BatterySOC
		b.pvSum += r.PVPower
		b.count++
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Current SOC %.0f%% (floor %.0f%%, target %.0f%%).", current.BatterySOC, policy.MinSOCForMiners, policy.TargetSOC))
	for h := 0; h < 24; h++ {
		b, ok := buckets[h]
		if !ok || b.count == 0 {
			continue
		}
		avgSOC := b.socSum / float64(b.count)
		avgPV := b.pvSum / float64(b.count)
		posture := "hold"
		switch {
		case avgSOC < policy.MinSOCForMiners:
			posture = "charge only"
		case avgPV > 0 && avgSOC >= policy.TargetSOC:
			posture = "flexible load OK"
		}
		lines = append(lines, fmt.Sprintf("%02d:00 — avg SOC %.0f%%, avg PV %.0fW: %s", h, avgSOC, avgPV, posture))
	}
	if len(lines) == 1 {
		lines = append(lines, "insufficient historical data to bucket by hour.")
	}
	return strings.Join(lines, "\n")
}
