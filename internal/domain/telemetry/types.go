// Package telemetry stores and aggregates append-only energy
// telemetry: battery, solar, load, and grid power samples.
package telemetry

import "time"

// Record is one append-only energy telemetry sample.
type Record struct {
	Source       string
	Timestamp    time.Time
	BatterySOC   float64 // percent, [0,100]
	BatteryPower float64 // watts, + charging, - discharging
	PVPower      float64 // watts, always >= 0
	LoadPower    float64 // watts, always >= 0
	GridPower    float64 // watts, + export, - import
	Charging     bool
	Exporting    bool
	Importing    bool
}

// DeriveFlowFlags sets Charging/Exporting/Importing from the signed
// power readings, so callers constructing a Record from raw poller
// samples don't have to duplicate the sign convention.
func (r *Record) DeriveFlowFlags() {
	r.Charging = r.BatteryPower > 0
	r.Exporting = r.GridPower > 0
	r.Importing = r.GridPower < 0
}

// MetricStats aggregates one numeric field over a window.
type MetricStats struct {
	Avg float64
	Min float64
	Max float64
}

// Stats summarizes all telemetry fields over a half-open window
// [now-duration, now). LowConfidence is set when Count falls below the
// configured minimum-for-analytics threshold; the aggregates are still
// populated (possibly zeroed when Count is 0) so callers get a
// well-formed block either way.
type Stats struct {
	Count         int
	LowConfidence bool
	SOC           MetricStats
	BatteryPower  MetricStats
	PVPower       MetricStats
	LoadPower     MetricStats
	GridPower     MetricStats
}
