// Package health aggregates the liveness of Command Center's backing
// systems — database, telemetry pollers, and context cache — into a
// single status snapshot for /health/monitoring/status.
package health

import "time"

// ComponentStatus reports one subsystem's health.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Status is the aggregated health snapshot. Healthy is true only when
// every component reports healthy.
type Status struct {
	Healthy    bool              `json:"healthy"`
	CheckedAt  time.Time         `json:"checked_at"`
	Components []ComponentStatus `json:"components"`
}
