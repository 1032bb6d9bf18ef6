package agents

import (
	"time"

	"github.com/wildfireranch/commandcenter/pkg/metrics"
)

// Role names recorded as agent_role in Output and, downstream, in
// persisted conversation messages (C4) and telemetry.
const (
	RoleManager             = "Manager"
	RoleSolarController     = "Solar Controller"
	RoleEnergyOrchestrator  = "Energy Orchestrator"
	RoleResearch            = "Research Agent"
	RoleDocumentationSearch = "Documentation Search"
)

// Output is the structured result every agent produces, reasoner or
// not: a textual answer plus the metadata the Manager/Router (C10)
// persists and returns to the caller.
type Output struct {
	Answer    string
	AgentRole string
	Duration  time.Duration
	// Capped marks a reasoner answer returned because its iteration cap
	// was hit before the model stopped requesting tool calls — a
	// best-effort partial answer, not a failure.
	Capped bool
	// Usage sums token counts across every model call the reasoner made
	// to reach Answer, one call per tool-call turn.
	Usage metrics.TokenUsage
}
