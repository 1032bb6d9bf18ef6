// Package router implements the Manager/Router (C10): the single entry
// point that resolves a session, picks a fast-path or a specialist
// agent, runs it, persists the turn, and returns a response with
// telemetry.
package router

import (
	"time"

	"github.com/google/uuid"

	"github.com/wildfireranch/commandcenter/pkg/metrics"
)

// Response is the C10 contract's return shape:
// { response, agent_role, duration, tokens, cache_hit, query_type }.
type Response struct {
	SessionID    uuid.UUID
	ResponseText string
	AgentRole    string
	Duration     time.Duration
	Tokens       int
	CacheHit     bool
	QueryType    string
	// Usage is zero for the fast-path branch, which never calls a
	// reasoner. A context-cache hit still runs the reasoner.
	Usage metrics.TokenUsage
}

// fastPathKeywords is the documented, extensible keyword set that
// short-circuits straight to KB-direct, bypassing classification and
// assembly entirely.
var fastPathKeywords = []string{
	"specs", "spec", "threshold", "thresholds", "policy", "policies",
	"how do i", "how to", "manual", "documentation", "procedure",
}
