// Package agenttools is the Agent Tools layer (C8): a registry of
// typed, deterministic functions reasoners call to read live system
// state and compute recommendations. Every tool call returns an
// explicit ok/fail Result rather than a Go error crossing into model
// output — a failed tool call is something the reasoner should read
// and react to, not a transport failure.
package agenttools

import (
	"context"
	"encoding/json"
)

// Result is the value every tool call returns to its caller, rendered
// as the `{ok, value}` / `{ok:false, reason}` shape reasoners see.
type Result struct {
	OK     bool   `json:"ok"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Ok wraps a successful tool result.
func Ok(value any) Result { return Result{OK: true, Value: value} }

// Fail wraps a tool result that failed for a human-readable reason —
// never a Go error, so it serializes cleanly into a reasoner's tool
// response message.
func Fail(reason string) Result { return Result{OK: false, Reason: reason} }

// Tool is one callable function exposed to reasoners. Parameters
// mirrors the teacher's chatgpt.ToolFunction.Parameters shape (a raw
// JSON-schema object, not a generated/validated schema type) so the
// same value can be dropped straight into a chatgpt.Tool definition.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Invoke      func(ctx context.Context, args json.RawMessage) Result
}

// Registry is the set of tools available to a reasoner, keyed by name.
type Registry map[string]Tool

// Subset returns a new Registry containing only the named tools,
// implementing the role-scoped tool permissions from the Specialist
// Agents contract (C9): a reasoner only ever sees the tools its role
// permits.
func (r Registry) Subset(names ...string) Registry {
	out := make(Registry, len(names))
	for _, name := range names {
		if t, ok := r[name]; ok {
			out[name] = t
		}
	}
	return out
}

// Names returns the tool names in the registry.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	return out
}

// Call invokes the named tool, returning a failed Result (never a Go
// error) when the tool doesn't exist — keeping "unknown tool" in the
// same observable channel a reasoner already handles.
func (r Registry) Call(ctx context.Context, name string, args json.RawMessage) Result {
	tool, ok := r[name]
	if !ok {
		return Fail("unknown tool: " + name)
	}
	return tool.Invoke(ctx, args)
}
