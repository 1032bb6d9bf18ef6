// Package classifier assigns each incoming query a QueryType using a
// deterministic, overridable rule-weight keyword match — no model call,
// so classification never adds latency or cost to a request.
package classifier

// QueryType is the closed routing/budget category a query is assigned
// to.
type QueryType string

const (
	System   QueryType = "SYSTEM"
	Research QueryType = "RESEARCH"
	Planning QueryType = "PLANNING"
	General  QueryType = "GENERAL"
)

// String satisfies fmt.Stringer.
func (q QueryType) String() string { return string(q) }
