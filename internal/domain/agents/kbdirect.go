package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/agenttools"
)

// KBDirect is the Manager's fast-path short-circuit (§4.9 step 2): not
// a reasoner, it performs a single kb_search call and formats the hits
// with citations, rather than running a model loop.
type KBDirect struct {
	kbSearch agenttools.Tool
}

// NewKBDirect wraps the kb_search tool for fast-path documentation
// lookups.
func NewKBDirect(kbSearch agenttools.Tool) *KBDirect {
	return &KBDirect{kbSearch: kbSearch}
}

// Answer runs kb_search for query and renders the citations as the
// fast-path response text, recording agent_role = "Documentation Search".
func (d *KBDirect) Answer(ctx context.Context, query string) Output {
	start := time.Now()
	args, _ := json.Marshal(map[string]any{"query": query})
	result := d.kbSearch.Invoke(ctx, args)
	if !result.OK {
		return Output{
			Answer:    "I couldn't search the knowledge base: " + result.Reason,
			AgentRole: RoleDocumentationSearch,
			Duration:  time.Since(start),
		}
	}

	citations, _ := result.Value.([]agenttools.Citation)
	return Output{
		Answer:    formatCitations(citations),
		AgentRole: RoleDocumentationSearch,
		Duration:  time.Since(start),
	}
}

func formatCitations(citations []agenttools.Citation) string {
	if len(citations) == 0 {
		return "I didn't find anything in the knowledge base for that."
	}
	var b strings.Builder
	for i, c := range citations {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, c.Title, c.Text)
		if c.FolderPath != "" {
			fmt.Fprintf(&b, "   (%s)\n", c.FolderPath)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
