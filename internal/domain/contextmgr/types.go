// Package contextmgr is the Context Manager (C7): it classifies a
// query, assembles a budgeted ContextBundle from the system, KB,
// conversation, and user sources the category calls for, and caches
// the result — generalizing the teacher's uploadask.Service.Ask
// composition (similarity search + recent history + memory search
// folded into one bounded prompt) into the spec's explicit
// category-driven budget and truncation-priority rules.
package contextmgr

import (
	"context"

	"github.com/wildfireranch/commandcenter/internal/domain/classifier"
)

// Budget is the token ceiling enforced for a QueryType's assembled
// bundle, per SPEC_FULL.md's category table.
func Budget(qt classifier.QueryType) int {
	switch qt {
	case classifier.System:
		return budgetSystem
	case classifier.Research:
		return budgetResearch
	case classifier.Planning:
		return budgetPlanning
	default:
		return budgetGeneral
	}
}

const (
	budgetSystem   = 2000
	budgetResearch = 4000
	budgetPlanning = 3500
	budgetGeneral  = 1000

	defaultRecentMessages = 10
	kbTopKResearch        = 5
	kbTopKPlanning        = 3
)

// Embedder produces the embedding used to run the KB similarity search
// for RESEARCH/PLANNING queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PreferenceProvider supplies the "current user preference snapshot"
// the category table calls for on SYSTEM/PLANNING queries. The spec
// leaves its storage unspecified; NoPreferences is the default for
// deployments that don't track one.
type PreferenceProvider interface {
	Snapshot(ctx context.Context, userID string) (string, error)
}

type noPreferences struct{}

func (noPreferences) Snapshot(context.Context, string) (string, error) { return "", nil }

// NoPreferences is a PreferenceProvider that never has a snapshot.
var NoPreferences PreferenceProvider = noPreferences{}
