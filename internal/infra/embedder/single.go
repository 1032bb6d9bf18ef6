package embedder

import (
	"context"
	"fmt"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
)

// Single adapts a batch docsync.Embedder to the single-text Embed(ctx,
// text) ([]float32, error) shape that contextmgr, agenttools, and the
// /kb/search handler depend on, so the query path and the sync path
// share one underlying provider client.
type Single struct {
	batch docsync.Embedder
}

// NewSingle wraps a batch embedder for single-query use.
func NewSingle(batch docsync.Embedder) *Single {
	return &Single{batch: batch}
}

func (s *Single) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.batch.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}
