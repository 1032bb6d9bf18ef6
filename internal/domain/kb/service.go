package kb

import (
	"context"
	"log/slog"

	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

const defaultSearchK = 5

// Service wraps a Store with the invariants the raw contract doesn't
// enforce on its own: a fixed embedding dimension and a default k.
type Service struct {
	store Store
	dim   int
	log   *slog.Logger
}

// NewService constructs a Service backed by store, rejecting search
// calls whose embedding doesn't match dim.
func NewService(store Store, dim int, log *slog.Logger) *Service {
	return &Service{store: store, dim: dim, log: log.With("component", "kb.service")}
}

func (s *Service) UpsertDocument(ctx context.Context, in UpsertDocumentInput) (int64, error) {
	return s.store.UpsertDocument(ctx, in)
}

func (s *Service) ReplaceChunks(ctx context.Context, documentID int64, chunks []ChunkInput) error {
	for _, c := range chunks {
		if s.dim > 0 && len(c.Embedding) != s.dim {
			return apperrors.Wrap("invalid_input", "embedding dimension mismatch", nil)
		}
	}
	return s.store.ReplaceChunks(ctx, documentID, chunks)
}

func (s *Service) DeleteDocument(ctx context.Context, externalID string) error {
	return s.store.DeleteDocument(ctx, externalID)
}

func (s *Service) ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error) {
	return s.store.ListDocuments(ctx, filter)
}

func (s *Service) GetContextFiles(ctx context.Context, categories []string) ([]Document, error) {
	return s.store.GetContextFiles(ctx, categories)
}

// Search performs top-k similarity search, defaulting k to 5 and
// rejecting (fatally, for this call only) an embedding of the wrong
// dimension rather than silently searching with garbage.
func (s *Service) Search(ctx context.Context, embedding []float32, k int, filter ListFilter) ([]SearchResult, error) {
	if s.dim > 0 && len(embedding) != s.dim {
		return nil, apperrors.Wrap("invalid_input", "query embedding dimension mismatch", nil)
	}
	if k <= 0 {
		k = defaultSearchK
	}
	results, err := s.store.Search(ctx, embedding, k, filter)
	if err != nil {
		return nil, apperrors.Wrap("upstream", "vector search failed", err)
	}
	return results, nil
}
