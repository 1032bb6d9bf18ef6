package kb_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/kb"
	"github.com/wildfireranch/commandcenter/internal/infra/kbrepo"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_SearchEmptyIndexReturnsEmpty(t *testing.T) {
	svc := kb.NewService(kbrepo.NewMemoryStore(), 3, newTestLogger())

	results, err := svc.Search(context.Background(), []float32{1, 0, 0}, 5, kb.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestService_SearchDimensionMismatchIsFatal(t *testing.T) {
	svc := kb.NewService(kbrepo.NewMemoryStore(), 3, newTestLogger())

	_, err := svc.Search(context.Background(), []float32{1, 0}, 5, kb.ListFilter{})
	require.Error(t, err)
}

func TestService_UpsertReplaceChunksAndSearch(t *testing.T) {
	store := kbrepo.NewMemoryStore()
	svc := kb.NewService(store, 3, newTestLogger())
	ctx := context.Background()

	id, err := svc.UpsertDocument(ctx, kb.UpsertDocumentInput{
		ExternalID: "doc-1",
		Title:      "Battery Thresholds",
		FolderPath: "/system",
		Mime:       "text/markdown",
		FullText:   "min SOC is 40",
		TokenCount: 5,
		Category:   "system",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	err = svc.ReplaceChunks(ctx, id, []kb.ChunkInput{
		{Index: 0, Text: "min SOC is 40", TokenCount: 5, Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	results, err := svc.Search(ctx, []float32{1, 0, 0}, 5, kb.ListFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Battery Thresholds", results[0].Title)
	require.InDelta(t, 1.0, results[0].Similarity, 0.0001)
}

func TestService_ReplaceChunksRejectsWrongDimension(t *testing.T) {
	store := kbrepo.NewMemoryStore()
	svc := kb.NewService(store, 3, newTestLogger())
	ctx := context.Background()

	id, err := svc.UpsertDocument(ctx, kb.UpsertDocumentInput{ExternalID: "doc-2", Title: "x"})
	require.NoError(t, err)

	err = svc.ReplaceChunks(ctx, id, []kb.ChunkInput{
		{Index: 0, Text: "x", Embedding: []float32{1, 0}},
	})
	require.Error(t, err)
}

func TestService_GetContextFilesFiltersByCategory(t *testing.T) {
	store := kbrepo.NewMemoryStore()
	svc := kb.NewService(store, 3, newTestLogger())
	ctx := context.Background()

	_, err := svc.UpsertDocument(ctx, kb.UpsertDocumentInput{ExternalID: "sys", Category: "system", IsContextFile: true})
	require.NoError(t, err)
	_, err = svc.UpsertDocument(ctx, kb.UpsertDocumentInput{ExternalID: "doc", Category: "docs", IsContextFile: true})
	require.NoError(t, err)
	_, err = svc.UpsertDocument(ctx, kb.UpsertDocumentInput{ExternalID: "not-context", Category: "docs", IsContextFile: false})
	require.NoError(t, err)

	files, err := svc.GetContextFiles(ctx, []string{"system"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "sys", files[0].ExternalID)
}
