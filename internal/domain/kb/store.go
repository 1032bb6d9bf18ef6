package kb

import "context"

// Store is the Vector Store contract: persist document chunks and
// embeddings, and serve cosine-similarity top-k search. Grounded on
// the teacher's uploadask.DocumentRepository/ChunkRepository pair,
// collapsed into one interface since here there is a single shared
// corpus rather than per-user document ownership.
type Store interface {
	// UpsertDocument creates or updates a document by its stable
	// external id, returning the internal numeric id.
	UpsertDocument(ctx context.Context, in UpsertDocumentInput) (int64, error)

	// ReplaceChunks atomically deletes a document's existing chunks
	// and inserts the given set within one transaction.
	ReplaceChunks(ctx context.Context, documentID int64, chunks []ChunkInput) error

	// DeleteDocument removes a document and cascades its chunks.
	DeleteDocument(ctx context.Context, externalID string) error

	// ListDocuments returns documents matching filter, most recently
	// synced first.
	ListDocuments(ctx context.Context, filter ListFilter) ([]Document, error)

	// GetContextFiles returns tier-1 context documents, optionally
	// restricted to the given category tags.
	GetContextFiles(ctx context.Context, categories []string) ([]Document, error)

	// Search performs cosine-similarity top-k search. An empty index
	// returns an empty slice, not an error.
	Search(ctx context.Context, embedding []float32, k int, filter ListFilter) ([]SearchResult, error)
}
