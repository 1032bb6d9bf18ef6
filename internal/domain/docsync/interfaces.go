package docsync

import "context"

// Source abstracts the external, read-only document tree (a shared
// drive, a git repo checkout, or a local knowledge directory).
type Source interface {
	// Enumerate recursively lists candidate files, skipping
	// ignore-patterned names, in deterministic order.
	Enumerate(ctx context.Context) ([]SourceFile, error)
	// Fetch retrieves and converts one file to plain text.
	Fetch(ctx context.Context, file SourceFile) (text string, err error)
	// Preview summarizes the tree without fetching content.
	Preview(ctx context.Context) (Preview, error)
}

// Embedder produces one embedding vector per input text, batching
// calls to the provider where possible.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits document text into ordered, token-bounded pieces.
type Chunker interface {
	Chunk(text string) []ChunkCandidate
}

// ChunkCandidate is produced by the chunker before embedding.
type ChunkCandidate struct {
	Index      int
	Text       string
	TokenCount int
}

// RunStore persists SyncRun records.
type RunStore interface {
	Create(ctx context.Context, run Run) (int64, error)
	Complete(ctx context.Context, id int64, status RunStatus, processed, updated, failed int, errMsg string) error
	ActiveRun(ctx context.Context) (*Run, error)
}
