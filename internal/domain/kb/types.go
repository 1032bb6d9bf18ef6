// Package kb is the Vector Store: the single shared knowledge-base
// corpus of synced documents, their chunks, and chunk embeddings.
package kb

import "time"

// Document is a synced knowledge-base document. Unlike the teacher's
// per-user uploadask.Document, documents here are global: the whole
// ranch operation shares one corpus.
type Document struct {
	ID            int64     `json:"id"`
	ExternalID    string    `json:"externalId"`
	Title         string    `json:"title"`
	FolderPath    string    `json:"folderPath"`
	Mime          string    `json:"mime"`
	FullText      string    `json:"-"`
	TokenCount    int       `json:"tokenCount"`
	Category      string    `json:"category"`
	IsContextFile bool      `json:"isContextFile"`
	LastSynced    time.Time `json:"lastSynced"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Chunk is an embedded slice of a Document.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	TokenCount int       `json:"tokenCount"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UpsertDocumentInput captures the fields Document Sync writes on
// every upsert_document call.
type UpsertDocumentInput struct {
	ExternalID    string
	Title         string
	FolderPath    string
	Mime          string
	FullText      string
	TokenCount    int
	Category      string
	IsContextFile bool
}

// ChunkInput is one chunk passed to ReplaceChunks, prior to
// persistence assigning it an ID.
type ChunkInput struct {
	Index      int
	Text       string
	TokenCount int
	Embedding  []float32
}

// ListFilter restricts ListDocuments/GetContextFiles.
type ListFilter struct {
	FolderPrefix string
	Mime         string
	Categories   []string
}

// SearchResult is one ranked hit from Search, carrying enough
// metadata for a citation tuple (title, folder).
type SearchResult struct {
	ChunkID    int64
	DocumentID int64
	Title      string
	FolderPath string
	Text       string
	Similarity float64
}
