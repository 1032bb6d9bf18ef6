package kbrepo

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/kb"
)

// MemoryStore is a dependency-free kb.Store used in tests, adapted
// from the teacher's MemoryDocumentRepository/MemoryChunkRepository
// pair (internal/infra/uploadask/repo/memory.go), collapsed to one
// struct since the KB corpus is global, not per-user.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]*kb.Document // by external id
	byID    map[int64]*kb.Document
	chunks  map[int64][]kb.Chunk // by internal document id
	seq     int64
	chunkID int64
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]*kb.Document),
		byID:   make(map[int64]*kb.Document),
		chunks: make(map[int64][]kb.Chunk),
	}
}

func (s *MemoryStore) UpsertDocument(_ context.Context, in kb.UpsertDocumentInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.docs[in.ExternalID]; ok {
		existing.Title = in.Title
		existing.FolderPath = in.FolderPath
		existing.Mime = in.Mime
		existing.FullText = in.FullText
		existing.TokenCount = in.TokenCount
		existing.Category = in.Category
		existing.IsContextFile = in.IsContextFile
		existing.LastSynced = now
		existing.UpdatedAt = now
		return existing.ID, nil
	}
	s.seq++
	doc := &kb.Document{
		ID:            s.seq,
		ExternalID:    in.ExternalID,
		Title:         in.Title,
		FolderPath:    in.FolderPath,
		Mime:          in.Mime,
		FullText:      in.FullText,
		TokenCount:    in.TokenCount,
		Category:      in.Category,
		IsContextFile: in.IsContextFile,
		LastSynced:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.docs[in.ExternalID] = doc
	s.byID[doc.ID] = doc
	return doc.ID, nil
}

func (s *MemoryStore) ReplaceChunks(_ context.Context, documentID int64, chunks []kb.ChunkInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]kb.Chunk, 0, len(chunks))
	for _, c := range chunks {
		s.chunkID++
		out = append(out, kb.Chunk{
			ID:         s.chunkID,
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			Embedding:  c.Embedding,
			CreatedAt:  time.Now(),
		})
	}
	s.chunks[documentID] = out
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[externalID]
	if !ok {
		return nil
	}
	delete(s.docs, externalID)
	delete(s.byID, doc.ID)
	delete(s.chunks, doc.ID)
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, filter kb.ListFilter) ([]kb.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kb.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if !matchesFilter(*d, filter) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSynced.After(out[j].LastSynced) })
	return out, nil
}

func (s *MemoryStore) GetContextFiles(_ context.Context, categories []string) ([]kb.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	out := make([]kb.Document, 0)
	for _, d := range s.docs {
		if !d.IsContextFile {
			continue
		}
		if len(allowed) > 0 && !allowed[d.Category] {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *MemoryStore) Search(_ context.Context, embedding []float32, k int, filter kb.ListFilter) ([]kb.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]kb.SearchResult, 0)
	for docID, chunks := range s.chunks {
		doc, ok := s.byID[docID]
		if !ok || !matchesFilter(*doc, filter) {
			continue
		}
		for _, c := range chunks {
			results = append(results, kb.SearchResult{
				ChunkID:    c.ID,
				DocumentID: docID,
				Title:      doc.Title,
				FolderPath: doc.FolderPath,
				Text:       c.Text,
				Similarity: cosineSimilarity(embedding, c.Embedding),
			})
		}
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilter(doc kb.Document, filter kb.ListFilter) bool {
	if filter.FolderPrefix != "" && !strings.HasPrefix(doc.FolderPath, filter.FolderPrefix) {
		return false
	}
	if filter.Mime != "" && doc.Mime != filter.Mime {
		return false
	}
	if len(filter.Categories) > 0 {
		match := false
		for _, c := range filter.Categories {
			if c == doc.Category {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		magA += float64(a[i] * a[i])
		magB += float64(b[i] * b[i])
	}
	den := math.Sqrt(magA) * math.Sqrt(magB)
	if den == 0 {
		return 0
	}
	return dot / den
}

var _ kb.Store = (*MemoryStore)(nil)
