// Package kbrepo adapts internal/domain/kb.Store to concrete storage:
// Postgres+pgvector for production, an in-memory store for tests.
package kbrepo

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/wildfireranch/commandcenter/internal/domain/kb"
)

// PostgresStore implements kb.Store over a shared pgxpool.Pool,
// adapted from the teacher's PostgresChunkRepository/
// PostgresDocumentRepository pair (internal/infra/uploadask/repo/postgres.go).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) UpsertDocument(ctx context.Context, in kb.UpsertDocumentInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO kb_documents (external_id, title, folder_path, mime, full_text, token_count, category, is_context_file, last_synced, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			folder_path = EXCLUDED.folder_path,
			mime = EXCLUDED.mime,
			full_text = EXCLUDED.full_text,
			token_count = EXCLUDED.token_count,
			category = EXCLUDED.category,
			is_context_file = EXCLUDED.is_context_file,
			last_synced = NOW(),
			updated_at = NOW()
		RETURNING id
	`, in.ExternalID, in.Title, in.FolderPath, in.Mime, in.FullText, in.TokenCount, in.Category, in.IsContextFile).Scan(&id)
	return id, err
}

func (r *PostgresStore) ReplaceChunks(ctx context.Context, documentID int64, chunks []kb.ChunkInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM kb_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO kb_chunks (document_id, chunk_index, content, token_count, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, documentID, c.Index, c.Text, c.TokenCount, pgvector.NewVector(c.Embedding))
	}
	if len(chunks) > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresStore) DeleteDocument(ctx context.Context, externalID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM kb_documents WHERE external_id = $1`, externalID)
	return err
}

func (r *PostgresStore) ListDocuments(ctx context.Context, filter kb.ListFilter) ([]kb.Document, error) {
	query := `
		SELECT id, external_id, title, folder_path, mime, token_count, category, is_context_file, last_synced, created_at, updated_at
		FROM kb_documents
		WHERE 1=1
	`
	args := []any{}
	argPos := 1
	query, args, argPos = appendListFilter(query, args, argPos, filter)
	query += ` ORDER BY last_synced DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *PostgresStore) GetContextFiles(ctx context.Context, categories []string) ([]kb.Document, error) {
	query := `
		SELECT id, external_id, title, folder_path, mime, token_count, category, is_context_file, last_synced, created_at, updated_at
		FROM kb_documents
		WHERE is_context_file = TRUE
	`
	args := []any{}
	if len(categories) > 0 {
		query += ` AND category = ANY($1)`
		args = append(args, categories)
	}
	query += ` ORDER BY folder_path ASC, title ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *PostgresStore) Search(ctx context.Context, embedding []float32, k int, filter kb.ListFilter) ([]kb.SearchResult, error) {
	query := `
		SELECT
			c.id, c.document_id, d.title, d.folder_path, c.content,
			(1.0 - (c.embedding <=> $1)) AS similarity
		FROM kb_chunks c
		JOIN kb_documents d ON d.id = c.document_id
		WHERE 1=1
	`
	args := []any{pgvector.NewVector(embedding)}
	argPos := 2
	if filter.FolderPrefix != "" {
		query += ` AND d.folder_path LIKE $` + itoa(argPos)
		args = append(args, filter.FolderPrefix+"%")
		argPos++
	}
	if filter.Mime != "" {
		query += ` AND d.mime = $` + itoa(argPos)
		args = append(args, filter.Mime)
		argPos++
	}
	query += ` ORDER BY (c.embedding <=> $1) ASC LIMIT $` + itoa(argPos)
	args = append(args, k)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []kb.SearchResult
	for rows.Next() {
		var res kb.SearchResult
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.Title, &res.FolderPath, &res.Text, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func appendListFilter(query string, args []any, argPos int, filter kb.ListFilter) (string, []any, int) {
	if filter.FolderPrefix != "" {
		query += ` AND folder_path LIKE $` + itoa(argPos)
		args = append(args, filter.FolderPrefix+"%")
		argPos++
	}
	if filter.Mime != "" {
		query += ` AND mime = $` + itoa(argPos)
		args = append(args, filter.Mime)
		argPos++
	}
	if len(filter.Categories) > 0 {
		query += ` AND category = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.Categories)
		argPos++
	}
	return query, args, argPos
}

func scanDocuments(rows pgx.Rows) ([]kb.Document, error) {
	var docs []kb.Document
	for rows.Next() {
		var d kb.Document
		if err := rows.Scan(&d.ID, &d.ExternalID, &d.Title, &d.FolderPath, &d.Mime, &d.TokenCount, &d.Category, &d.IsContextFile, &d.LastSynced, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func itoa(v int) string { return strconv.Itoa(v) }

var _ kb.Store = (*PostgresStore)(nil)
