package kbrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildfireranch/commandcenter/internal/domain/docsync"
)

// PostgresRunStore implements docsync.RunStore against the kb_sync_log
// table, grouped under the same kb_* schema as kb_documents/kb_chunks
// per the spec's data section.
type PostgresRunStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRunStore constructs the store.
func NewPostgresRunStore(pool *pgxpool.Pool) *PostgresRunStore {
	return &PostgresRunStore{pool: pool}
}

func (r *PostgresRunStore) Create(ctx context.Context, run docsync.Run) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO kb_sync_log (kind, status, started_at, trigger)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, run.Kind, run.Status, run.StartedAt, run.Trigger).Scan(&id)
	return id, err
}

func (r *PostgresRunStore) Complete(ctx context.Context, id int64, status docsync.RunStatus, processed, updated, failed int, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE kb_sync_log
		SET status = $2, ended_at = NOW(), processed = $3, updated = $4, failed = $5, error = NULLIF($6, '')
		WHERE id = $1
	`, id, status, processed, updated, failed, errMsg)
	return err
}

func (r *PostgresRunStore) ActiveRun(ctx context.Context) (*docsync.Run, error) {
	var run docsync.Run
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, status, started_at, processed, updated, failed, trigger
		FROM kb_sync_log
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, docsync.RunStatusRunning).Scan(&run.ID, &run.Kind, &run.Status, &run.StartedAt, &run.Processed, &run.Updated, &run.Failed, &run.Trigger)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

var _ docsync.RunStore = (*PostgresRunStore)(nil)

// MemoryRunStore is an in-memory docsync.RunStore for tests.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[int64]*docsync.Run
	seq  int64
}

// NewMemoryRunStore constructs an empty store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[int64]*docsync.Run)}
}

func (m *MemoryRunStore) Create(_ context.Context, run docsync.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	run.ID = m.seq
	m.runs[run.ID] = &run
	return run.ID, nil
}

func (m *MemoryRunStore) Complete(_ context.Context, id int64, status docsync.RunStatus, processed, updated, failed int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil
	}
	now := time.Now()
	run.Status = status
	run.EndedAt = &now
	run.Processed = processed
	run.Updated = updated
	run.Failed = failed
	run.Error = errMsg
	return nil
}

func (m *MemoryRunStore) ActiveRun(_ context.Context) (*docsync.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.Status == docsync.RunStatusRunning {
			cp := *run
			return &cp, nil
		}
	}
	return nil, nil
}

var _ docsync.RunStore = (*MemoryRunStore)(nil)
