// Package convrepo adapts internal/domain/conversation.Store to
// concrete storage, grounded on the teacher's
// internal/infra/uploadask/memory package (PostgresMessageLog /
// in-memory message log) generalized from per-user QA history to
// session+role conversation turns with agent metadata.
package convrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
)

// PostgresStore implements conversation.Store over a shared
// pgxpool.Pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) EnsureSession(ctx context.Context, id uuid.UUID) (conversation.Session, error) {
	var sess conversation.Session
	err := r.pool.QueryRow(ctx, `
		INSERT INTO conversation_sessions (id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET id = conversation_sessions.id
		RETURNING id, created_at, updated_at
	`, id).Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	return sess, err
}

func (r *PostgresStore) AppendMessage(ctx context.Context, in conversation.NewMessageInput) (conversation.Message, error) {
	var msg conversation.Message
	msg.SessionID = in.SessionID
	msg.Role = in.Role
	msg.Content = in.Content
	msg.AgentUsed = in.AgentUsed
	msg.AgentRole = in.AgentRole
	msg.Duration = in.Duration

	err := r.pool.QueryRow(ctx, `
		INSERT INTO conversation_messages (session_id, role, content, agent_used, agent_role, duration_ms, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NOW())
		RETURNING id, created_at
	`, in.SessionID, in.Role, in.Content, in.AgentUsed, in.AgentRole, in.Duration.Milliseconds()).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return conversation.Message{}, err
	}

	if _, err := r.pool.Exec(ctx, `UPDATE conversation_sessions SET updated_at = NOW() WHERE id = $1`, in.SessionID); err != nil {
		return conversation.Message{}, err
	}
	return msg, nil
}

func (r *PostgresStore) ListRecent(ctx context.Context, sessionID uuid.UUID, n int) ([]conversation.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, COALESCE(agent_used, ''), COALESCE(agent_role, ''), duration_ms, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

func (r *PostgresStore) ListSessions(ctx context.Context, limit int) ([]conversation.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at, updated_at
		FROM conversation_sessions
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conversation.Session
	for rows.Next() {
		var s conversation.Session
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (conversation.Session, []conversation.Message, error) {
	var sess conversation.Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, updated_at FROM conversation_sessions WHERE id = $1
	`, id).Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.Session{}, nil, nil
		}
		return conversation.Session{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, COALESCE(agent_used, ''), COALESCE(agent_role, ''), duration_ms, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, id)
	if err != nil {
		return conversation.Session{}, nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return conversation.Session{}, nil, err
	}
	return sess, msgs, nil
}

func scanMessages(rows pgx.Rows) ([]conversation.Message, error) {
	var out []conversation.Message
	for rows.Next() {
		var (
			m          conversation.Message
			durationMs int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.AgentUsed, &m.AgentRole, &durationMs, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, m)
	}
	return out, rows.Err()
}

func reverse(msgs []conversation.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

var _ conversation.Store = (*PostgresStore)(nil)
