package convrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
)

// MemoryStore is a dependency-free conversation.Store for tests,
// adapted from the teacher's uploadask in-memory message log.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*conversation.Session
	messages map[uuid.UUID][]conversation.Message
	seq      int64
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*conversation.Session),
		messages: make(map[uuid.UUID][]conversation.Message),
	}
}

func (m *MemoryStore) EnsureSession(_ context.Context, id uuid.UUID) (conversation.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return *sess, nil
	}
	now := time.Now()
	sess := &conversation.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	m.sessions[id] = sess
	return *sess, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, in conversation.NewMessageInput) (conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	now := time.Now()
	msg := conversation.Message{
		ID:        m.seq,
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		AgentUsed: in.AgentUsed,
		AgentRole: in.AgentRole,
		Duration:  in.Duration,
		CreatedAt: now,
	}
	m.messages[in.SessionID] = append(m.messages[in.SessionID], msg)
	if sess, ok := m.sessions[in.SessionID]; ok {
		sess.UpdatedAt = now
	} else {
		m.sessions[in.SessionID] = &conversation.Session{ID: in.SessionID, CreatedAt: now, UpdatedAt: now}
	}
	return msg, nil
}

func (m *MemoryStore) ListRecent(_ context.Context, sessionID uuid.UUID, n int) ([]conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[sessionID]
	if n <= 0 || n >= len(all) {
		out := make([]conversation.Message, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]conversation.Message, n)
	copy(out, all[len(all)-n:])
	return out, nil
}

func (m *MemoryStore) ListSessions(_ context.Context, limit int) ([]conversation.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]conversation.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (conversation.Session, []conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return conversation.Session{}, nil, nil
	}
	msgs := make([]conversation.Message, len(m.messages[id]))
	copy(msgs, m.messages[id])
	return *sess, msgs, nil
}

var _ conversation.Store = (*MemoryStore)(nil)
