package conversation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

const defaultRecentMessages = 20

// Service wraps a Store with the session-resolution semantics the
// Query API (C11) depends on: a malformed or unknown session id never
// surfaces as an error, it silently resolves to a fresh session.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log.With("component", "conversation.service")}
}

// ResolveSession parses raw as a UUID and ensures a session exists for
// it; an empty or malformed raw value is replaced with a freshly
// generated UUID instead of erroring, per spec's "implicit creation
// when an unknown session id is supplied" invariant.
func (s *Service) ResolveSession(ctx context.Context, raw string) (Session, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		id = uuid.New()
		s.log.Debug("replacing invalid session id with a new session", "raw", raw)
	}
	return s.store.EnsureSession(ctx, id)
}

// AppendMessage persists one message.
func (s *Service) AppendMessage(ctx context.Context, in NewMessageInput) (Message, error) {
	return s.store.AppendMessage(ctx, in)
}

// RecentMessages returns the last n messages of a session, defaulting
// n when <= 0.
func (s *Service) RecentMessages(ctx context.Context, sessionID uuid.UUID, n int) ([]Message, error) {
	if n <= 0 {
		n = defaultRecentMessages
	}
	return s.store.ListRecent(ctx, sessionID, n)
}

// ListSessions returns recent sessions for GET /conversations.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	return s.store.ListSessions(ctx, limit)
}

// GetSession returns a session with its full message history for GET
// /conversations/{id}.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (Session, []Message, error) {
	return s.store.GetSession(ctx, id)
}
