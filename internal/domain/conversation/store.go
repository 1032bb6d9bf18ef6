package conversation

import (
	"context"

	"github.com/google/uuid"
)

// Store persists Sessions and Messages. The Query API (C11) is its
// sole writer, per the spec's ownership table.
type Store interface {
	// EnsureSession returns the session for id, creating it if absent.
	// Used by session resolution: an unknown or freshly-generated id
	// both resolve through this path.
	EnsureSession(ctx context.Context, id uuid.UUID) (Session, error)
	// AppendMessage persists one message and touches the parent
	// session's updated_at.
	AppendMessage(ctx context.Context, in NewMessageInput) (Message, error)
	// ListRecent returns the last n messages of a session in
	// chronological order, for context assembly (C7).
	ListRecent(ctx context.Context, sessionID uuid.UUID, n int) ([]Message, error)
	// ListSessions returns the most recently updated sessions, newest
	// first, for GET /conversations.
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	// GetSession returns a session and all its messages in
	// chronological order, for GET /conversations/{id}.
	GetSession(ctx context.Context, id uuid.UUID) (Session, []Message, error)
}
