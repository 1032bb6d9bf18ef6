// Package conversation owns Session and Message persistence: the
// Query API is the sole writer, and session resolution silently
// creates a new session rather than erroring on an unknown or
// malformed id.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes user vs. assistant messages.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is a conversation thread, identified by UUID.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn within a session.
type Message struct {
	ID        int64
	SessionID uuid.UUID
	Role      Role
	Content   string
	AgentUsed string // empty when not applicable
	AgentRole string
	Duration  time.Duration
	CreatedAt time.Time
}

// NewMessageInput is the caller-supplied subset of Message fields;
// ID/CreatedAt are assigned by the store.
type NewMessageInput struct {
	SessionID uuid.UUID
	Role      Role
	Content   string
	AgentUsed string
	AgentRole string
	Duration  time.Duration
}
