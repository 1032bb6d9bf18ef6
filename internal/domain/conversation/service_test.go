package conversation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/domain/conversation"
	"github.com/wildfireranch/commandcenter/internal/infra/convrepo"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestService_ResolveSession_InvalidIDCreatesNewSession(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	sess, err := svc.ResolveSession(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, sess.ID)
}

func TestService_ResolveSession_ValidUnknownIDIsCreated(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	id := uuid.New()
	sess, err := svc.ResolveSession(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, id, sess.ID)
}

func TestService_ResolveSession_ExistingIDIsReused(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	id := uuid.New()
	first, err := svc.ResolveSession(context.Background(), id.String())
	require.NoError(t, err)
	second, err := svc.ResolveSession(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestService_AppendAndRecentMessagesPreserveOrder(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	sess, err := svc.ResolveSession(context.Background(), uuid.New().String())
	require.NoError(t, err)

	_, err = svc.AppendMessage(context.Background(), conversation.NewMessageInput{SessionID: sess.ID, Role: conversation.RoleUser, Content: "hi"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), conversation.NewMessageInput{SessionID: sess.ID, Role: conversation.RoleAssistant, Content: "hello", AgentUsed: "manager", AgentRole: "General"})
	require.NoError(t, err)

	msgs, err := svc.RecentMessages(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	require.Equal(t, "manager", msgs[1].AgentUsed)
}

func TestService_GetSessionReturnsFullHistory(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	sess, err := svc.ResolveSession(context.Background(), uuid.New().String())
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), conversation.NewMessageInput{SessionID: sess.ID, Role: conversation.RoleUser, Content: "hi"})
	require.NoError(t, err)

	got, msgs, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Len(t, msgs, 1)
}

func TestService_ListSessionsOrdersByMostRecentlyUpdated(t *testing.T) {
	svc := conversation.NewService(convrepo.NewMemoryStore(), testLogger())
	first, err := svc.ResolveSession(context.Background(), uuid.New().String())
	require.NoError(t, err)
	second, err := svc.ResolveSession(context.Background(), uuid.New().String())
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), conversation.NewMessageInput{SessionID: second.ID, Role: conversation.RoleUser, Content: "later"})
	require.NoError(t, err)

	sessions, err := svc.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, second.ID, sessions[0].ID)
	_ = first
}
