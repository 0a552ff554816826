// ABOUTME: Tests for SQLiteStore
// ABOUTME: Verifies schema creation, seeding, ordering, and cascade deletes against real SQLite

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLiteStore creates a temporary SQLite store with a deterministic
// stepping clock.
func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var tick int
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	return s
}

func TestSQLiteStore_SeedsThreeAgents(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 3)

	types := make(map[string]bool)
	for _, a := range agents {
		types[a.Type] = true
		assert.True(t, a.IsActive)
	}
	assert.Len(t, types, 3)
}

func TestSQLiteStore_SeedOnlyWhenEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	first, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening must not seed a second trio.
	second, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)
	defer second.Close()

	agents, err := second.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Len(t, agents, 3)
}

func TestSQLiteStore_ConversationRoundTrip(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, InsertConversation{Title: "Bug triage"})
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bug triage", got.Title)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(c.UpdatedAt))

	_, err = s.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListConversations_OrderedByUpdatedAtDesc(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := s.CreateConversation(ctx, InsertConversation{Title: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	list, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	// Message insertion reorders.
	_, err = s.CreateMessage(ctx, InsertMessage{ConversationID: ids[0], Role: RoleUser, Content: "hi"})
	require.NoError(t, err)

	list, err = s.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[0], list[0].ID)
}

func TestSQLiteStore_UpdateConversation(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, InsertConversation{Title: "old"})
	require.NoError(t, err)

	title := "new"
	updated, err := s.UpdateConversation(ctx, c.ID, UpdateConversation{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	// Field-less update still touches the timestamp.
	touched, err := s.UpdateConversation(ctx, c.ID, UpdateConversation{})
	require.NoError(t, err)
	assert.Equal(t, "new", touched.Title)
	assert.True(t, touched.UpdatedAt.After(updated.UpdatedAt))

	_, err = s.UpdateConversation(ctx, "missing", UpdateConversation{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_DeleteConversation_Cascades(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, InsertConversation{Title: "doomed"})
	require.NoError(t, err)

	msg, err := s.CreateMessage(ctx, InsertMessage{
		ConversationID: c.ID, Role: RoleUser, Content: "x",
	})
	require.NoError(t, err)

	existed, err := s.DeleteConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	msgs, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = s.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	existed, err = s.DeleteConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestSQLiteStore_MessageMetadataRoundTrip(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, InsertConversation{Title: "chat"})
	require.NoError(t, err)

	msg, err := s.CreateMessage(ctx, InsertMessage{
		ConversationID: c.ID,
		Role:           RoleAssistant,
		Content:        "answer",
		Metadata:       map[string]any{"agentType": "search", "score": 0.5},
	})
	require.NoError(t, err)

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "search", got.Metadata["agentType"])
	assert.Equal(t, 0.5, got.Metadata["score"])

	// Absent metadata stays nil through the round trip.
	bare, err := s.CreateMessage(ctx, InsertMessage{
		ConversationID: c.ID, Role: RoleUser, Content: "plain",
	})
	require.NoError(t, err)
	gotBare, err := s.GetMessage(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, gotBare.Metadata)
}

func TestSQLiteStore_ListMessages_OrderedAsc(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, InsertConversation{Title: "chat"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.CreateMessage(ctx, InsertMessage{
			ConversationID: c.ID, Role: RoleUser, Content: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m4", msgs[4].Content)
}

func TestSQLiteStore_AgentLifecycle(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	inactive := false
	created, err := s.CreateAgent(ctx, InsertAgent{
		Name: "Archivist", Type: AgentTypeReasoning, Description: "archives", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	active, err := s.ListActiveAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3, "inactive agent must be filtered out")

	on := true
	updated, err := s.UpdateAgent(ctx, created.ID, UpdateAgent{IsActive: &on})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	active, err = s.ListActiveAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 4)

	_, err = s.UpdateAgent(ctx, "missing", UpdateAgent{IsActive: &on})
	assert.ErrorIs(t, err, ErrNotFound)
}
