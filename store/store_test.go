package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvani/medvani/internal/profile"
	"github.com/medvani/medvani/store"
	"github.com/medvani/medvani/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "medvani_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateSessionReusesEmptyUntitled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultTitle, first.Title)

	second, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different owner gets a fresh session.
	other, err := s.CreateSession(ctx, "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestStore_AppendTurnCreatesSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-x", "user-1", "hello", "hi there"))

	session, err := s.GetSession(ctx, "sess-x", "user-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, int32(1), session.TurnCount)

	turns, err := s.ListTurns(ctx, "sess-x")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].UserText)
	assert.Equal(t, "hi there", turns[0].AssistantText)
}

func TestStore_TurnsKeepAppendOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "first", "a1"))
	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "second", "a2"))
	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "third", "a3"))

	turns, err := s.ListTurns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].UserText)
	assert.Equal(t, "third", turns[2].UserText)
}

func TestStore_GetSessionScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "u", "a"))

	session, err := s.GetSession(ctx, "sess-1", "user-2")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStore_AssignTitleIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "u", "a"))

	applied, err := s.AssignTitle(ctx, "sess-1", "Headache And Fever")
	require.NoError(t, err)
	assert.True(t, applied)

	// A second assignment races and loses: the title stays unchanged.
	applied, err = s.AssignTitle(ctx, "sess-1", "Something Else")
	require.NoError(t, err)
	assert.False(t, applied)

	session, err := s.GetSession(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "Headache And Fever", session.Title)
}

func TestStore_DeleteSessionScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-1", "user-1", "u", "a"))

	// Wrong owner deletes nothing.
	require.NoError(t, s.DeleteSession(ctx, "sess-1", "user-2"))
	session, err := s.GetSession(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, session)

	require.NoError(t, s.DeleteSession(ctx, "sess-1", "user-1"))
	session, err = s.GetSession(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Nil(t, session)

	turns, err := s.ListTurns(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_AppendTurnRejectsForeignOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "sess-x", "user-1", "my symptoms", "noted"))

	// Sessions are keyed by (id, owner_id): another user naming the same
	// session id must not reach user-1's transcript.
	err := s.AppendTurn(ctx, "sess-x", "user-2", "injected", "answer")
	require.ErrorIs(t, err, store.ErrOwnerMismatch)

	session, err := s.GetSession(ctx, "sess-x", "user-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, int32(1), session.TurnCount)

	turns, err := s.ListTurns(ctx, "sess-x")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "my symptoms", turns[0].UserText)
}
