package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := NewInMemoryStore(time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_Roster_RoundTrip(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	// Given a room with two members
	members := []Member{
		{Handle: "h1", Name: "Alice"},
		{Handle: "h2", Name: "Bob"},
	}
	req.NoError(store.SetRoster(ctx, "room1", members))

	// When reading the roster back
	roster, err := store.Roster(ctx, "room1")

	// Then order is preserved
	req.NoError(err)
	req.Equal(members, roster)
}

func TestBadgerStore_Roster_Unknown_Room_Is_Empty(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	roster, err := store.Roster(context.Background(), "ghost")

	req.NoError(err)
	req.Empty(roster)
}

func TestBadgerStore_Connection_Overwrite_And_Missing(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	ctx := context.Background()

	// Given two successive logins for the same identity
	req.NoError(store.SetConnection(ctx, "u1", "conn-old"))
	req.NoError(store.SetConnection(ctx, "u1", "conn-new"))

	// Then the latest handle wins
	handle, err := store.Connection(ctx, "u1")
	req.NoError(err)
	req.Equal("conn-new", handle)

	// And a never-seen identity reports ErrNotFound
	_, err = store.Connection(ctx, "stranger")
	req.ErrorIs(err, ErrNotFound)
}

func TestBadgerStore_Canceled_Context_Fails_Fast(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Roster(ctx, "room1")
	req.ErrorIs(err, context.Canceled)

	req.ErrorIs(store.SetRoster(ctx, "room1", nil), context.Canceled)
}
