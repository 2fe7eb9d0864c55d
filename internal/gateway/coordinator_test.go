package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plazalabs/plaza/internal/presence"
	"github.com/plazalabs/plaza/internal/protocol"
)

func newTestCoordinator(t *testing.T) (*Coordinator, presence.Store) {
	t.Helper()

	store, err := presence.NewInMemoryStore(time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(store, NewHub(), 2*time.Second, log), store
}

func nextEvent(t *testing.T, s *Session) protocol.Envelope {
	t.Helper()

	select {
	case env := <-s.sendCh:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return protocol.Envelope{}
	}
}

func drainEvents(s *Session) {
	for {
		select {
		case <-s.sendCh:
		default:
			return
		}
	}
}

func decodeUserList(t *testing.T, env protocol.Envelope) []string {
	t.Helper()

	require.Equal(t, protocol.EventUserList, env.Event)
	var payload protocol.UserListPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload.UserList
}

func decodeUserCount(t *testing.T, env protocol.Envelope) int {
	t.Helper()

	require.Equal(t, protocol.EventUserCount, env.Event)
	var payload protocol.UserCountPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload.UserCount
}

func TestCoordinator_Join_Then_Exit_Leaves_Empty_Roster(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()
	session := NewSession()

	// Given a logged-in user in room1
	req.NoError(coord.Login(ctx, session, "u1"))
	req.NoError(coord.Join(ctx, session, "Alice", "room1"))

	// When they exit
	req.NoError(coord.Exit(ctx, session))

	// Then the roster is empty and the name is gone
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Empty(roster)

	room, nickname := session.roomState()
	req.Empty(room)
	req.Empty(nickname)
}

func TestCoordinator_Join_Broadcast_Order_And_Count(t *testing.T) {
	req := require.New(t)
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	session := NewSession()

	// When a user joins
	req.NoError(coord.Join(ctx, session, "Alice", "room1"))

	// Then the joiner receives notice, list, count in that order
	notice := nextEvent(t, session)
	req.Equal(protocol.EventUserJoin, notice.Event)
	var text string
	req.NoError(json.Unmarshal(notice.Data, &text))
	req.Contains(text, "Alice")

	list := decodeUserList(t, nextEvent(t, session))
	req.Equal([]string{"Alice"}, list)

	count := decodeUserCount(t, nextEvent(t, session))
	req.Equal(len(list), count)
}

func TestCoordinator_Scenario_Two_Users_One_Exits(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	alice := NewSession()
	bob := NewSession()

	// Given Alice logs in and joins room1
	req.NoError(coord.Login(ctx, alice, "u1"))
	req.NoError(coord.Join(ctx, alice, "Alice", "room1"))

	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Equal([]string{"Alice"}, memberNames(roster))
	drainEvents(alice)

	// When Bob joins
	req.NoError(coord.Join(ctx, bob, "Bob", "room1"))

	// Then both appear in join order and the count broadcast says 2
	roster, err = store.Roster(ctx, "room1")
	req.NoError(err)
	req.Equal([]string{"Alice", "Bob"}, memberNames(roster))

	notice := nextEvent(t, alice)
	req.Equal(protocol.EventUserJoin, notice.Event)
	req.Equal([]string{"Alice", "Bob"}, decodeUserList(t, nextEvent(t, alice)))
	req.Equal(2, decodeUserCount(t, nextEvent(t, alice)))

	// When Alice exits
	drainEvents(bob)
	req.NoError(coord.Exit(ctx, alice))

	// Then only Bob remains and Bob sees the updated roster
	roster, err = store.Roster(ctx, "room1")
	req.NoError(err)
	req.Equal([]string{"Bob"}, memberNames(roster))

	exit := nextEvent(t, bob)
	req.Equal(protocol.EventUserExit, exit.Event)
	req.Equal([]string{"Bob"}, decodeUserList(t, nextEvent(t, bob)))
	req.Equal(1, decodeUserCount(t, nextEvent(t, bob)))
}

func TestCoordinator_Duplicate_Disconnect_Is_NoOp(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	alice := NewSession()
	bob := NewSession()
	req.NoError(coord.Join(ctx, alice, "Alice", "room1"))
	req.NoError(coord.Join(ctx, bob, "Bob", "room1"))

	// Given Alice already exited explicitly
	req.NoError(coord.Exit(ctx, alice))

	// When the transport close fires disconnect twice
	coord.Disconnect(ctx, alice)
	coord.Disconnect(ctx, alice)

	// Then Bob's entry is untouched and nothing went negative
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Equal([]string{"Bob"}, memberNames(roster))
}

func TestCoordinator_Rejoin_Same_Room_Is_NoOp(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()
	session := NewSession()

	// Given a user already in room1
	req.NoError(coord.Join(ctx, session, "Alice", "room1"))

	// When they join room1 again
	req.NoError(coord.Join(ctx, session, "Alice", "room1"))

	// Then no duplicate roster entry appears
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Equal([]string{"Alice"}, memberNames(roster))
}

func TestCoordinator_Join_Migrates_Between_Rooms(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()
	session := NewSession()

	// Given a user in roomA
	req.NoError(coord.Join(ctx, session, "Alice", "roomA"))

	// When they join roomB without an explicit exit
	req.NoError(coord.Join(ctx, session, "Alice", "roomB"))

	// Then roomA is cleaned up before roomB gains the entry
	rosterA, err := store.Roster(ctx, "roomA")
	req.NoError(err)
	req.Empty(rosterA)

	rosterB, err := store.Roster(ctx, "roomB")
	req.NoError(err)
	req.Equal([]string{"Alice"}, memberNames(rosterB))

	room, _ := session.roomState()
	req.Equal("roomB", room)
}

func TestCoordinator_Duplicate_Nicknames_Remove_By_Handle(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	first := NewSession()
	second := NewSession()

	// Given the same display name on two connections
	req.NoError(coord.Join(ctx, first, "Alice", "room1"))
	req.NoError(coord.Join(ctx, second, "Alice", "room1"))

	// When the second connection exits
	req.NoError(coord.Exit(ctx, second))

	// Then exactly the second entry is removed
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Len(roster, 1)
	req.Equal(first.Handle(), roster[0].Handle)
}

func TestCoordinator_Concurrent_Joins_Lose_No_Update(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	const joiners = 32

	// When many connections join the same room at once
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := NewSession()
			require.NoError(t, coord.Join(ctx, session, fmt.Sprintf("user-%d", n), "room1"))
			drainEvents(session)
		}(i)
	}
	wg.Wait()

	// Then every join survived the interleaved read-modify-writes
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Len(roster, joiners)
}

func TestCoordinator_Concurrent_Join_And_Exit_Stay_Consistent(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	const pairs = 16

	// When half the sessions churn join+exit while the rest stay
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			session := NewSession()
			require.NoError(t, coord.Join(ctx, session, fmt.Sprintf("stay-%d", n), "room1"))
		}(i)
		go func(n int) {
			defer wg.Done()
			session := NewSession()
			require.NoError(t, coord.Join(ctx, session, fmt.Sprintf("churn-%d", n), "room1"))
			require.NoError(t, coord.Exit(ctx, session))
		}(i)
	}
	wg.Wait()

	// Then only the staying sessions remain
	roster, err := store.Roster(ctx, "room1")
	req.NoError(err)
	req.Len(roster, pairs)
}

func TestCoordinator_BroadcastRoomUsers_Empty_Room(t *testing.T) {
	req := require.New(t)
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	// Resyncing a room nobody ever joined must not fail
	req.NoError(coord.BroadcastRoomUsers(ctx, "ghost-room"))
}

func TestCoordinator_BroadcastRoomUsers_Resyncs_Members(t *testing.T) {
	req := require.New(t)
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	session := NewSession()

	req.NoError(coord.Join(ctx, session, "Alice", "room1"))
	drainEvents(session)

	// When a client requests a resync
	req.NoError(coord.BroadcastRoomUsers(ctx, "room1"))

	// Then the room receives the roster and count with no mutation
	req.Equal([]string{"Alice"}, decodeUserList(t, nextEvent(t, session)))
	req.Equal(1, decodeUserCount(t, nextEvent(t, session)))
}

func TestCoordinator_SendToIdentity_Offline_Is_Silent(t *testing.T) {
	req := require.New(t)
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()

	// When delivering to an identity that never logged in
	err := coord.SendToIdentity(ctx, "nobody", protocol.EventDM, protocol.DirectMessage{Content: "hi"})

	// Then nothing is delivered and no fault is raised
	req.NoError(err)
}

func TestCoordinator_Login_Overwrites_Latest_Connection(t *testing.T) {
	req := require.New(t)
	coord, store := newTestCoordinator(t)
	ctx := context.Background()

	first := NewSession()
	second := NewSession()

	// Given two logins for the same identity
	req.NoError(coord.Login(ctx, first, "u1"))
	req.NoError(coord.Login(ctx, second, "u1"))

	// Then the latest connection wins
	handle, err := store.Connection(ctx, "u1")
	req.NoError(err)
	req.Equal(second.Handle(), handle)
}

func memberNames(roster []presence.Member) []string {
	names := make([]string, 0, len(roster))
	for _, m := range roster {
		names = append(names, m.Name)
	}
	return names
}
