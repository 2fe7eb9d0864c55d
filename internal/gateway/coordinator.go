package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/plazalabs/plaza/internal/presence"
	"github.com/plazalabs/plaza/internal/protocol"
)

// Coordinator owns the join/leave/disconnect state machine. Every roster
// mutation goes through here, holds the per-room lock across the
// read-modify-write against the presence store, and is followed by a
// broadcast of the new roster and count to the affected room.
type Coordinator struct {
	store        presence.Store
	hub          *Hub
	log          *slog.Logger
	storeTimeout time.Duration

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// NewCoordinator wires the coordinator to its presence store and hub.
func NewCoordinator(store presence.Store, hub *Hub, storeTimeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		store:        store,
		hub:          hub,
		log:          log,
		storeTimeout: storeTimeout,
		roomLocks:    make(map[string]*sync.Mutex),
	}
}

// Login records the connection as the identity's latest handle. Idempotent,
// no broadcast; a later login from another connection simply overwrites.
func (c *Coordinator) Login(ctx context.Context, s *Session, identity string) error {
	s.setIdentity(identity)

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.store.SetConnection(storeCtx, identity, s.Handle()); err != nil {
		return fmt.Errorf("register connection: %w", err)
	}
	return nil
}

// Join places the session in a room under the given nickname. Re-joining the
// current room is a no-op; joining while in a different room runs the full
// exit flow for the old room first.
func (c *Coordinator) Join(ctx context.Context, s *Session, nickname, room string) error {
	current, _ := s.roomState()
	if current == room {
		return nil
	}
	if current != "" {
		if err := c.leaveRoom(ctx, s); err != nil {
			return err
		}
	}

	lock := c.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	roster, err := c.store.Roster(storeCtx, room)
	if err != nil {
		return fmt.Errorf("join %q: %w", room, err)
	}
	roster = append(roster, presence.Member{Handle: s.Handle(), Name: nickname})
	if err := c.store.SetRoster(storeCtx, room, roster); err != nil {
		return fmt.Errorf("join %q: %w", room, err)
	}

	c.hub.Register(room, s.Handle(), s.sendCh)
	s.setRoom(room, nickname)

	c.broadcast(room, protocol.EventUserJoin, fmt.Sprintf("%s has joined %s.", nickname, room))
	c.broadcastRoster(room, roster)
	return nil
}

// Exit removes the session from its current room. A session in no room is a
// no-op.
func (c *Coordinator) Exit(ctx context.Context, s *Session) error {
	return c.leaveRoom(ctx, s)
}

// Disconnect runs the exit flow on transport teardown. Safe to call after an
// explicit exit and safe to call twice: the session's room is cleared on the
// first removal, so later calls find nothing to do.
func (c *Coordinator) Disconnect(ctx context.Context, s *Session) {
	if err := c.leaveRoom(ctx, s); err != nil {
		c.log.Warn("disconnect cleanup failed", "handle", s.Handle(), "error", err)
	}
}

func (c *Coordinator) leaveRoom(ctx context.Context, s *Session) error {
	room, nickname := s.roomState()
	if room == "" {
		return nil
	}

	lock := c.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	roster, err := c.store.Roster(storeCtx, room)
	if err != nil {
		return fmt.Errorf("leave %q: %w", room, err)
	}

	handle := s.Handle()
	idx := slices.IndexFunc(roster, func(m presence.Member) bool {
		return m.Handle == handle
	})
	if idx < 0 {
		// Roster already inconsistent; tolerated, nothing broadcast.
		c.log.Warn("roster entry missing on leave", "room", room, "handle", handle)
		c.hub.Unregister(room, handle)
		s.clearRoom()
		return nil
	}

	roster = slices.Delete(roster, idx, idx+1)
	if err := c.store.SetRoster(storeCtx, room, roster); err != nil {
		return fmt.Errorf("leave %q: %w", room, err)
	}

	// The leaver still receives the exit notice but not the refreshed roster.
	c.broadcast(room, protocol.EventUserExit, fmt.Sprintf("%s has left the room.", nickname))
	c.hub.Unregister(room, handle)
	s.clearRoom()
	c.broadcastRoster(room, roster)
	return nil
}

// BroadcastRoomUsers re-sends the current roster and count to the whole
// room. Read-only; used by clients to repair a stale local view.
func (c *Coordinator) BroadcastRoomUsers(ctx context.Context, room string) error {
	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	roster, err := c.store.Roster(storeCtx, room)
	if err != nil {
		return fmt.Errorf("room users %q: %w", room, err)
	}
	c.broadcastRoster(room, roster)
	return nil
}

// BroadcastToRoom delivers an event to every connection in the room. Part of
// the contract consumed by the chat services.
func (c *Coordinator) BroadcastToRoom(room string, event protocol.EventName, payload interface{}) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	c.hub.Broadcast(room, env)
	return nil
}

// SendToIdentity delivers an event to the identity's most recent connection.
// An identity with no registered connection is a silent no-op.
func (c *Coordinator) SendToIdentity(ctx context.Context, identity string, event protocol.EventName, payload interface{}) error {
	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	handle, err := c.store.Connection(storeCtx, identity)
	if err != nil {
		if errors.Is(err, presence.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("resolve connection %q: %w", identity, err)
	}

	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	if !c.hub.Send(handle, env) {
		c.log.Debug("dropping delivery to stale handle", "identity", identity, "handle", handle)
	}
	return nil
}

func (c *Coordinator) broadcastRoster(room string, roster []presence.Member) {
	names := lo.Map(roster, func(m presence.Member, _ int) string { return m.Name })
	c.broadcast(room, protocol.EventUserList, protocol.UserListPayload{UserList: names})
	c.broadcast(room, protocol.EventUserCount, protocol.UserCountPayload{UserCount: len(names)})
}

func (c *Coordinator) broadcast(room string, event protocol.EventName, payload interface{}) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		c.log.Error("encode broadcast", "room", room, "event", string(event), "error", err)
		return
	}
	c.hub.Broadcast(room, env)
}

func (c *Coordinator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.storeTimeout)
}

func (c *Coordinator) roomLock(room string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.roomLocks[room]
	if !ok {
		lock = &sync.Mutex{}
		c.roomLocks[room] = lock
	}
	return lock
}
