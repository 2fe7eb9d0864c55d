package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plazalabs/plaza/internal/protocol"
)

func TestHub_Broadcast_Reaches_Only_Room_Subscribers(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	inRoom := make(chan protocol.Envelope, 1)
	elsewhere := make(chan protocol.Envelope, 1)
	hub.Register("room1", "h1", inRoom)
	hub.Register("room2", "h2", elsewhere)

	// When an event is broadcast to room1
	hub.Broadcast("room1", protocol.Envelope{Event: protocol.EventUserCount})

	// Then only the room1 subscriber receives it
	req.Len(inRoom, 1)
	req.Empty(elsewhere)
}

func TestHub_Broadcast_Never_Blocks_On_Full_Subscriber(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	full := make(chan protocol.Envelope, 1)
	full <- protocol.Envelope{Event: protocol.EventUserJoin}
	hub.Register("room1", "h1", full)

	// When broadcasting to a subscriber with no buffer space
	hub.Broadcast("room1", protocol.Envelope{Event: protocol.EventUserCount})

	// Then the event is dropped instead of blocking
	req.Len(full, 1)
}

func TestHub_Unregister_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	ch := make(chan protocol.Envelope, 1)
	hub.Register("room1", "h1", ch)
	hub.Unregister("room1", "h1")

	hub.Broadcast("room1", protocol.Envelope{Event: protocol.EventUserCount})

	req.Empty(ch)
}

func TestHub_Send_Targets_One_Handle(t *testing.T) {
	req := require.New(t)
	hub := NewHub()

	ch := make(chan protocol.Envelope, 1)
	hub.Track("h1", ch)

	// When sending point-to-point
	delivered := hub.Send("h1", protocol.Envelope{Event: protocol.EventDM})

	// Then the tracked channel receives it
	req.True(delivered)
	req.Len(ch, 1)

	// And a forgotten or unknown handle is a no-op
	hub.Forget("h1")
	req.False(hub.Send("h1", protocol.Envelope{Event: protocol.EventDM}))
	req.False(hub.Send("ghost", protocol.Envelope{Event: protocol.EventDM}))
}
