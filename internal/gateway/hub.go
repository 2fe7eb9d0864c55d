package gateway

import (
	"sync"

	"github.com/plazalabs/plaza/internal/protocol"
)

// Hub tracks subscriptions and dispatches envelopes per room, plus
// point-to-point delivery keyed by connection handle. Sends never block: a
// subscriber whose buffer is full loses the event.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]chan protocol.Envelope
	direct map[string]chan protocol.Envelope
}

// NewHub initializes an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]chan protocol.Envelope),
		direct: make(map[string]chan protocol.Envelope),
	}
}

// Track registers the outbound channel of a connection for point-to-point
// delivery. Called once when the connection is accepted.
func (h *Hub) Track(handle string, ch chan protocol.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.direct[handle] = ch
}

// Forget drops the connection from point-to-point delivery.
func (h *Hub) Forget(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.direct, handle)
}

// Register subscribes the connection to the provided room.
func (h *Hub) Register(room, handle string, ch chan protocol.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]chan protocol.Envelope)
	}
	h.rooms[room][handle] = ch
}

// Unregister removes the subscriber if present.
func (h *Hub) Unregister(room, handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.rooms[room]; ok {
		delete(subscribers, handle)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast pushes the envelope to every subscriber of the room.
func (h *Hub) Broadcast(room string, env protocol.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.rooms[room] {
		select {
		case ch <- env:
		default:
		}
	}
}

// Send pushes the envelope to a single connection. It reports whether a
// live channel was registered under the handle; a stale handle is a no-op.
func (h *Hub) Send(handle string, env protocol.Envelope) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.direct[handle]
	if !ok {
		return false
	}
	select {
	case ch <- env:
	default:
	}
	return true
}
