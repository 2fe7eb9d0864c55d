package client

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/plazalabs/plaza/internal/protocol"
)

// Conn wraps the gateway socket and pumps inbound envelopes onto a channel
// the bubbletea loop can wait on.
type Conn struct {
	ws       *websocket.Conn
	incoming chan protocol.Envelope
	closed   chan error
}

// Dial connects to the gateway and starts the read pump.
func Dial(url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	conn := &Conn{
		ws:       ws,
		incoming: make(chan protocol.Envelope, 32),
		closed:   make(chan error, 1),
	}
	go conn.readPump()
	return conn, nil
}

func (c *Conn) readPump() {
	defer close(c.incoming)
	for {
		var env protocol.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.closed <- err
			return
		}
		c.incoming <- env
	}
}

// Emit sends an event to the gateway.
func (c *Conn) Emit(event protocol.EventName, payload interface{}) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	return c.ws.WriteJSON(env)
}

// EmitRaw sends an event whose data is already JSON, for payloads that are
// bare values rather than objects.
func (c *Conn) EmitRaw(event protocol.EventName, data json.RawMessage) error {
	return c.ws.WriteJSON(protocol.Envelope{Event: event, Data: data})
}

// Close tears the socket down.
func (c *Conn) Close() error {
	return c.ws.Close()
}
