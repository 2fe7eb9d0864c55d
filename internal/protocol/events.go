package protocol

import (
	"encoding/json"
	"time"
)

// EventName enumerates every event exchanged over the socket. The set is
// closed: envelopes carrying any other name are dropped at the boundary.
type EventName string

// Client-to-server events.
const (
	EventUserLogin       EventName = "userLogin"
	EventRoomJoin        EventName = "roomJoin"
	EventRoomExit        EventName = "roomExit"
	EventGetRoomUserList EventName = "getRoomUserList"
	EventMessage         EventName = "message"
	EventDM              EventName = "dm"
)

// Server-to-client events. EventMessage and EventDM flow both ways.
const (
	EventUserJoin  EventName = "userJoin"
	EventUserExit  EventName = "userExit"
	EventUserList  EventName = "userList"
	EventUserCount EventName = "userCount"
)

// Envelope wraps every event sent over the wire.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserLoginPayload registers the connection as the identity's latest handle.
// Token is optional; when present it must verify and its subject wins over ID.
type UserLoginPayload struct {
	ID    string `json:"id" validate:"required"`
	Token string `json:"token,omitempty"`
}

// RoomJoinPayload joins a room under a display nickname.
type RoomJoinPayload struct {
	Nickname string `json:"nickname" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

// MessagePayload carries an inbound room chat message.
type MessagePayload struct {
	Room    string `json:"room" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// DMPayload carries an inbound direct message.
type DMPayload struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// UserListPayload broadcasts the full roster of a room.
type UserListPayload struct {
	UserList []string `json:"userList"`
}

// UserCountPayload broadcasts the roster length of a room.
type UserCountPayload struct {
	UserCount int `json:"userCount"`
}

// ChatMessage is the room chat record fanned out after persistence.
type ChatMessage struct {
	ID         string    `json:"id"`
	Room       string    `json:"room"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DirectMessage is the record delivered point-to-point to the receiver's
// latest connection.
type DirectMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewEnvelope marshals payload into an envelope for the given event.
func NewEnvelope(event EventName, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
