package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("storage: not found")

// User represents a persisted account record.
type User struct {
	ID        string
	Username  string
	Nickname  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a persisted room chat message.
type Message struct {
	ID        string
	Room      string
	SenderID  string
	Content   string
	CreatedAt time.Time
}

// DirectMessage represents a persisted point-to-point message.
type DirectMessage struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
}

// Store defines the persistence operations the gateway and chat services
// depend on. Message durability lives here; the presence coordinator never
// writes through this interface.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	CreateRoomMessage(ctx context.Context, msg *Message) error
	ListRoomMessages(ctx context.Context, room string, limit int) ([]Message, error)

	CreateDirectMessage(ctx context.Context, dm *DirectMessage) error
	ListDirectMessages(ctx context.Context, firstID, secondID string, limit int) ([]DirectMessage, error)
}
