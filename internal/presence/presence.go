package presence

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing latest-connection entry.
var ErrNotFound = errors.New("presence: not found")

// Member is one roster entry. Entries are keyed by connection handle so
// duplicate display names in the same room stay removable without ambiguity.
type Member struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

// Store holds the shared presence state: per-room ordered rosters and the
// per-identity latest connection handle. Implementations are expected to
// expire entries after a bounded TTL; the coordinator owns all mutations.
type Store interface {
	Close() error

	// Roster returns the ordered member list for a room. A room nobody has
	// joined yields an empty roster, not an error.
	Roster(ctx context.Context, room string) ([]Member, error)
	// SetRoster replaces the member list for a room.
	SetRoster(ctx context.Context, room string, members []Member) error

	// Connection returns the latest connection handle registered for an
	// identity, or ErrNotFound.
	Connection(ctx context.Context, identity string) (string, error)
	// SetConnection overwrites the latest connection handle for an identity.
	SetConnection(ctx context.Context, identity, handle string) error
}
