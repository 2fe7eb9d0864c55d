package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/plazalabs/plaza/internal/config"
)

const (
	rosterPrefix     = "roster:"
	connectionPrefix = "conn:"
)

// BadgerStore is a Badger-backed Store. Every entry carries the configured
// TTL, so presence state survives a process restart within a bounded window
// and stale state ages out on its own.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore opens the presence cache at the configured path.
func NewBadgerStore(cfg config.PresenceConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open presence cache: %w", err)
	}
	return &BadgerStore{db: db, ttl: cfg.TTL}, nil
}

// NewInMemoryStore opens a Badger instance with no backing files. Used by
// tests and single-node setups that do not need restart survival.
func NewInMemoryStore(ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open presence cache: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Roster returns the ordered member list for a room.
func (s *BadgerStore) Roster(ctx context.Context, room string) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var members []Member
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(rosterPrefix + room))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &members)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []Member{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster %q: %w", room, err)
	}
	return members, nil
}

// SetRoster replaces the member list for a room.
func (s *BadgerStore) SetRoster(ctx context.Context, room string, members []Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if members == nil {
		members = []Member{}
	}

	data, err := json.Marshal(members)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(rosterPrefix+room), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("write roster %q: %w", room, err)
	}
	return nil
}

// Connection returns the latest connection handle for an identity.
func (s *BadgerStore) Connection(ctx context.Context, identity string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var handle string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(connectionPrefix + identity))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			handle = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read connection %q: %w", identity, err)
	}
	return handle, nil
}

// SetConnection overwrites the latest connection handle for an identity.
func (s *BadgerStore) SetConnection(ctx context.Context, identity, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(connectionPrefix+identity), []byte(handle)).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("write connection %q: %w", identity, err)
	}
	return nil
}
