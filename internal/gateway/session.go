package gateway

import (
	"sync"

	"github.com/google/uuid"

	"github.com/plazalabs/plaza/internal/protocol"
)

// Session tracks per-connection state: the identity occupying the
// connection and the single room it currently occupies.
type Session struct {
	handle string
	sendCh chan protocol.Envelope

	mu       sync.Mutex
	identity string
	nickname string
	room     string

	closeOnce sync.Once
}

// NewSession allocates a session with a fresh connection handle.
func NewSession() *Session {
	return &Session{
		handle: uuid.NewString(),
		sendCh: make(chan protocol.Envelope, 64),
	}
}

// Handle returns the connection handle identifying this session.
func (s *Session) Handle() string { return s.handle }

func (s *Session) setIdentity(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
}

// Identity returns the identity registered by userLogin, if any.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) setRoom(room, nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
	s.nickname = nickname
}

func (s *Session) clearRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = ""
	s.nickname = ""
}

// roomState returns the current room and nickname as one snapshot.
func (s *Session) roomState() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.nickname
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.sendCh)
	})
}
