package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plazalabs/plaza/internal/protocol"
	"github.com/plazalabs/plaza/internal/storage"
)

// Delivery is the contract the presence coordinator exposes to the chat
// services: room fan-out and point-to-point sends to an identity's latest
// connection.
type Delivery interface {
	BroadcastToRoom(room string, event protocol.EventName, payload interface{}) error
	SendToIdentity(ctx context.Context, identity string, event protocol.EventName, payload interface{}) error
}

// Service persists room and direct messages, then hands them to the
// delivery layer. Persistence always completes before fan-out.
type Service struct {
	store    storage.Store
	delivery Delivery
	log      *slog.Logger
}

// NewService constructs a chat service.
func NewService(store storage.Store, delivery Delivery, log *slog.Logger) *Service {
	return &Service{store: store, delivery: delivery, log: log}
}

// SendRoomMessage stores a room chat message and broadcasts the persisted
// record to the room.
func (s *Service) SendRoomMessage(ctx context.Context, room, senderID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty message")
	}

	msg := storage.Message{
		ID:        uuid.NewString(),
		Room:      room,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRoomMessage(ctx, &msg); err != nil {
		return fmt.Errorf("persist room message: %w", err)
	}

	record := protocol.ChatMessage{
		ID:         msg.ID,
		Room:       msg.Room,
		SenderID:   msg.SenderID,
		SenderName: s.resolveDisplayName(ctx, senderID),
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
	return s.delivery.BroadcastToRoom(room, protocol.EventMessage, record)
}

// SendDirectMessage stores a direct message and delivers it to the
// receiver's latest connection. An offline receiver still gets the message
// persisted; delivery is a silent no-op.
func (s *Service) SendDirectMessage(ctx context.Context, senderID, receiverID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty message")
	}

	dm := storage.DirectMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateDirectMessage(ctx, &dm); err != nil {
		return fmt.Errorf("persist direct message: %w", err)
	}

	record := protocol.DirectMessage{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
		CreatedAt:  dm.CreatedAt,
	}
	if err := s.delivery.SendToIdentity(ctx, receiverID, protocol.EventDM, record); err != nil {
		return err
	}
	// Echo to the sender so every open client of theirs stays in sync.
	return s.delivery.SendToIdentity(ctx, senderID, protocol.EventDM, record)
}

func (s *Service) resolveDisplayName(ctx context.Context, userID string) string {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("resolve display name", "user", userID, "error", err)
		}
		return userID
	}
	if user.Nickname != "" {
		return user.Nickname
	}
	return user.Username
}
