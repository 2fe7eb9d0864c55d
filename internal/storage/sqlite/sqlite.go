package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/plazalabs/plaza/internal/config"
	"github.com/plazalabs/plaza/internal/storage"
)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db *gorm.DB
}

type userModel struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex"`
	Nickname  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type messageModel struct {
	ID        string `gorm:"primaryKey"`
	Room      string `gorm:"index"`
	SenderID  string `gorm:"index"`
	Content   string
	CreatedAt time.Time
}

type directMessageModel struct {
	ID         string `gorm:"primaryKey"`
	SenderID   string `gorm:"index"`
	ReceiverID string `gorm:"index"`
	Content    string
	CreatedAt  time.Time
}

// NewStore opens a SQLite database at the provided path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userModel{}, &messageModel{}, &directMessageModel{})
}

// CreateUser stores a new user record.
func (s *Store) CreateUser(ctx context.Context, user *storage.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	model := userModel{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Password:  user.Password,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return toUser(model), nil
}

// GetUserByID retrieves a user by primary key. The gateway uses it to
// resolve display names for persisted messages.
func (s *Store) GetUserByID(ctx context.Context, id string) (*storage.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return toUser(model), nil
}

// CreateRoomMessage stores a room chat message.
func (s *Store) CreateRoomMessage(ctx context.Context, msg *storage.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	model := messageModel{
		ID:        msg.ID,
		Room:      msg.Room,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListRoomMessages returns the most recent messages for a room in
// chronological order.
func (s *Store) ListRoomMessages(ctx context.Context, room string, limit int) ([]storage.Message, error) {
	var models []messageModel
	query := s.db.WithContext(ctx).Where("room = ?", room).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]storage.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		messages = append(messages, storage.Message{
			ID:        m.ID,
			Room:      m.Room,
			SenderID:  m.SenderID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return messages, nil
}

// CreateDirectMessage stores a direct message.
func (s *Store) CreateDirectMessage(ctx context.Context, dm *storage.DirectMessage) error {
	if dm == nil {
		return errors.New("nil direct message")
	}
	model := directMessageModel{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
		CreatedAt:  dm.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListDirectMessages returns the most recent messages exchanged between two
// users in chronological order.
func (s *Store) ListDirectMessages(ctx context.Context, firstID, secondID string, limit int) ([]storage.DirectMessage, error) {
	var models []directMessageModel
	query := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			firstID, secondID, secondID, firstID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	dms := make([]storage.DirectMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		dms = append(dms, storage.DirectMessage{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		})
	}
	return dms, nil
}

func toUser(model userModel) *storage.User {
	return &storage.User{
		ID:        model.ID,
		Username:  model.Username,
		Nickname:  model.Nickname,
		Password:  model.Password,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}
