package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskhub-io/taskhub/internal/app/domain/message"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

const defaultListLimit = 100

// Service manages room messages. Rooms are free-form identifiers; there is no
// membership model, only sender validation.
type Service struct {
	users storage.UserStore
	store storage.MessageStore
	log   *logger.Logger
}

// New constructs a messages service.
func New(users storage.UserStore, store storage.MessageStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("messages")
	}
	return &Service{users: users, store: store, log: log}
}

// Send appends a message to a room.
func (s *Service) Send(ctx context.Context, roomID, senderID, text string) (message.Message, error) {
	roomID = strings.TrimSpace(roomID)
	text = strings.TrimSpace(text)
	if roomID == "" || text == "" {
		return message.Message{}, fmt.Errorf("room_id and text are required")
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, senderID); err != nil {
			return message.Message{}, fmt.Errorf("sender validation failed: %w", err)
		}
	}

	created, err := s.store.CreateMessage(ctx, message.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
	})
	if err != nil {
		return message.Message{}, err
	}
	s.log.WithField("room_id", roomID).
		WithField("sender_id", senderID).
		Info("message sent")
	return created, nil
}

// List returns the newest messages in the room, oldest first. A non-positive
// limit applies the default.
func (s *Service) List(ctx context.Context, roomID string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListMessages(ctx, strings.TrimSpace(roomID), limit)
}
