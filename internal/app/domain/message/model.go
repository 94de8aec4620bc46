package message

import "time"

// Message is a chat line posted to a room.
type Message struct {
	ID       string
	RoomID   string
	SenderID string
	Text     string
	SentAt   time.Time
}
