package core

import (
	"time"

	"chatrelay/internal/store"
)

// MessageType discriminates relay messages.
type MessageType string

const (
	// MessageText is a plain chat message.
	MessageText MessageType = "text"
	// MessageFile references an uploaded blob by URL.
	MessageFile MessageType = "file"
	// MessageSystem is coordinator-originated and never persisted.
	MessageSystem MessageType = "system"
)

// Message is the domain model for a relayed message. Persisted messages
// carry the durable ID assigned by the store; system messages have ID zero.
type Message struct {
	ID        int64
	RoomID    string
	Type      MessageType
	Content   string
	FileName  *string
	Size      *int64
	CreatedAt time.Time
}

func fromStoreMessage(m *store.Message) *Message {
	return &Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Type:      MessageType(m.Type),
		Content:   m.Content,
		FileName:  m.FileName,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}
}
