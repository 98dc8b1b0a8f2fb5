package store

import (
	"context"
	"time"
)

// Room is a durably identified chat room. The identity is derived from the
// human-chosen name before it reaches the store, so the same name always
// maps to the same row.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Message is a persisted chat message. ID and the stored CreatedAt form the
// durable identity assigned at insert time.
type Message struct {
	ID        int64
	RoomID    string
	Type      string
	Content   string
	FileName  *string
	Size      *int64
	CreatedAt time.Time
}

// Store is the persistence gateway for rooms and messages.
type Store interface {
	// EnsureRoom inserts the room row if it does not exist yet.
	// created_at is set once at first resolution and never mutated.
	EnsureRoom(ctx context.Context, id, name string) error

	// GetRoom retrieves a room by its durable identity.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// InsertMessage appends a message and returns the stored row carrying
	// the durable id and created_at.
	InsertMessage(ctx context.Context, msg *Message) (*Message, error)

	// ListMessages returns all messages for a room ordered by created_at
	// ascending (id ascending as tiebreak).
	ListMessages(ctx context.Context, roomID string) ([]*Message, error)

	// Close closes the underlying database connection.
	Close() error
}
