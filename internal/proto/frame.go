package proto

import (
	"encoding/json"
	"time"
)

// Frame type values shared by inbound and outbound schemas.
const (
	TypeText   = "text"
	TypeFile   = "file"
	TypeSystem = "system"
)

// Inbound is a client -> coordinator frame.
// Text frames carry the message body in Content; file frames carry the
// resolved access URL plus file metadata.
type Inbound struct {
	Type     string  `json:"type"`
	Content  string  `json:"content"`
	FileName *string `json:"file_name,omitempty"`
	Size     *int64  `json:"size,omitempty"`
}

// DecodeInbound parses a raw frame payload. Unparseable payloads and frames
// without a recognized type degrade to a plain text frame carrying the raw
// payload, so the relay stays permissive.
func DecodeInbound(raw []byte) Inbound {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{Type: TypeText, Content: string(raw)}
	}
	if in.Type != TypeText && in.Type != TypeFile {
		return Inbound{Type: TypeText, Content: string(raw)}
	}
	return in
}

// SystemFrame is sent to a connection right after it joins a room.
// It carries the room's durable identity.
type SystemFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// MessageRecord is a persisted message as delivered to clients, both over
// the live stream and from the history endpoint.
type MessageRecord struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	FileName  *string   `json:"file_name,omitempty"`
	Size      *int64    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomInfo is the durable room row as served by GET /api/rooms/:id.
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResponse is the body of POST /api/upload.
type UploadResponse struct {
	Success     bool   `json:"success"`
	URL         string `json:"url,omitempty"`
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"type,omitempty"`
	Error       string `json:"error,omitempty"`
}
