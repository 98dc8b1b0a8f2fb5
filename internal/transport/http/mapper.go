package http

import (
	"chatrelay/internal/core"
	"chatrelay/internal/proto"
	"chatrelay/internal/store"
)

// outboundFromMessage maps a domain message to its wire shape. System
// messages use the join frame schema; everything else goes out as a
// persisted record.
func outboundFromMessage(m *core.Message) any {
	if m.Type == core.MessageSystem {
		return proto.SystemFrame{
			Type:    proto.TypeSystem,
			RoomID:  m.RoomID,
			Message: m.Content,
		}
	}
	return proto.MessageRecord{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Type:      string(m.Type),
		Content:   m.Content,
		FileName:  m.FileName,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}
}

func recordFromStored(m *store.Message) proto.MessageRecord {
	return proto.MessageRecord{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Type:      m.Type,
		Content:   m.Content,
		FileName:  m.FileName,
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}
}
