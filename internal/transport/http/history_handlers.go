package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/internal/proto"
	"chatrelay/internal/store"
)

// HistoryHandlers serves the out-of-band history query. Clients call it
// directly after learning the room identity; it bypasses the coordinator.
type HistoryHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(st store.Store, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{store: st, log: logger}
}

// GetRoom returns the durable room row.
// GET /api/rooms/:id
func (h *HistoryHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	c.JSON(stdhttp.StatusOK, proto.RoomInfo{
		ID:        room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
	})
}

// ListMessages returns all persisted messages for a room, ordered by
// created_at ascending.
// GET /api/rooms/:id/messages
func (h *HistoryHandlers) ListMessages(c *gin.Context) {
	roomID := c.Param("id")

	messages, err := h.store.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list messages")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.MessageRecord, 0, len(messages))
	for _, msg := range messages {
		response = append(response, recordFromStored(msg))
	}

	h.log.Debug().Str("room_id", roomID).Int("count", len(response)).Msg("history served")
	c.JSON(stdhttp.StatusOK, response)
}
