package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/internal/core"
	"chatrelay/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to a room
// coordinator: every inbound frame becomes an ingest, every coordinator
// delivery becomes an outbound frame.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: logger}
}

// Handle serves GET /ws?roomName=<name>.
func (h *WSHandler) Handle(c *gin.Context) {
	roomName := c.Query("roomName")
	if roomName == "" {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "roomName query parameter is required (e.g. /ws?roomName=alpha)"})
		return
	}

	room, err := h.hub.Room(c.Request.Context(), roomName)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomName).Msg("resolve room")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewConn(utils.NewID())
	if !room.Accept(client) {
		// The coordinator was evicted between resolution and accept;
		// resolve a fresh one.
		room, err = h.hub.Room(c.Request.Context(), roomName)
		if err != nil || !room.Accept(client) {
			h.log.Warn().Err(err).Str("room", roomName).Msg("failed to join room coordinator")
			return
		}
	}
	defer room.Remove(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, room, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, room *core.Room, client *core.Conn) error {
	for {
		// Frames are forwarded raw; the coordinator owns parsing and its
		// degrade-to-text fallback.
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		room.Ingest(client, data)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	for {
		select {
		case msg := <-client.Outbox:
			if err := wsjson.Write(ctx, conn, outboundFromMessage(msg)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
