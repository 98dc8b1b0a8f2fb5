// Smoke check against a running relay: join a room, send one message and
// verify the persisted echo comes back with a durable id.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"chatrelay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?roomName="+*room, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var sys proto.SystemFrame
	if err := wsjson.Read(ctx, conn, &sys); err != nil {
		return fmt.Errorf("read system frame: %w", err)
	}
	if sys.Type != proto.TypeSystem || sys.RoomID == "" {
		return fmt.Errorf("unexpected first frame: %+v", sys)
	}
	fmt.Printf("Joined room %q, id=%s\n", *room, sys.RoomID)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeText, Content: *text}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var rec proto.MessageRecord
		if err := wsjson.Read(ctx, conn, &rec); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if rec.Content != *text {
			// Someone else is chatting in this room; keep waiting for the echo.
			continue
		}
		if rec.ID == 0 {
			return fmt.Errorf("echo carries no durable id: %+v", rec)
		}
		fmt.Printf("Echo received: id=%d created_at=%s\n", rec.ID, rec.CreatedAt.Format(time.RFC3339))
		return nil
	}
}
