package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/proto"
	"chatrelay/internal/store"
)

type eventKind int

const (
	eventAccept eventKind = iota
	eventIngest
	eventRemove
)

type event struct {
	kind eventKind
	conn *Conn
	raw  []byte
}

// Room is the coordinator for one room identity. All state below is owned
// by the run goroutine; external callers only enqueue events into the
// mailbox, which serializes accept/ingest/remove.
type Room struct {
	id   string
	name string

	store       store.Store
	log         *zerolog.Logger
	idleTimeout time.Duration
	onEvict     func(*Room)

	// stateMu makes stopping and enqueueing mutually exclusive: once halted
	// is set no event enters the mailbox, and halted is only set after the
	// mailbox was seen empty under the same lock. An enqueue that returned
	// true is therefore always processed.
	stateMu sync.RWMutex
	halted  bool
	mailbox chan event
	done    chan struct{}

	// run-goroutine state
	clients   map[*Conn]struct{}
	lastStamp time.Time
}

func newRoom(id, name string, st store.Store, logger *zerolog.Logger, idleTimeout time.Duration, onEvict func(*Room)) *Room {
	return &Room{
		id:          id,
		name:        name,
		store:       st,
		log:         logger,
		idleTimeout: idleTimeout,
		onEvict:     onEvict,
		mailbox:     make(chan event, 64),
		done:        make(chan struct{}),
		clients:     make(map[*Conn]struct{}),
	}
}

// ID returns the room's durable identity.
func (r *Room) ID() string {
	return r.id
}

// Accept registers a connection. Returns false if the coordinator has
// already stopped; the caller should re-resolve the room.
func (r *Room) Accept(c *Conn) bool {
	return r.enqueue(event{kind: eventAccept, conn: c})
}

// Ingest forwards a raw inbound frame from the given connection.
func (r *Room) Ingest(c *Conn, raw []byte) bool {
	return r.enqueue(event{kind: eventIngest, conn: c, raw: raw})
}

// Remove unregisters a connection. Safe to call more than once.
func (r *Room) Remove(c *Conn) bool {
	return r.enqueue(event{kind: eventRemove, conn: c})
}

func (r *Room) enqueue(ev event) bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	if r.halted {
		return false
	}
	select {
	case r.mailbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) stopped() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.halted
}

// tryStop halts intake unless an event slipped into the mailbox since the
// run loop observed it empty. Returns false when the eviction must be
// retried later.
func (r *Room) tryStop() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if len(r.mailbox) != 0 {
		return false
	}
	r.halted = true
	close(r.done)
	return true
}

// stop halts intake unconditionally. Used on hub shutdown, where queued
// events may be abandoned.
func (r *Room) stop() {
	r.stateMu.Lock()
	r.halted = true
	close(r.done)
	r.stateMu.Unlock()
}

func (r *Room) run(ctx context.Context) {
	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case ev := <-r.mailbox:
			switch ev.kind {
			case eventAccept:
				r.handleAccept(ev.conn)
			case eventIngest:
				r.handleIngest(ctx, ev.raw)
			case eventRemove:
				r.handleRemove(ev.conn)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)
		case <-idle.C:
			if len(r.clients) == 0 && len(r.mailbox) == 0 && r.tryStop() {
				if r.onEvict != nil {
					r.onEvict(r)
				}
				r.log.Debug().Str("room", r.name).Msg("room coordinator evicted")
				return
			}
			idle.Reset(r.idleTimeout)
		case <-ctx.Done():
			r.stop()
			return
		}
	}
}

func (r *Room) handleAccept(c *Conn) {
	r.clients[c] = struct{}{}

	// The welcome frame carries the durable room identity; it is delivered
	// to the new connection only and never persisted.
	r.deliver(c, &Message{
		RoomID:    r.id,
		Type:      MessageSystem,
		Content:   fmt.Sprintf("joined room %s", r.name),
		CreatedAt: time.Now().UTC(),
	})

	r.log.Debug().Str("room", r.name).Str("conn_id", c.ID).Int("clients", len(r.clients)).Msg("connection accepted")
}

func (r *Room) handleIngest(ctx context.Context, raw []byte) {
	in := proto.DecodeInbound(raw)

	now := time.Now().UTC()
	if now.Before(r.lastStamp) {
		now = r.lastStamp
	}

	// room_id always comes from the coordinator, never from the frame.
	stored, err := r.store.InsertMessage(ctx, &store.Message{
		RoomID:    r.id,
		Type:      in.Type,
		Content:   in.Content,
		FileName:  in.FileName,
		Size:      in.Size,
		CreatedAt: now,
	})
	if err != nil {
		// Not broadcast, not retried: the message was never durable, so it
		// must not reach the live stream either.
		r.log.Error().Err(err).Str("room", r.name).Msg("persist message failed, dropping")
		return
	}

	if stored.CreatedAt.After(r.lastStamp) {
		r.lastStamp = stored.CreatedAt
	}

	msg := fromStoreMessage(stored)
	for c := range r.clients {
		r.deliver(c, msg)
	}
}

func (r *Room) handleRemove(c *Conn) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	r.log.Debug().Str("room", r.name).Str("conn_id", c.ID).Int("clients", len(r.clients)).Msg("connection removed")
}

func (r *Room) deliver(c *Conn, msg *Message) {
	select {
	case c.Outbox <- msg:
	default:
		// Slow or half-closed consumer loses this delivery only.
		r.log.Debug().Str("room", r.name).Str("conn_id", c.ID).Msg("outbox full, dropping delivery")
	}
}
