package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatrelay/internal/store"
)

// roomNamespace fixes the UUIDv5 namespace so a room name resolves to the
// same identity across restarts and processes.
var roomNamespace = uuid.MustParse("8c2f9d4e-5b1a-4c3d-9e7f-2a6b8d0c4e1f")

// Hub owns the registry of live room coordinators. Coordinators are created
// lazily on first resolution of a name and evicted after sitting empty for
// the idle timeout; the durable room row and its history outlive them.
type Hub struct {
	store       store.Store
	log         *zerolog.Logger
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewHub constructs a hub backed by the given store.
func NewHub(st store.Store, logger *zerolog.Logger, idleTimeout time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:       st,
		log:         logger,
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		rooms:       make(map[string]*Room),
	}
}

// Resolve maps a human-chosen room name to its durable identity.
// Deterministic: the same name always yields the same identity.
func (h *Hub) Resolve(name string) string {
	return uuid.NewSHA1(roomNamespace, []byte(name)).String()
}

// Room returns the live coordinator for the named room, starting one if
// needed. The durable room row is ensured before the coordinator accepts
// its first client.
func (h *Hub) Room(ctx context.Context, name string) (*Room, error) {
	h.mu.Lock()
	if r, ok := h.rooms[name]; ok && !r.stopped() {
		h.mu.Unlock()
		return r, nil
	}
	h.mu.Unlock()

	// Ensure the durable row outside the lock so a slow insert for one room
	// never stalls coordinator lookup for the others. The insert is
	// idempotent, concurrent callers for the same name are harmless.
	id := h.Resolve(name)
	if err := h.store.EnsureRoom(ctx, id, name); err != nil {
		return nil, fmt.Errorf("ensure room: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[name]; ok && !r.stopped() {
		// Another caller won the race to start the coordinator.
		return r, nil
	}

	r := newRoom(id, name, h.store, h.log, h.idleTimeout, h.evict)
	h.rooms[name] = r
	go r.run(h.ctx)

	h.log.Info().Str("room", name).Str("room_id", id).Msg("room coordinator started")
	return r, nil
}

func (h *Hub) evict(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[r.name] == r {
		delete(h.rooms, r.name)
	}
}

// Shutdown stops all room coordinators.
func (h *Hub) Shutdown() {
	h.cancel()
}
