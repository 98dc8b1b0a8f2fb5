package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatrelay/internal/log"
	"chatrelay/internal/store"
)

// fakeStore is an in-memory store.Store for coordinator tests.
type fakeStore struct {
	mu          sync.Mutex
	rooms       map[string]string
	ensureCalls int
	messages    []*store.Message
	nextID      int64

	failInsert bool
	// When set, InsertMessage blocks until the channel is closed.
	insertGate chan struct{}
	// When set, EnsureRoom for ensureGateName blocks until the channel is
	// closed, announcing itself on ensureEntered first.
	ensureGate     chan struct{}
	ensureGateName string
	ensureEntered  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:         make(map[string]string),
		ensureEntered: make(chan struct{}, 1),
	}
}

func (f *fakeStore) EnsureRoom(_ context.Context, id, name string) error {
	f.mu.Lock()
	gate := f.ensureGate
	gateName := f.ensureGateName
	f.mu.Unlock()
	if gate != nil && name == gateName {
		select {
		case f.ensureEntered <- struct{}{}:
		default:
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if _, ok := f.rooms[id]; !ok {
		f.rooms[id] = name
	}
	return nil
}

func (f *fakeStore) GetRoom(_ context.Context, id string) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &store.Room{ID: id, Name: f.rooms[id]}, nil
}

func (f *fakeStore) InsertMessage(_ context.Context, msg *store.Message) (*store.Message, error) {
	f.mu.Lock()
	gate := f.insertGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return nil, errInsertFailed
	}
	f.nextID++
	stored := *msg
	stored.ID = f.nextID
	f.messages = append(f.messages, &stored)
	copied := stored
	return &copied, nil
}

func (f *fakeStore) ListMessages(_ context.Context, roomID string) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Message
	for _, m := range f.messages {
		if m.RoomID == roomID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

type insertError string

func (e insertError) Error() string { return string(e) }

const errInsertFailed = insertError("insert failed")

func newTestHub(t *testing.T, st store.Store, idle time.Duration) *Hub {
	t.Helper()

	hub := NewHub(st, log.Nop(), idle)
	t.Cleanup(hub.Shutdown)
	return hub
}

// mustMessage waits for a message of the given type on the connection's
// outbox, skipping messages of other types.
func mustMessage(t *testing.T, c *Conn, kind MessageType) *Message {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.Outbox:
			if msg.Type == kind {
				return msg
			}
		case <-deadline:
			t.Fatalf("expected message of type %q not received", kind)
			return nil
		}
	}
}

// expectNoMessage asserts that nothing arrives within the window.
func expectNoMessage(t *testing.T, c *Conn, window time.Duration) {
	t.Helper()

	select {
	case msg := <-c.Outbox:
		t.Fatalf("unexpected message delivered: %+v", msg)
	case <-time.After(window):
	}
}
