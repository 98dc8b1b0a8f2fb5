package core

import (
	"context"
	"testing"
	"time"
)

func TestResolveIsDeterministic(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, time.Minute)

	a := hub.Resolve("alpha")
	b := hub.Resolve("alpha")
	if a != b {
		t.Fatalf("same name resolved to different identities: %s vs %s", a, b)
	}
	if hub.Resolve("beta") == a {
		t.Fatal("different names resolved to the same identity")
	}
}

func TestRoomIsCreatedLazilyAndReused(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, time.Minute)
	ctx := context.Background()

	first, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	second, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get room again: %v", err)
	}
	if first != second {
		t.Fatal("expected the same coordinator instance for one name")
	}

	st.mu.Lock()
	name := st.rooms[first.ID()]
	st.mu.Unlock()
	if name != "alpha" {
		t.Fatalf("durable room row not ensured, got name %q", name)
	}
}

func TestRoomsAreIndependent(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, time.Minute)
	ctx := context.Background()

	alphaRoom, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get alpha: %v", err)
	}
	betaRoom, err := hub.Room(ctx, "beta")
	if err != nil {
		t.Fatalf("get beta: %v", err)
	}

	alice := NewConn("a")
	bob := NewConn("b")
	alphaRoom.Accept(alice)
	betaRoom.Accept(bob)
	mustMessage(t, alice, MessageSystem)
	mustMessage(t, bob, MessageSystem)

	alphaRoom.Ingest(alice, []byte(`{"type":"text","content":"alpha only"}`))

	mustMessage(t, alice, MessageText)
	expectNoMessage(t, bob, 50*time.Millisecond)
}

func TestIdleRoomIsEvicted(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, 30*time.Millisecond)
	ctx := context.Background()

	room, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}

	conn := NewConn("c1")
	room.Accept(conn)
	mustMessage(t, conn, MessageSystem)
	room.Remove(conn)

	deadline := time.Now().Add(2 * time.Second)
	for !room.stopped() {
		if time.Now().After(deadline) {
			t.Fatal("room was not evicted after going idle")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A later join starts a fresh coordinator with the same identity.
	fresh, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get room after eviction: %v", err)
	}
	if fresh == room {
		t.Fatal("expected a fresh coordinator after eviction")
	}
	if fresh.ID() != room.ID() {
		t.Fatal("durable identity must survive eviction")
	}
}

func TestSlowRoomCreationDoesNotBlockOthers(t *testing.T) {
	st := newFakeStore()
	gate := make(chan struct{})
	st.ensureGate = gate
	st.ensureGateName = "molasses"
	hub := newTestHub(t, st, time.Minute)
	ctx := context.Background()

	slowDone := make(chan error, 1)
	go func() {
		_, err := hub.Room(ctx, "molasses")
		slowDone <- err
	}()
	<-st.ensureEntered

	fastDone := make(chan error, 1)
	go func() {
		_, err := hub.Room(ctx, "zippy")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("get fast room: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("room creation blocked behind an unrelated slow insert")
	}

	select {
	case <-slowDone:
		t.Fatal("gated room resolved before the gate opened")
	default:
	}

	close(gate)
	if err := <-slowDone; err != nil {
		t.Fatalf("get slow room: %v", err)
	}
}

func TestAcceptNeverLostAcrossEviction(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, 10*time.Millisecond)
	ctx := context.Background()

	// Race joins against the idle eviction repeatedly: whenever Accept
	// says yes, the system frame must follow; once the coordinator reports
	// stopped, Accept must say no.
	for i := 0; i < 25; i++ {
		room, err := hub.Room(ctx, "flappy")
		if err != nil {
			t.Fatalf("get room: %v", err)
		}

		conn := NewConn("c")
		if room.Accept(conn) {
			mustMessage(t, conn, MessageSystem)
			room.Remove(conn)
		} else if !room.stopped() {
			t.Fatal("live coordinator refused an accept")
		}

		deadline := time.Now().Add(2 * time.Second)
		for !room.stopped() {
			if time.Now().After(deadline) {
				t.Fatal("room was not evicted after going idle")
			}
			time.Sleep(time.Millisecond)
		}

		late := NewConn("late")
		if room.Accept(late) {
			t.Fatal("stopped coordinator admitted a connection")
		}
	}
}

func TestOccupiedRoomIsNotEvicted(t *testing.T) {
	st := newFakeStore()
	hub := newTestHub(t, st, 30*time.Millisecond)
	ctx := context.Background()

	room, err := hub.Room(ctx, "alpha")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}

	conn := NewConn("c1")
	room.Accept(conn)
	mustMessage(t, conn, MessageSystem)

	time.Sleep(100 * time.Millisecond)
	if room.stopped() {
		t.Fatal("room with a live connection must not be evicted")
	}
}
