package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/log"
	"chatrelay/internal/store"
	"chatrelay/internal/store/blob"
	"chatrelay/internal/store/sqlite"
)

func startTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := log.Nop()
	hub := core.NewHub(st, logger, time.Minute)
	t.Cleanup(hub.Shutdown)

	blobs, err := blob.New(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("create blob store: %v", err)
	}

	server := NewServer(hub, st, blobs, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
	}, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st
}
