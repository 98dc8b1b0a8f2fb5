package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"chatrelay/internal/proto"
)

// State of the session's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateJoined
)

// Attachment selection limits, enforced before any network call. Violating
// either aborts the entire selection, not just the offending file.
const (
	MaxFileCount = 3
	MaxFileSize  = 10 << 20
)

var (
	ErrNotConnected = errors.New("not connected to a room")
	ErrTooManyFiles = fmt.Errorf("at most %d files per send", MaxFileCount)
	ErrFileTooLarge = errors.New("file exceeds the 10 MiB limit")
)

// Attachment is a file selected for sending.
type Attachment struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileRef is the stable reference an upload resolves to.
type FileRef struct {
	URL  string
	Name string
	Size int64
}

// HistoryFetcher queries a room's persisted history, independent of the
// live connection.
type HistoryFetcher interface {
	Fetch(ctx context.Context, roomID string) ([]proto.MessageRecord, error)
}

// Uploader stores a file blob out-of-band and returns its reference.
type Uploader interface {
	Upload(ctx context.Context, att Attachment) (*FileRef, error)
}

// Session drives the join sequence for one room at a time and reconciles
// the asynchronously fetched history with live messages. The message feed
// is keyed by durable id: the history fetch and the live stream are two
// independently-timed deliveries of a possibly-overlapping set, and a
// message is appended only if its id has not been seen.
type Session struct {
	wsURL   string
	history HistoryFetcher
	uploads Uploader
	log     *zerolog.Logger

	// OnRecord is invoked for every message newly added to the feed.
	OnRecord func(proto.MessageRecord)
	// OnJoined is invoked once the room identity is known.
	OnJoined func(roomID string)

	mu       sync.Mutex
	state    State
	roomID   string
	conn     *websocket.Conn
	cancel   context.CancelFunc
	send     func(ctx context.Context, in proto.Inbound) error
	messages []proto.MessageRecord
	seen     map[int64]struct{}
	pending  []Attachment
}

// NewSession constructs a disconnected session. wsURL is the relay
// endpoint, e.g. "ws://localhost:8080/ws".
func NewSession(wsURL string, history HistoryFetcher, uploads Uploader, logger *zerolog.Logger) *Session {
	return &Session{
		wsURL:   wsURL,
		history: history,
		uploads: uploads,
		log:     logger,
		seen:    make(map[int64]struct{}),
	}
}

// Join connects to the named room. Any existing connection is closed first;
// a re-entrant Join while already joining is ignored, not queued.
func (s *Session) Join(ctx context.Context, roomName string) error {
	s.mu.Lock()
	if s.state == StateJoining {
		s.mu.Unlock()
		return nil
	}
	if s.conn != nil {
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "rejoining")
		s.conn = nil
		s.send = nil
	}
	s.state = StateJoining
	s.roomID = ""
	s.messages = nil
	s.seen = make(map[int64]struct{})
	s.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, s.wsURL+"?roomName="+url.QueryEscape(roomName), nil)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return fmt.Errorf("dial: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.send = func(ctx context.Context, in proto.Inbound) error {
		return wsjson.Write(ctx, conn, in)
	}
	s.mu.Unlock()

	go s.readLoop(runCtx, conn)
	return nil
}

// Leave closes the connection and returns to disconnected.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "bye")
		s.conn = nil
		s.send = nil
	}
	s.state = StateDisconnected
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the durable room identity, empty until joined.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Messages returns a snapshot of the reconciled feed.
func (s *Session) Messages() []proto.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]proto.MessageRecord, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		s.handleFrame(ctx, raw)
	}
}

func (s *Session) handleFrame(ctx context.Context, raw json.RawMessage) {
	var head struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed frame")
		return
	}

	if head.Type == proto.TypeSystem && head.RoomID != "" {
		s.mu.Lock()
		s.state = StateJoined
		s.roomID = head.RoomID
		joined := s.OnJoined
		s.mu.Unlock()

		if joined != nil {
			joined(head.RoomID)
		}
		// History is fetched concurrently with the live stream; arrival
		// order is reconciled by the id guard.
		go s.fetchHistory(ctx, head.RoomID)
		return
	}

	var rec proto.MessageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.log.Warn().Err(err).Msg("drop malformed message record")
		return
	}
	s.addLive(rec)
}

func (s *Session) fetchHistory(ctx context.Context, roomID string) {
	records, err := s.history.Fetch(ctx, roomID)
	if err != nil {
		// No retry; the feed stays as-is and live messages keep arriving.
		s.log.Warn().Err(err).Str("room_id", roomID).Msg("history fetch failed")
		return
	}
	s.applyHistory(records)
}

// applyHistory installs the history as the initial bulk set, keeping any
// live messages that arrived first and are not part of it.
func (s *Session) applyHistory(history []proto.MessageRecord) {
	s.mu.Lock()

	live := s.messages
	seen := make(map[int64]struct{}, len(history)+len(live))
	merged := make([]proto.MessageRecord, 0, len(history)+len(live))
	var added []proto.MessageRecord

	for _, m := range history {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
		if _, hadLive := s.seen[m.ID]; !hadLive {
			added = append(added, m)
		}
	}
	for _, m := range live {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}

	s.messages = merged
	s.seen = seen
	cb := s.OnRecord
	s.mu.Unlock()

	if cb != nil {
		for _, m := range added {
			cb(m)
		}
	}
}

// addLive appends a live message unless its id is already present.
func (s *Session) addLive(rec proto.MessageRecord) {
	s.mu.Lock()
	if _, dup := s.seen[rec.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[rec.ID] = struct{}{}
	s.messages = append(s.messages, rec)
	cb := s.OnRecord
	s.mu.Unlock()

	if cb != nil {
		cb(rec)
	}
}

func (s *Session) handleDisconnect(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.send = nil
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	// Connection loss is normal lifecycle; a later explicit Join recovers.
	s.log.Debug().Err(err).Msg("connection closed")
}

// SelectFiles validates and stages a file batch for the next Send. Any
// violation rejects the whole batch and clears the selection.
func (s *Session) SelectFiles(files []Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(files) > MaxFileCount {
		s.pending = nil
		return ErrTooManyFiles
	}
	for _, f := range files {
		if f.Size > MaxFileSize {
			s.pending = nil
			return fmt.Errorf("%s: %w", f.Name, ErrFileTooLarge)
		}
	}

	s.pending = files
	return nil
}

// PendingFiles returns the staged attachments.
func (s *Session) PendingFiles() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Attachment, len(s.pending))
	copy(out, s.pending)
	return out
}

// RemoveFile unstages one attachment by index.
func (s *Session) RemoveFile(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.pending) {
		return
	}
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
}

// Send submits the trimmed text body (if non-empty) and every staged
// attachment as independent outbound events. Attachments are uploaded
// first and submitted as file messages; one failed upload never blocks the
// text or the sibling files. Once sending starts the selection is consumed
// even on partial failure; without a connection it stays staged.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	send := s.send
	if send == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	var errs []error

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		if err := send(ctx, proto.Inbound{Type: proto.TypeText, Content: trimmed}); err != nil {
			errs = append(errs, fmt.Errorf("send text: %w", err))
		}
	}

	for _, att := range batch {
		ref, err := s.uploads.Upload(ctx, att)
		if err != nil {
			s.log.Warn().Err(err).Str("file", att.Name).Msg("upload failed")
			errs = append(errs, fmt.Errorf("upload %s: %w", att.Name, err))
			continue
		}

		name := ref.Name
		size := ref.Size
		if err := send(ctx, proto.Inbound{
			Type:     proto.TypeFile,
			Content:  ref.URL,
			FileName: &name,
			Size:     &size,
		}); err != nil {
			errs = append(errs, fmt.Errorf("send file %s: %w", att.Name, err))
		}
	}

	return errors.Join(errs...)
}
