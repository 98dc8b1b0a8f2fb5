package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatrelay/internal/proto"
)

// HTTPHistory fetches room history over the relay's REST surface.
type HTTPHistory struct {
	baseURL string
	client  *stdhttp.Client
}

// NewHTTPHistory builds a fetcher for the given relay base URL, e.g.
// "http://localhost:8080".
func NewHTTPHistory(baseURL string) *HTTPHistory {
	return &HTTPHistory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &stdhttp.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns the persisted messages for a room, oldest first.
func (h *HTTPHistory) Fetch(ctx context.Context, roomID string) ([]proto.MessageRecord, error) {
	endpoint := h.baseURL + "/api/rooms/" + url.PathEscape(roomID) + "/messages"

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var records []proto.MessageRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return records, nil
}

// HTTPUploader stores attachments via the relay's upload endpoint.
type HTTPUploader struct {
	baseURL string
	client  *stdhttp.Client
}

// NewHTTPUploader builds an uploader for the given relay base URL.
func NewHTTPUploader(baseURL string) *HTTPUploader {
	return &HTTPUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &stdhttp.Client{Timeout: 60 * time.Second},
	}
}

// Upload posts one attachment as multipart form data and returns the
// stable reference the relay assigned to it.
func (u *HTTPUploader) Upload(ctx context.Context, att Attachment) (*FileRef, error) {
	src, err := att.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", att.Name, err)
	}
	defer src.Close()

	// Attachments are capped at 10 MiB, buffering the body is fine.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", att.Name)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("read %s: %w", att.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, u.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", att.Name, err)
	}
	defer resp.Body.Close()

	var result proto.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("upload rejected: %s", result.Error)
	}

	return &FileRef{URL: result.URL, Name: result.Name, Size: result.Size}, nil
}

// FileAttachment stats a local file and wraps it as an Attachment.
func FileAttachment(path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("%s is a directory", path)
	}

	return Attachment{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
