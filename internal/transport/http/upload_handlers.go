package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/internal/proto"
	"chatrelay/internal/store/blob"
)

// MaxUploadBytes caps one uploaded file. The client enforces the same limit
// before issuing the request; the server check covers everyone else.
const MaxUploadBytes = 10 << 20

// UploadHandlers stores uploaded blobs out-of-band and returns the
// reference metadata used to compose a file message.
type UploadHandlers struct {
	blobs *blob.DiskStore
	log   *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(blobs *blob.DiskStore, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{blobs: blobs, log: logger}
}

// Upload handles a single multipart file upload.
// POST /api/upload
func (h *UploadHandlers) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(stdhttp.StatusBadRequest, proto.UploadResponse{Success: false, Error: "file field is required"})
		return
	}
	if file.Size > MaxUploadBytes {
		c.JSON(stdhttp.StatusBadRequest, proto.UploadResponse{Success: false, Error: "file exceeds the 10 MiB limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.log.Error().Err(err).Str("file", file.Filename).Msg("open uploaded file")
		c.JSON(stdhttp.StatusInternalServerError, proto.UploadResponse{Success: false, Error: "internal server error"})
		return
	}
	defer src.Close()

	ref, err := h.blobs.Save(file.Filename, src)
	if err != nil {
		h.log.Error().Err(err).Str("file", file.Filename).Msg("store uploaded file")
		c.JSON(stdhttp.StatusInternalServerError, proto.UploadResponse{Success: false, Error: "internal server error"})
		return
	}

	h.log.Info().Str("file", ref.Name).Int64("size", ref.Size).Str("url", ref.URL).Msg("file uploaded")
	c.JSON(stdhttp.StatusOK, proto.UploadResponse{
		Success:     true,
		URL:         ref.URL,
		Name:        ref.Name,
		Size:        ref.Size,
		ContentType: file.Header.Get("Content-Type"),
	})
}
