package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/store"
	"chatrelay/internal/store/blob"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP server: websocket relay, history and upload
// endpoints, and static serving of uploaded blobs. The browser client calls
// the REST endpoints cross-origin, so the whole handler is wrapped in CORS.
func NewServer(hub *core.Hub, st store.Store, blobs *blob.DiskStore, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(LoggerMiddleware(logger), gin.Recovery())

	wsHandler := NewWSHandler(hub, logger)
	historyHandlers := NewHistoryHandlers(st, logger)
	uploadHandlers := NewUploadHandlers(blobs, logger)

	engine.GET("/healthz", healthHandler)
	engine.GET("/ws", wsHandler.Handle)
	engine.GET("/api/rooms/:id", historyHandlers.GetRoom)
	engine.GET("/api/rooms/:id/messages", historyHandlers.ListMessages)
	engine.POST("/api/upload", uploadHandlers.Upload)
	engine.Static("/uploads", blobs.Dir())

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler(engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
