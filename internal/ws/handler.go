package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Handler upgrades connections and dispatches their messages to an http.Handler
type Handler struct {
	next           http.Handler
	maxMessageSize int64
	logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler. Every tunneled request is
// served by next, so it passes through the same middleware as plain HTTP.
func NewHandler(next http.Handler, maxMessageSize int64, logger zerolog.Logger) *Handler {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	return &Handler{
		next:           next,
		maxMessageSize: maxMessageSize,
		logger:         logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.logger.Info().
		Str("remoteAddr", r.RemoteAddr).
		Msg("new WebSocket connection")

	client := NewClient(conn, h.next, h.maxMessageSize, h.logger.With().Str("remoteAddr", r.RemoteAddr).Logger())
	client.Run(r.Context())
}
