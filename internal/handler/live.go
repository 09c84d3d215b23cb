package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alertx/alertx/internal/live"
)

// LiveHandler upgrades admin dashboard connections onto the live-update
// channel. The channel is server-push only; inbound frames are read solely
// to detect disconnects.
type LiveHandler struct {
	hub            *live.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewLiveHandler creates a new live-update handler
func NewLiveHandler(hub *live.Hub, logger *slog.Logger, allowedOrigins []string) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LiveHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *LiveHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/updates
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(ws)
	defer func() {
		h.hub.Unregister(ws)
		ws.Close()
	}()

	// Heartbeat ping to keep connection alive
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			case <-done:
				return
			}
		}
	}()

	// Block on the read loop until the client goes away
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live client read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}
