package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"sfxd/pkg/overlay"
)

// OverlayHandler upgrades /ws requests and ties the connection lifecycle
// to the overlay registry.
type OverlayHandler struct {
	registry *overlay.Registry
	upgrader websocket.Upgrader
}

// NewOverlayHandler creates a new OverlayHandler.
func NewOverlayHandler(reg *overlay.Registry) *OverlayHandler {
	return &OverlayHandler{
		registry: reg,
		upgrader: websocket.Upgrader{
			// Browser sources load from file:// or OBS-internal origins;
			// origin checks would lock out the very clients this serves.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle handles GET /ws.
func (h *OverlayHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Overlay: websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.registry.Add(conn)
	defer func() {
		h.registry.Remove(conn)
		conn.Close()
	}()

	// Inbound traffic is ignored; the read loop exists to process control
	// frames (gorilla answers pings during reads) and to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
