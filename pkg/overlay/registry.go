// Package overlay tracks connected browser-source clients and fans play
// events out to them.
package overlay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const writeTimeout = 5 * time.Second

// Conn is the subset of a websocket connection the registry needs.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// textMessage mirrors websocket.TextMessage; declared here so the registry
// does not depend on the transport package.
const textMessage = 1

// PlayEvent is the notification pushed to every connected overlay client.
// Fire-and-forget: no acknowledgment, no ordering guarantee across clients.
type PlayEvent struct {
	Type                      string  `json:"type"`
	AudioURL                  string  `json:"audio_url"`
	Duration                  float64 `json:"duration"`
	DurationMs                int64   `json:"durationMs"`
	Prompt                    string  `json:"prompt"`
	Sender                    string  `json:"sender"`
	ShowOverlay               bool    `json:"show_overlay"`
	DisplayDurationAfterAudio int64   `json:"display_duration_after_audio"`
}

// Registry is an explicit set of connected presentation clients with a
// lifecycle tied to the websocket transport: the handler adds a connection
// after the upgrade and removes it when the read loop ends.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}

	// sendMu serializes broadcasts; concurrent writers on a single
	// websocket connection are not allowed by the transport.
	sendMu sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]struct{})}
}

// Add registers a connection.
func (r *Registry) Add(c Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	total := len(r.conns)
	r.mu.Unlock()
	slog.Info("Overlay client connected", "total", total)
}

// Remove unregisters a connection. Safe to call for already-removed conns.
func (r *Registry) Remove(c Conn) {
	r.mu.Lock()
	_, present := r.conns[c]
	delete(r.conns, c)
	total := len(r.conns)
	r.mu.Unlock()
	if present {
		slog.Info("Overlay client disconnected", "total", total)
	}
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends the event to every connected client, best-effort. Clients
// whose write fails are dropped from the registry and closed. Returns the
// number of clients the event was delivered to.
func (r *Registry) Broadcast(ev PlayEvent) int {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Overlay: failed to marshal play event", "error", err)
		return 0
	}

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(textMessage, data); err != nil {
			slog.Warn("Overlay: dropping unresponsive client", "error", err)
			r.Remove(c)
			c.Close()
			continue
		}
		delivered++
	}

	slog.Debug("Overlay: play event broadcast", "delivered", delivered)
	return delivered
}
