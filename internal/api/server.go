package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, trigger *TriggerHandler, audio *AudioHandler, status *StatusHandler, cfgH *ConfigHandler, ws *OverlayHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)

	// Trigger accepts both methods: GET for chat-bot URL invocations,
	// POST for JSON clients.
	mux.HandleFunc("GET /trigger", trigger.Handle)
	mux.HandleFunc("POST /trigger", trigger.Handle)

	mux.HandleFunc("GET /audio/library/{name}", audio.HandleLibrary)
	mux.HandleFunc("GET /audio/generated/{name}", audio.HandleGenerated)

	mux.HandleFunc("GET /ws", ws.Handle)

	mux.HandleFunc("GET /status", status.HandleStatus)
	mux.HandleFunc("GET /sounds", status.HandleSounds)
	mux.HandleFunc("GET /history", status.HandleHistory)

	mux.HandleFunc("GET /config", cfgH.HandleGet)
	mux.HandleFunc("POST /reload-config", cfgH.HandleReload)

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout must cover a full synchronous generation round-trip
		// plus audio serving, and would kill long-lived websockets; the
		// overlay socket route makes a global write timeout unusable.
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
