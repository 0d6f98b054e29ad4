package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"sfxd/pkg/config"
	"sfxd/pkg/library"
	"sfxd/pkg/overlay"
	"sfxd/pkg/store"
	"sfxd/pkg/tracker"
	"sfxd/pkg/version"
)

// StatusHandler serves the observability endpoints.
type StatusHandler struct {
	prov     *config.Provider
	registry *overlay.Registry
	library  *library.Index
	tracker  *tracker.Tracker
	history  History
}

// NewStatusHandler creates a new StatusHandler. history may be nil.
func NewStatusHandler(prov *config.Provider, reg *overlay.Registry, lib *library.Index, t *tracker.Tracker, history History) *StatusHandler {
	return &StatusHandler{prov: prov, registry: reg, library: lib, tracker: t, history: history}
}

// StatusResponse represents the /status payload.
type StatusResponse struct {
	Running          bool                           `json:"running"`
	Version          string                         `json:"version"`
	OverlayClients   int                            `json:"overlay_clients"`
	LibraryCount     int                            `json:"library_count"`
	APIKeyConfigured bool                           `json:"api_key_configured"`
	MaxDuration      float64                        `json:"max_duration"`
	PromptInfluence  float64                        `json:"prompt_influence"`
	Stats            map[string]tracker.SourceStats `json:"stats"`
	RecentPlays      []store.Play                   `json:"recent_plays,omitempty"`
}

// HandleStatus handles GET /status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.prov.Current()
	resp := StatusResponse{
		Running:          true,
		Version:          version.Version,
		OverlayClients:   h.registry.Count(),
		LibraryCount:     h.library.Count(),
		APIKeyConfigured: cfg.HasAPIKey(),
		MaxDuration:      cfg.Generation.MaxDuration,
		PromptInfluence:  cfg.Generation.PromptInfluence,
		Stats:            h.tracker.Snapshot(),
	}
	if h.history != nil {
		plays, err := h.history.RecentPlays(r.Context(), 10)
		if err != nil {
			slog.Warn("Failed to load recent plays", "error", err)
		} else {
			resp.RecentPlays = plays
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSounds handles GET /sounds: the curated library listing.
func (h *StatusHandler) HandleSounds(w http.ResponseWriter, r *http.Request) {
	names := h.library.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"sounds": names,
		"count":  len(names),
	})
}

// HandleHistory handles GET /history.
func (h *StatusHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"plays": []store.Play{}})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	plays, err := h.history.RecentPlays(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load play history", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if plays == nil {
		plays = []store.Play{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plays": plays})
}
