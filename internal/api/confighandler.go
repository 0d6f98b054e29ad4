package api

import (
	"log/slog"
	"net/http"
	"time"

	"sfxd/pkg/config"
)

// ConfigHandler serves the redacted configuration and the reload endpoint.
type ConfigHandler struct {
	prov *config.Provider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(prov *config.Provider) *ConfigHandler {
	return &ConfigHandler{prov: prov}
}

// ConfigResponse represents the /config payload. The credential is never
// echoed, only its state.
type ConfigResponse struct {
	Server struct {
		Address string `json:"address"`
	} `json:"server"`
	Library struct {
		Enabled bool   `json:"enabled"`
		Dir     string `json:"dir"`
	} `json:"library"`
	Cache struct {
		Dir              string `json:"dir"`
		MaxAge           string `json:"max_age"`
		EvictionInterval string `json:"eviction_interval"`
	} `json:"cache"`
	Generation struct {
		APIKey          string  `json:"api_key"`
		MaxDuration     float64 `json:"max_duration"`
		PromptInfluence float64 `json:"prompt_influence"`
		Timeout         string  `json:"timeout"`
	} `json:"generation"`
	Overlay struct {
		Enabled                   bool   `json:"enabled"`
		ShowPrompt                bool   `json:"show_prompt"`
		ShowSender                bool   `json:"show_sender"`
		DisplayDurationAfterAudio string `json:"display_duration_after_audio"`
	} `json:"overlay"`
	OBS struct {
		Enabled     bool   `json:"enabled"`
		Host        string `json:"host"`
		Port        int    `json:"port"`
		Password    string `json:"password"`
		MediaInput  string `json:"media_input"`
		Group       string `json:"group"`
		PromptInput string `json:"prompt_input"`
		SenderInput string `json:"sender_input"`
	} `json:"obs"`
}

func configResponse(cfg *config.Config) ConfigResponse {
	red := cfg.Redacted()
	var resp ConfigResponse
	resp.Server.Address = red.Server.Address
	resp.Library.Enabled = red.Library.Enabled
	resp.Library.Dir = red.Library.Dir
	resp.Cache.Dir = red.Cache.Dir
	resp.Cache.MaxAge = time.Duration(red.Cache.MaxAge).String()
	resp.Cache.EvictionInterval = time.Duration(red.Cache.EvictionInterval).String()
	resp.Generation.APIKey = red.Generation.APIKey
	resp.Generation.MaxDuration = red.Generation.MaxDuration
	resp.Generation.PromptInfluence = red.Generation.PromptInfluence
	resp.Generation.Timeout = time.Duration(red.Generation.Timeout).String()
	resp.Overlay.Enabled = red.Overlay.Enabled
	resp.Overlay.ShowPrompt = red.Overlay.ShowPrompt
	resp.Overlay.ShowSender = red.Overlay.ShowSender
	resp.Overlay.DisplayDurationAfterAudio = time.Duration(red.Overlay.DisplayDurationAfterAudio).String()
	resp.OBS.Enabled = red.OBS.Enabled
	resp.OBS.Host = red.OBS.Host
	resp.OBS.Port = red.OBS.Port
	resp.OBS.Password = red.OBS.Password
	resp.OBS.MediaInput = red.OBS.MediaInput
	resp.OBS.Group = red.OBS.Group
	resp.OBS.PromptInput = red.OBS.PromptInput
	resp.OBS.SenderInput = red.OBS.SenderInput
	return resp
}

// HandleGet handles GET /config.
func (h *ConfigHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse(h.prov.Current()))
}

// HandleReload handles POST /reload-config.
func (h *ConfigHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.prov.Reload()
	if err != nil {
		slog.Error("Config reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	slog.Info("Config reloaded", "api_key_configured", cfg.HasAPIKey())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  configResponse(cfg),
	})
}
