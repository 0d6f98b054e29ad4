package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"sfxd/pkg/orchestrator"
	"sfxd/pkg/prompt"
	"sfxd/pkg/resolver"
	"sfxd/pkg/sfx"
	"sfxd/pkg/store"
)

// Resolver maps a prompt to a playable clip.
type Resolver interface {
	Resolve(ctx context.Context, p prompt.Prompt, requester string) resolver.Result
}

// Player pushes a resolved clip to the presentation surfaces.
type Player interface {
	Play(ctx context.Context, res resolver.Result, p prompt.Prompt, requester string) (orchestrator.Outcome, error)
}

// History records what was triggered. May be nil when disabled.
type History interface {
	RecordPlay(ctx context.Context, p *store.Play) error
	RecentPlays(ctx context.Context, limit int) ([]store.Play, error)
}

// TriggerHandler handles the /trigger endpoint.
type TriggerHandler struct {
	resolver Resolver
	player   Player
	history  History
	reqLog   *slog.Logger
}

// NewTriggerHandler creates a new TriggerHandler. history and reqLog may be
// nil.
func NewTriggerHandler(res Resolver, player Player, history History, reqLog *slog.Logger) *TriggerHandler {
	return &TriggerHandler{resolver: res, player: player, history: history, reqLog: reqLog}
}

// triggerRequest is the POST body shape; GET requests carry the same fields
// as query parameters.
type triggerRequest struct {
	Prompt        string `json:"prompt"`
	EncodedPrompt string `json:"encodedPrompt"`
	Sender        string `json:"sender"`
}

// triggerResponse is the wire shape for both success and domain failure.
// Domain failures travel as HTTP 200 so callers can branch on the code
// without conflating transport and provider problems.
type triggerResponse struct {
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	Prompt     string  `json:"prompt,omitempty"`
	Sender     string  `json:"sender,omitempty"`
	IsLocal    bool    `json:"is_local"`
	Duration   float64 `json:"duration"`
	DurationMs int64   `json:"durationMs"`
}

// Handle handles GET and POST /trigger.
func (h *TriggerHandler) Handle(w http.ResponseWriter, r *http.Request) {
	req := h.parse(r)
	p := prompt.Decode(req.Prompt, req.EncodedPrompt)

	if h.reqLog != nil {
		h.reqLog.Info("trigger", "method", r.Method, "remote", r.RemoteAddr,
			"prompt", p.Key, "sender", req.Sender)
	}

	if p.Empty() {
		// Rejected before the library or the generator is ever consulted.
		writeJSON(w, http.StatusBadRequest, triggerResponse{
			Success: false,
			Error:   sfx.CodeNoPrompt,
		})
		return
	}

	res := h.resolver.Resolve(r.Context(), p, req.Sender)
	if !res.OK() {
		h.record(r.Context(), &store.Play{
			Prompt:    p.Display,
			Sender:    req.Sender,
			Source:    "error",
			ErrorCode: res.Err.CodeString(),
		})
		writeJSON(w, http.StatusOK, triggerResponse{
			Success: false,
			Error:   res.Err.CodeString(),
			Prompt:  p.Display,
			Sender:  req.Sender,
		})
		return
	}

	if _, err := h.player.Play(r.Context(), res, p, req.Sender); err != nil {
		slog.Error("Playback dispatch failed", "prompt", p.Key, "error", err)
	}

	source := "generated"
	if res.Source == resolver.SourceLocal {
		source = "library"
	}
	h.record(r.Context(), &store.Play{
		Prompt:          p.Display,
		Sender:          req.Sender,
		Source:          source,
		DurationSeconds: res.Duration.Seconds(),
	})

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:    true,
		Prompt:     p.Display,
		Sender:     req.Sender,
		IsLocal:    res.Source == resolver.SourceLocal,
		Duration:   res.Duration.Seconds(),
		DurationMs: res.Duration.Milliseconds(),
	})
}

func (h *TriggerHandler) parse(r *http.Request) triggerRequest {
	var req triggerRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Debug("Trigger: unparseable POST body", "error", err)
		}
	}
	// Query parameters fill whatever the body did not provide, covering
	// both GET requests and POSTs with query-only parameters.
	q := r.URL.Query()
	if req.Prompt == "" {
		req.Prompt = q.Get("prompt")
	}
	if req.EncodedPrompt == "" {
		req.EncodedPrompt = q.Get("encodedPrompt")
	}
	if req.Sender == "" {
		req.Sender = q.Get("sender")
	}
	return req
}

func (h *TriggerHandler) record(ctx context.Context, p *store.Play) {
	if h.history == nil {
		return
	}
	// History is an observability trace; a failed insert must not fail
	// the trigger.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.history.RecordPlay(ctx, p); err != nil {
		slog.Warn("Failed to record play history", "error", err)
	}
}
