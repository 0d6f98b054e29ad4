// Package orchestrator drives playback once a clip has been resolved: it
// fans the play event out to overlay clients and, when configured, flips
// the OBS scene elements for the duration of the clip.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"sfxd/pkg/config"
	"sfxd/pkg/overlay"
	"sfxd/pkg/prompt"
	"sfxd/pkg/resolver"
)

// eventType is the discriminator overlay clients switch on.
const eventType = "play_sfx"

// hideTimeout bounds the detached deactivation call so a wedged OBS
// session cannot leak goroutines.
const hideTimeout = 10 * time.Second

// Automation is the OBS control surface the orchestrator drives.
// *obs.Client satisfies it; tests substitute a recorder.
type Automation interface {
	Connect(ctx context.Context) error
	Connected() bool
	Close()
	CurrentProgramScene(ctx context.Context) (string, error)
	SetInputSettings(ctx context.Context, input string, settings map[string]any) error
	SceneItemID(ctx context.Context, scene, source string) (int, bool, error)
	SetSceneItemEnabled(ctx context.Context, scene string, itemID int, enabled bool) error
	RestartMedia(ctx context.Context, input string) error
}

// Outcome reports which side effects a play actually produced. Overlay
// delivery and scene automation are both best-effort; a zero Outcome with
// a nil error still means the clip is considered played.
type Outcome struct {
	OverlayClients int
	SceneShown     bool
}

// Orchestrator coordinates the overlay broadcast and the OBS scene cycle.
// Display preferences and OBS element names come from the provider per
// play, so a config reload affects the next trigger.
type Orchestrator struct {
	prov     *config.Provider
	registry *overlay.Registry
	auto     Automation

	// mu makes the show/retrigger/hide cycle single-flight: a retrigger
	// while a clip is on screen replaces the pending hide instead of
	// stacking a second one.
	mu        sync.Mutex
	hideTimer *time.Timer
	hideScene string
	hideItem  int
}

// New creates an orchestrator. auto may be nil when scene automation is
// disabled.
func New(registry *overlay.Registry, auto Automation, prov *config.Provider) *Orchestrator {
	return &Orchestrator{
		prov:     prov,
		registry: registry,
		auto:     auto,
	}
}

// Play pushes the resolved clip to every presentation surface. It refuses
// failed resolutions outright so a failure can never produce partial side
// effects, and returns once playback is underway; the scene deactivation
// runs later on its own timer.
func (o *Orchestrator) Play(ctx context.Context, res resolver.Result, p prompt.Prompt, requester string) (Outcome, error) {
	if !res.OK() {
		return Outcome{}, fmt.Errorf("refusing to play failed resolution: %s", res.Err.CodeString())
	}

	cfg := o.prov.Current()
	out := Outcome{OverlayClients: o.registry.Broadcast(o.event(cfg.Overlay, res, p, requester))}

	if cfg.OBS.Enabled && o.auto != nil {
		shown, err := o.showScene(ctx, res, p, requester)
		if err != nil {
			// Scene automation is an optional embellishment: log and move on.
			slog.Warn("OBS automation failed", "error", err)
		}
		out.SceneShown = shown
	}

	return out, nil
}

func (o *Orchestrator) event(overlayCfg config.OverlayConfig, res resolver.Result, p prompt.Prompt, requester string) overlay.PlayEvent {
	ev := overlay.PlayEvent{
		Type:                      eventType,
		AudioURL:                  res.AudioURL(),
		Duration:                  res.Duration.Seconds(),
		DurationMs:                res.Duration.Milliseconds(),
		ShowOverlay:               overlayCfg.Enabled,
		DisplayDurationAfterAudio: time.Duration(overlayCfg.DisplayDurationAfterAudio).Milliseconds(),
	}
	if overlayCfg.ShowPrompt {
		ev.Prompt = p.Display
	}
	if overlayCfg.ShowSender {
		ev.Sender = requester
	}
	return ev
}

// showScene runs one scene cycle: label the text inputs, point the media
// source at the clip, reveal the group in the current program scene,
// restart the media, and schedule the deactivation.
func (o *Orchestrator) showScene(ctx context.Context, res resolver.Result, p prompt.Prompt, requester string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obsCfg := o.prov.Current().OBS

	absPath, err := filepath.Abs(res.Path)
	if err != nil {
		return false, fmt.Errorf("resolving clip path: %w", err)
	}

	// The text labels are cosmetic; a missing text source must not block
	// the sound.
	if obsCfg.PromptInput != "" {
		if err := o.do(ctx, func() error {
			return o.auto.SetInputSettings(ctx, obsCfg.PromptInput, map[string]any{"text": p.Display})
		}); err != nil {
			slog.Warn("OBS: prompt label update failed", "input", obsCfg.PromptInput, "error", err)
		}
	}
	if obsCfg.SenderInput != "" {
		label := ""
		if requester != "" {
			label = "Sender: " + requester
		}
		if err := o.do(ctx, func() error {
			return o.auto.SetInputSettings(ctx, obsCfg.SenderInput, map[string]any{"text": label})
		}); err != nil {
			slog.Warn("OBS: sender label update failed", "input", obsCfg.SenderInput, "error", err)
		}
	}

	if err := o.do(ctx, func() error {
		return o.auto.SetInputSettings(ctx, obsCfg.MediaInput, map[string]any{"local_file": absPath})
	}); err != nil {
		return false, fmt.Errorf("pointing media source at clip: %w", err)
	}

	var scene string
	if err := o.do(ctx, func() error {
		var err error
		scene, err = o.auto.CurrentProgramScene(ctx)
		return err
	}); err != nil {
		return false, fmt.Errorf("querying program scene: %w", err)
	}

	itemID, found, err := o.auto.SceneItemID(ctx, scene, obsCfg.Group)
	if err != nil {
		return false, fmt.Errorf("locating group %q in scene %q: %w", obsCfg.Group, scene, err)
	}
	if !found {
		return false, fmt.Errorf("group %q not present in scene %q", obsCfg.Group, scene)
	}

	if err := o.auto.SetSceneItemEnabled(ctx, scene, itemID, true); err != nil {
		return false, fmt.Errorf("showing group: %w", err)
	}
	if err := o.auto.RestartMedia(ctx, obsCfg.MediaInput); err != nil {
		slog.Warn("OBS: media restart failed", "input", obsCfg.MediaInput, "error", err)
	}

	o.scheduleHideLocked(scene, itemID, res.Duration+time.Duration(obsCfg.GuardMargin))
	return true, nil
}

// do runs one OBS request, reconnecting and retrying once when the session
// was dropped underneath it.
func (o *Orchestrator) do(ctx context.Context, fn func() error) error {
	if err := o.auto.Connect(ctx); err != nil {
		return err
	}
	err := fn()
	if err != nil && !o.auto.Connected() {
		if cerr := o.auto.Connect(ctx); cerr != nil {
			return err
		}
		return fn()
	}
	return err
}

// scheduleHideLocked arms the deactivation timer. delay is the clip
// duration plus the configured guard margin. A pending timer from an
// earlier play is cancelled first; the newest clip owns the hide. Callers
// hold o.mu.
func (o *Orchestrator) scheduleHideLocked(scene string, itemID int, delay time.Duration) {
	if o.hideTimer != nil {
		o.hideTimer.Stop()
	}
	o.hideScene = scene
	o.hideItem = itemID
	o.hideTimer = time.AfterFunc(delay, o.hide)
	slog.Debug("OBS: group deactivation scheduled", "scene", scene, "delay", delay)
}

func (o *Orchestrator) hide() {
	o.mu.Lock()
	scene, itemID := o.hideScene, o.hideItem
	o.hideTimer = nil
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), hideTimeout)
	defer cancel()
	if err := o.do(ctx, func() error {
		return o.auto.SetSceneItemEnabled(ctx, scene, itemID, false)
	}); err != nil {
		slog.Warn("OBS: group deactivation failed", "scene", scene, "error", err)
	}
}

// Close cancels any pending deactivation and tears down the OBS session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.hideTimer != nil {
		o.hideTimer.Stop()
		o.hideTimer = nil
	}
	o.mu.Unlock()
	if o.auto != nil {
		o.auto.Close()
	}
}
