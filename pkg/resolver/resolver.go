// Package resolver turns a prompt into a playable audio clip, consulting the
// curated library first and falling back to remote generation plus caching.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sfxd/pkg/cache"
	"sfxd/pkg/config"
	"sfxd/pkg/library"
	"sfxd/pkg/prompt"
	"sfxd/pkg/sfx"
	"sfxd/pkg/tracker"
)

// Source identifies where a resolved clip came from.
type Source int

const (
	SourceLocal Source = iota
	SourceGenerated
)

// Result is the outcome of a resolution attempt. Exactly one of the success
// fields or Err is meaningful; a Result is produced once per request and
// never mutated.
type Result struct {
	Source   Source
	Name     string
	Path     string
	Duration time.Duration
	Err      *sfx.Error
}

// OK reports whether resolution succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// AudioURL returns the serving path for the resolved clip, namespaced by
// origin so the serving surface never has to guess.
func (r Result) AudioURL() string {
	if !r.OK() {
		return ""
	}
	if r.Source == SourceLocal {
		return "/audio/library/" + r.Name
	}
	return "/audio/generated/" + r.Name
}

// Failed builds a failure Result from any error.
func Failed(err error) Result {
	return Result{Err: sfx.AsError(err)}
}

// Resolver orchestrates library lookup, generation, and caching. Tunables
// are read from the provider per request so a config reload applies to the
// next trigger.
type Resolver struct {
	library   *library.Index
	generator sfx.Generator
	cache     *cache.Cache
	tracker   *tracker.Tracker
	prov      *config.Provider
}

// New creates a resolver.
func New(lib *library.Index, gen sfx.Generator, c *cache.Cache, t *tracker.Tracker, prov *config.Provider) *Resolver {
	return &Resolver{
		library:   lib,
		generator: gen,
		cache:     c,
		tracker:   t,
		prov:      prov,
	}
}

// Resolve maps a prompt to a playable clip. Library hits short-circuit:
// curated assets are authoritative and cheaper, served in place without
// caching or copying. On a miss a single generation attempt is made; its
// typed failure becomes the Result's failure, never a raised error.
func (r *Resolver) Resolve(ctx context.Context, p prompt.Prompt, requester string) Result {
	if p.Empty() {
		return Failed(sfx.NewError(sfx.CodeNoPrompt, "empty prompt"))
	}

	cfg := r.prov.Current()
	if cfg.Library.Enabled {
		if entry, ok := r.library.Lookup(p.Key); ok {
			slog.Info("Library match", "prompt", p.Key, "file", entry.Name, "requester", requester)
			r.tracker.TrackLibraryHit("library")
			return Result{
				Source:   SourceLocal,
				Name:     entry.Name,
				Path:     entry.Path,
				Duration: entry.Duration,
			}
		}
	}

	audio, declared, err := r.generator.Generate(ctx, p.Display, cfg.Generation.MaxDuration, cfg.Generation.PromptInfluence)
	if err != nil {
		slog.Error("Generation failed", "prompt", p.Key, "error", err)
		return Failed(err)
	}

	clip, err := r.cache.Store(audio, declared)
	if err != nil {
		return Failed(fmt.Errorf("caching generated clip: %w", err))
	}

	slog.Info("Generated SFX stored", "prompt", p.Key, "file", clip.Name, "duration", clip.Duration)
	return Result{
		Source:   SourceGenerated,
		Name:     clip.Name,
		Path:     clip.Path,
		Duration: clip.Duration,
	}
}
