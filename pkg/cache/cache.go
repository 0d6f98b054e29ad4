// Package cache persists generated audio clips with age-based retention.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sfxd/pkg/media"
	"sfxd/pkg/tracker"
)

const (
	// genPrefix marks cache-owned files. Eviction only ever considers files
	// carrying this prefix, so curated library assets can never be swept even
	// if the two directories are misconfigured to overlap.
	genPrefix = "gen_"

	// DefaultDuration is the final duration fallback when neither the
	// container nor the sidecar yields a value.
	DefaultDuration = media.FallbackDuration

	sourceName = "cache"
)

// Clip is a cache-owned generated audio file.
type Clip struct {
	Name     string
	Path     string
	Duration time.Duration
}

// sidecar is the metadata written next to each clip.
type sidecar struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// Cache stores generated clips on disk.
type Cache struct {
	dir     string
	tracker *tracker.Tracker
}

// New creates a cache over the given directory, creating it if needed.
func New(dir string, t *tracker.Tracker) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, tracker: t}, nil
}

// newClipName yields a fresh cache filename. Variable so tests can force
// name collisions.
var newClipName = func() string {
	return genPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:8] + ".mp3"
}

// Store writes audio bytes and their metadata sidecar, then measures the
// actual duration from the container. The clip file and its sidecar are
// written together or not at all.
func (c *Cache) Store(audio []byte, declaredDuration float64) (*Clip, error) {
	f, name, err := c.createClip()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(c.dir, name)

	_, werr := f.Write(audio)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write clip: %w", werr)
	}

	meta, err := json.Marshal(sidecar{DurationSeconds: declaredDuration})
	if err == nil {
		err = os.WriteFile(sidecarPath(path), meta, 0o644)
	}
	if err != nil {
		// Keep the invariant: both files or neither.
		os.Remove(path)
		return nil, fmt.Errorf("failed to write clip metadata: %w", err)
	}

	c.tracker.TrackCacheWrite(sourceName)

	return &Clip{
		Name:     name,
		Path:     path,
		Duration: c.Duration(path),
	}, nil
}

// createClip opens a freshly named clip file exclusively, retrying on a name
// collision so an existing clip is never silently overwritten.
func (c *Cache) createClip() (*os.File, string, error) {
	for attempt := 0; ; attempt++ {
		name := newClipName()
		f, err := os.OpenFile(filepath.Join(c.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) || attempt >= 4 {
			return nil, "", fmt.Errorf("failed to create clip: %w", err)
		}
	}
}

// Duration returns the authoritative duration for a clip. Three-tier
// fallback: container metadata, then the sidecar's declared value, then
// DefaultDuration. Never an error.
func (c *Cache) Duration(path string) time.Duration {
	if d, err := media.Duration(path); err == nil && d > 0 {
		return d
	}

	if data, err := os.ReadFile(sidecarPath(path)); err == nil {
		var sc sidecar
		if err := json.Unmarshal(data, &sc); err == nil && sc.DurationSeconds > 0 {
			return time.Duration(sc.DurationSeconds * float64(time.Second))
		}
	}

	return DefaultDuration
}

// Contains reports whether a cache-owned file with the given name exists.
func (c *Cache) Contains(name string) bool {
	if !strings.HasPrefix(name, genPrefix) {
		return false
	}
	if name != filepath.Base(name) {
		return false
	}
	_, err := os.Stat(filepath.Join(c.dir, name))
	return err == nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// EvictOlderThan deletes cache-owned clips (and their sidecars) whose
// modification time is older than maxAge. Aged sidecars whose clip is already
// gone are swept too, so a partial delete cannot leave metadata behind
// forever. Individual delete failures are logged and skipped; the sweep never
// aborts. Returns the number of clips removed.
func (c *Cache) EvictOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	evicted := 0

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Warn("Cache: eviction scan failed", "dir", c.dir, "error", err)
		return 0
	}

	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, genPrefix) {
			continue
		}
		if strings.HasSuffix(name, ".json") {
			// Sidecar orphaned by a partial delete on an earlier sweep.
			if c.clipExists(strings.TrimSuffix(name, ".json")) {
				continue
			}
			info, err := de.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
				slog.Warn("Cache: failed to delete orphan sidecar", "name", name, "error", err)
			}
			continue
		}
		if !strings.HasSuffix(name, ".mp3") && !strings.HasSuffix(name, ".wav") {
			continue
		}

		info, err := de.Info()
		if err != nil {
			slog.Warn("Cache: cannot stat entry, skipping", "name", name, "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(c.dir, name)
		if err := os.Remove(path); err != nil {
			slog.Warn("Cache: failed to delete clip", "name", name, "error", err)
			continue
		}
		if err := os.Remove(sidecarPath(path)); err != nil && !os.IsNotExist(err) {
			slog.Warn("Cache: failed to delete sidecar", "name", name, "error", err)
		}
		evicted++
	}

	if evicted > 0 {
		c.tracker.TrackEviction(sourceName, evicted)
		slog.Info("Cache: eviction sweep complete", "removed", evicted, "max_age", maxAge)
	}
	return evicted
}

// clipExists reports whether an audio file with the given stem is present.
func (c *Cache) clipExists(stem string) bool {
	for _, ext := range []string{".mp3", ".wav"} {
		if _, err := os.Stat(filepath.Join(c.dir, stem+ext)); err == nil {
			return true
		}
	}
	return false
}

func sidecarPath(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + ".json"
}
