// Package library maps normalized prompts to curated local audio assets.
package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sfxd/pkg/media"
	"sfxd/pkg/prompt"
)

// audioExts are the file extensions recognized as playable library assets.
var audioExts = map[string]bool{
	".mp3": true,
	".wav": true,
}

// Entry is a curated library asset keyed by its normalized file stem.
type Entry struct {
	Key      string
	Name     string // original filename, for display and serving
	Path     string
	Duration time.Duration
}

// Index looks up curated audio assets by normalized prompt.
// Lookups rescan the backing directory, so newly added files are
// discoverable without a restart.
type Index struct {
	dir string
}

// NewIndex creates an index over the given directory.
func NewIndex(dir string) *Index {
	return &Index{dir: dir}
}

// Lookup returns the entry whose key exactly matches the normalized prompt.
// Matching is exact only; fuzzy or substring matching would let curated
// assets shadow legitimately different generation requests.
func (ix *Index) Lookup(key string) (*Entry, bool) {
	entries := ix.scan()
	e, ok := entries[key]
	if !ok {
		return nil, false
	}

	d, err := media.Duration(e.Path)
	if err != nil {
		// Unreadable containers still play; assume the fallback length so
		// the overlay and scene timers get a usable value.
		slog.Warn("Library: could not measure asset duration", "path", e.Path, "error", err)
		d = media.FallbackDuration
	}
	e.Duration = d
	return &e, true
}

// Names returns the original filenames of all library assets, sorted.
func (ix *Index) Names() []string {
	entries := ix.scan()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of indexed assets.
func (ix *Index) Count() int {
	return len(ix.scan())
}

// Contains reports whether a file with the given name exists in the library.
// Used by the serving surface; the name must match exactly.
func (ix *Index) Contains(name string) bool {
	_, ok := ix.File(name)
	return ok
}

// File returns the on-disk path for a library asset by its original
// filename.
func (ix *Index) File(name string) (string, bool) {
	for _, e := range ix.scan() {
		if e.Name == name {
			return e.Path, true
		}
	}
	return "", false
}

func (ix *Index) scan() map[string]Entry {
	entries := make(map[string]Entry)

	dirEntries, err := os.ReadDir(ix.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Library: scan failed", "dir", ix.dir, "error", err)
		}
		return entries
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !audioExts[ext] {
			continue
		}
		key := prompt.Normalize(strings.TrimSuffix(name, filepath.Ext(name)))
		entries[key] = Entry{
			Key:  key,
			Name: name,
			Path: filepath.Join(ix.dir, name),
		}
	}
	return entries
}
