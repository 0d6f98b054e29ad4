package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"sfxd/pkg/cache"
	"sfxd/pkg/library"
)

// AudioHandler serves resolved clips. Library and generated assets live in
// separate URL namespaces so the handler never has to guess where a
// filename came from.
type AudioHandler struct {
	library *library.Index
	cache   *cache.Cache
}

// NewAudioHandler creates a new AudioHandler.
func NewAudioHandler(lib *library.Index, c *cache.Cache) *AudioHandler {
	return &AudioHandler{library: lib, cache: c}
}

// validName rejects anything that is not a bare audio filename: path
// separators, traversal segments, unknown extensions.
func validName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

// HandleLibrary handles GET /audio/library/{name}.
func (h *AudioHandler) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validName(name) {
		http.NotFound(w, r)
		return
	}
	path, ok := h.library.File(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// HandleGenerated handles GET /audio/generated/{name}.
func (h *AudioHandler) HandleGenerated(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validName(name) || !h.cache.Contains(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.cache.Dir(), name))
}
