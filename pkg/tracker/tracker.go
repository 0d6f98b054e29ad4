package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per source (library, generation provider, cache).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*SourceStats
}

// SourceStats holds metrics for a specific source.
// Fields are accessed atomically.
type SourceStats struct {
	LibraryHits int64
	APISuccess  int64
	APIFailures int64
	CacheWrites int64
	Evictions   int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*SourceStats),
	}
}

// getStats returns the stats object for a source, creating it if needed.
func (t *Tracker) getStats(source string) *SourceStats {
	t.mu.RLock()
	s, ok := t.stats[source]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[source]; ok {
		return s
	}
	s = &SourceStats{}
	t.stats[source] = s
	return s
}

// TrackLibraryHit increments the library hit counter.
func (t *Tracker) TrackLibraryHit(source string) {
	atomic.AddInt64(&t.getStats(source).LibraryHits, 1)
}

func (t *Tracker) TrackAPISuccess(source string) {
	atomic.AddInt64(&t.getStats(source).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(source string) {
	atomic.AddInt64(&t.getStats(source).APIFailures, 1)
}

func (t *Tracker) TrackCacheWrite(source string) {
	atomic.AddInt64(&t.getStats(source).CacheWrites, 1)
}

func (t *Tracker) TrackEviction(source string, n int) {
	atomic.AddInt64(&t.getStats(source).Evictions, int64(n))
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]SourceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]SourceStats)
	for k, v := range t.stats {
		result[k] = SourceStats{
			LibraryHits: atomic.LoadInt64(&v.LibraryHits),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			CacheWrites: atomic.LoadInt64(&v.CacheWrites),
			Evictions:   atomic.LoadInt64(&v.Evictions),
		}
	}
	return result
}
