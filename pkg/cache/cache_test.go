package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sfxd/internal/testutil"
	"sfxd/pkg/tracker"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), tracker.New())
	require.NoError(t, err)
	return c
}

func TestStore_WritesClipAndSidecarTogether(t *testing.T) {
	c := newTestCache(t)

	clip, err := c.Store(testutil.WAVBytes(t, time.Second), 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(clip.Name, "gen_"), "cache files carry the namespace prefix")
	assert.FileExists(t, clip.Path)
	assert.FileExists(t, strings.TrimSuffix(clip.Path, ".mp3")+".json")
}

func TestStore_MeasuredDurationWins(t *testing.T) {
	c := newTestCache(t)

	// Container says 2s, declared says 15s; the container is authoritative.
	clip, err := c.Store(testutil.WAVBytes(t, 2*time.Second), 15)
	require.NoError(t, err)
	assert.InDelta(t, 2*time.Second, clip.Duration, float64(100*time.Millisecond))
}

func TestStore_FallsBackToDeclaredDuration(t *testing.T) {
	c := newTestCache(t)

	clip, err := c.Store([]byte("not parseable audio"), 7)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, clip.Duration, "unparseable container falls back to declared duration")
}

func TestDuration_DefaultFallback(t *testing.T) {
	c := newTestCache(t)

	// Unparseable container, no sidecar.
	path := filepath.Join(c.Dir(), "gen_orphan.mp3")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	assert.Equal(t, DefaultDuration, c.Duration(path))
}

func TestStore_FilenamesCollisionResistant(t *testing.T) {
	c := newTestCache(t)

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		clip, err := c.Store([]byte("x"), 1)
		require.NoError(t, err)
		if seen[clip.Name] {
			t.Fatalf("duplicate filename after %d stores: %s", i, clip.Name)
		}
		seen[clip.Name] = true
	}
}

func TestEvictOlderThan(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, tracker.New())
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)

	// Aged cache clip with sidecar: evicted.
	agedClip := filepath.Join(dir, "gen_aaaaaaaa.mp3")
	agedMeta := filepath.Join(dir, "gen_aaaaaaaa.json")
	require.NoError(t, os.WriteFile(agedClip, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(agedMeta, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(agedClip, old, old))

	// Fresh cache clip: kept.
	fresh := filepath.Join(dir, "gen_bbbbbbbb.mp3")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	// Aged file outside the cache namespace: never touched.
	stray := filepath.Join(dir, "explosion.mp3")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(stray, old, old))

	removed := c.EvictOlderThan(24 * time.Hour)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, agedClip)
	assert.NoFileExists(t, agedMeta, "sidecar removed with its clip")
	assert.FileExists(t, fresh)
	assert.FileExists(t, stray, "non-namespace files are out of eviction's reach")
}

func TestEvictOlderThan_OrphanSidecars(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, tracker.New())
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)

	// Aged sidecar with no clip: swept.
	orphan := filepath.Join(dir, "gen_cccccccc.json")
	require.NoError(t, os.WriteFile(orphan, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(orphan, old, old))

	// Fresh orphan: left for a later sweep.
	freshOrphan := filepath.Join(dir, "gen_dddddddd.json")
	require.NoError(t, os.WriteFile(freshOrphan, []byte("{}"), 0o644))

	// Aged sidecar whose clip is still fresh: kept with it.
	liveClip := filepath.Join(dir, "gen_eeeeeeee.mp3")
	liveMeta := filepath.Join(dir, "gen_eeeeeeee.json")
	require.NoError(t, os.WriteFile(liveClip, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(liveMeta, []byte("{}"), 0o644))
	require.NoError(t, os.Chtimes(liveMeta, old, old))

	c.EvictOlderThan(24 * time.Hour)

	assert.NoFileExists(t, orphan, "aged orphan sidecars must not accumulate")
	assert.FileExists(t, freshOrphan)
	assert.FileExists(t, liveMeta, "sidecars with a live clip stay")
	assert.FileExists(t, liveClip)
}

func TestStore_CollisionPicksNewName(t *testing.T) {
	c := newTestCache(t)

	existing := filepath.Join(c.Dir(), "gen_deadbeef.mp3")
	require.NoError(t, os.WriteFile(existing, []byte("first"), 0o644))

	orig := newClipName
	t.Cleanup(func() { newClipName = orig })
	calls := 0
	newClipName = func() string {
		calls++
		if calls == 1 {
			return "gen_deadbeef.mp3"
		}
		return orig()
	}

	clip, err := c.Store([]byte("second"), 1)
	require.NoError(t, err)
	assert.NotEqual(t, "gen_deadbeef.mp3", clip.Name)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data, "a colliding name must never overwrite the existing clip")
}

func TestEvictOlderThan_EmptyAndMissingDir(t *testing.T) {
	c := newTestCache(t)
	assert.Equal(t, 0, c.EvictOlderThan(time.Hour))

	gone := &Cache{dir: filepath.Join(t.TempDir(), "missing"), tracker: tracker.New()}
	assert.Equal(t, 0, gone.EvictOlderThan(time.Hour), "missing dir must not panic the sweep")
}

func TestContains(t *testing.T) {
	c := newTestCache(t)
	clip, err := c.Store([]byte("x"), 1)
	require.NoError(t, err)

	assert.True(t, c.Contains(clip.Name))
	assert.False(t, c.Contains("explosion.mp3"), "non-namespace names are not cache-owned")
	assert.False(t, c.Contains("gen_missing0.mp3"))
	assert.False(t, c.Contains("../"+clip.Name), "path traversal must not resolve")
}
