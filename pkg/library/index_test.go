package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sfxd/internal/testutil"
	"sfxd/pkg/media"
)

func TestIndex_Lookup(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "Explosion.wav"), time.Second)
	testutil.WriteWAV(t, filepath.Join(dir, "thunder clap.wav"), time.Second)
	// Non-audio files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	ix := NewIndex(dir)

	e, ok := ix.Lookup("explosion")
	assert.True(t, ok, "normalized key should match mixed-case filename")
	assert.Equal(t, "Explosion.wav", e.Name)
	assert.InDelta(t, time.Second, e.Duration, float64(50*time.Millisecond), "duration should be measured from the asset")

	_, ok = ix.Lookup("explo")
	assert.False(t, ok, "matching is exact only, no prefix matches")

	_, ok = ix.Lookup("thunder")
	assert.False(t, ok, "matching is exact only, no substring matches")

	_, ok = ix.Lookup("readme")
	assert.False(t, ok, "non-audio files must not be indexed")
}

func TestIndex_UnparseableAssetGetsFallbackDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "explosion.mp3"), []byte("not an mp3"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	ix := NewIndex(dir)

	e, ok := ix.Lookup("explosion")
	assert.True(t, ok, "undecodable assets are still served")
	assert.Equal(t, media.FallbackDuration, e.Duration, "duration degrades to the fallback, never zero")
}

func TestIndex_DiscoversNewFilesWithoutRestart(t *testing.T) {
	dir := t.TempDir()
	ix := NewIndex(dir)

	_, ok := ix.Lookup("boom")
	assert.False(t, ok)

	testutil.WriteWAV(t, filepath.Join(dir, "boom.wav"), time.Second)

	_, ok = ix.Lookup("boom")
	assert.True(t, ok, "files added after index creation must be discoverable")
}

func TestIndex_Names(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "b.wav"), time.Second)
	testutil.WriteWAV(t, filepath.Join(dir, "a.wav"), time.Second)

	ix := NewIndex(dir)
	assert.Equal(t, []string{"a.wav", "b.wav"}, ix.Names())
	assert.Equal(t, 2, ix.Count())
}

func TestIndex_Contains(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "zap.wav"), time.Second)

	ix := NewIndex(dir)
	assert.True(t, ix.Contains("zap.wav"))
	assert.False(t, ix.Contains("zap.mp3"))
	assert.False(t, ix.Contains("../zap.wav"))
}

func TestIndex_MissingDir(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "does-not-exist"))
	_, ok := ix.Lookup("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, ix.Count())
}
