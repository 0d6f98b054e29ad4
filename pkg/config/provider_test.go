package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  max_duration: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	p := NewProvider(path, cfg)
	assert.Equal(t, 5.0, p.Current().Generation.MaxDuration)

	require.NoError(t, os.WriteFile(path, []byte("generation:\n  max_duration: 12\n"), 0o644))
	_, err = p.Reload()
	require.NoError(t, err)
	assert.Equal(t, 12.0, p.Current().Generation.MaxDuration)
}

func TestProviderReloadWithoutFile(t *testing.T) {
	p := NewProvider("", DefaultConfig())
	_, err := p.Reload()
	assert.Error(t, err)
}

func TestProviderReloadKeepsCurrentOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  max_duration: 5\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	p := NewProvider(path, cfg)

	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml ["), 0o644))
	_, err = p.Reload()
	require.Error(t, err)
	assert.Equal(t, 5.0, p.Current().Generation.MaxDuration, "failed reload must keep the old config")
}
