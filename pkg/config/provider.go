package config

import (
	"fmt"
	"sync/atomic"
)

// Provider hands out the current configuration and supports atomic reload
// from disk. Components that should honor a runtime reload read through
// Current on every use; connection-level settings (server address, OBS
// host) are only picked up on restart.
type Provider struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewProvider creates a provider seeded with cfg. path may be empty when
// there is no backing file; Reload then fails.
func NewProvider(path string, cfg *Config) *Provider {
	p := &Provider{path: path}
	p.cur.Store(cfg)
	return p
}

// Current returns the active configuration. The returned value must be
// treated as read-only.
func (p *Provider) Current() *Config {
	return p.cur.Load()
}

// Set swaps in a configuration directly, bypassing the backing file.
func (p *Provider) Set(cfg *Config) {
	p.cur.Store(cfg)
}

// Reload re-reads the backing file and swaps the new configuration in.
func (p *Provider) Reload() (*Config, error) {
	if p.path == "" {
		return nil, fmt.Errorf("no config file to reload")
	}
	cfg, err := Load(p.path)
	if err != nil {
		return nil, fmt.Errorf("reloading config: %w", err)
	}
	p.cur.Store(cfg)
	return cfg, nil
}
