package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholder value shipped in the default config. A key equal to this is
// treated the same as no key at all.
const APIKeyPlaceholder = "YOUR_ELEVENLABS_API_KEY_HERE"

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Library    LibraryConfig    `yaml:"library"`
	Cache      CacheConfig      `yaml:"cache"`
	Generation GenerationConfig `yaml:"generation"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	OBS        OBSConfig        `yaml:"obs"`
	History    HistoryConfig    `yaml:"history"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LibraryConfig holds settings for the curated local SFX library.
type LibraryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// CacheConfig holds settings for the generated-audio cache.
type CacheConfig struct {
	Dir              string   `yaml:"dir"`
	MaxAge           Duration `yaml:"max_age"`
	EvictionInterval Duration `yaml:"eviction_interval"`
}

// GenerationConfig holds settings for the remote sound-generation API.
type GenerationConfig struct {
	APIKey          string   `yaml:"api_key"`
	MaxDuration     float64  `yaml:"max_duration"`     // seconds, clamped to 1-22 by the client
	PromptInfluence float64  `yaml:"prompt_influence"` // 0.0 - 1.0
	Timeout         Duration `yaml:"timeout"`
}

// OverlayConfig holds settings for the browser-source overlay.
type OverlayConfig struct {
	Enabled                   bool     `yaml:"enabled"`
	ShowPrompt                bool     `yaml:"show_prompt"`
	ShowSender                bool     `yaml:"show_sender"`
	DisplayDurationAfterAudio Duration `yaml:"display_duration_after_audio"`
}

// OBSConfig holds settings for the OBS scene automation.
type OBSConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Password    string   `yaml:"password"`
	MediaInput  string   `yaml:"media_input"`
	Group       string   `yaml:"group"`
	PromptInput string   `yaml:"prompt_input"`
	SenderInput string   `yaml:"sender_input"`
	GuardMargin Duration `yaml:"guard_margin"`
	Timeout     Duration `yaml:"timeout"`
}

// HistoryConfig holds settings for the play-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "127.0.0.1:5123",
		},
		Library: LibraryConfig{
			Enabled: true,
			Dir:     "./sfx_library",
		},
		Cache: CacheConfig{
			Dir:              "./audio_cache",
			MaxAge:           Duration(24 * time.Hour),
			EvictionInterval: Duration(1 * time.Hour),
		},
		Generation: GenerationConfig{
			APIKey:          APIKeyPlaceholder,
			MaxDuration:     20,
			PromptInfluence: 0.5,
			Timeout:         Duration(60 * time.Second),
		},
		Overlay: OverlayConfig{
			Enabled:                   true,
			ShowPrompt:                true,
			ShowSender:                true,
			DisplayDurationAfterAudio: Duration(2 * time.Second),
		},
		OBS: OBSConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        4455,
			MediaInput:  "SFX Audio 1",
			Group:       "SFX",
			PromptInput: "SFX Prompt Text",
			SenderInput: "SFX Prompt Sender",
			GuardMargin: Duration(1 * time.Second),
			Timeout:     Duration(3 * time.Second),
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "./data/sfxd.db",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		cfg.applyEnvFallbacks()
		return cfg, nil
	}

	// File does not exist, save defaults.
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnvFallbacks()
	return cfg, nil
}

// applyEnvFallbacks fills credentials from the environment when the file
// leaves them empty or at the placeholder. Env values are never written back
// to disk.
func (c *Config) applyEnvFallbacks() {
	if c.Generation.APIKey == "" || c.Generation.APIKey == APIKeyPlaceholder {
		if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
			c.Generation.APIKey = key
		}
	}
	if c.OBS.Password == "" {
		if pw := os.Getenv("OBS_WEBSOCKET_PASSWORD"); pw != "" {
			c.OBS.Password = pw
		}
	}
}

// HasAPIKey reports whether a usable generation credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.Generation.APIKey != "" && c.Generation.APIKey != APIKeyPlaceholder
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# sfxd Configuration
# ------------------
# Supported duration units: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for fields that need context.
	reKey := regexp.MustCompile(`(?m)^(\s+)api_key:`)
	data = reKey.ReplaceAll(data, []byte("${1}# ElevenLabs key; falls back to ELEVENLABS_API_KEY env var\n${1}api_key:"))

	reMaxDur := regexp.MustCompile(`(?m)^(\s+)max_duration:`)
	data = reMaxDur.ReplaceAll(data, []byte("${1}# Seconds; provider supports 1-22\n${1}max_duration:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

// Redacted returns a copy of the config with credentials masked,
// suitable for serving to clients.
func (c *Config) Redacted() *Config {
	out := *c
	if c.HasAPIKey() {
		out.Generation.APIKey = "***configured***"
	} else {
		out.Generation.APIKey = "NOT SET"
	}
	if c.OBS.Password != "" {
		out.OBS.Password = "***configured***"
	}
	return &out
}
