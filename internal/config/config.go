package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	Storage    StorageConfig    `json:"storage"`
	Navigation NavigationConfig `json:"navigation"`
	Visibility VisibilityConfig `json:"visibility"`
	Playback   PlaybackConfig   `json:"playback"`
	Feed       FeedConfig       `json:"feed"`
	UI         UIConfig         `json:"ui"`

	// MetricsAddr enables the Prometheus listener when set (e.g. ":9464").
	MetricsAddr string `json:"metrics_addr,omitempty"`
	LogLevel    string `json:"log_level"`
}

// StorageConfig selects the engagement persistence backend
type StorageConfig struct {
	Backend   string `json:"backend"`              // "sqlite", "redis" or "memory"
	Path      string `json:"path,omitempty"`       // sqlite file; defaults under the data dir
	RedisAddr string `json:"redis_addr,omitempty"` // redis host:port
	Profile   string `json:"profile,omitempty"`    // key prefix so profiles don't collide
}

// NavigationConfig holds input thresholds
type NavigationConfig struct {
	CooldownMs     int     `json:"cooldown_ms"`
	TouchThreshold float64 `json:"touch_threshold"`
}

// VisibilityConfig holds the grid activation threshold
type VisibilityConfig struct {
	Threshold float64 `json:"threshold"`
}

// PlaybackConfig holds playback preferences
type PlaybackConfig struct {
	StartMuted       bool `json:"start_muted"`
	WatchAutoAdvance bool `json:"watch_auto_advance"`
	LoadDelayMs      int  `json:"load_delay_ms"`  // simulated resources only
	BlockAutoplay    bool `json:"block_autoplay"` // simulate browser autoplay policy
}

// FeedConfig selects where items come from
type FeedConfig struct {
	Source   string `json:"source,omitempty"` // RSS/Atom URL or file; empty = demo
	DemoSize int    `json:"demo_size"`
	DemoSeed int64  `json:"demo_seed"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme       string `json:"theme"`
	GridColumns int    `json:"grid_columns"`
	ShowDebug   bool   `json:"show_debug"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Navigation: NavigationConfig{
			CooldownMs:     300,
			TouchThreshold: 50,
		},
		Visibility: VisibilityConfig{
			Threshold: 0.6,
		},
		Playback: PlaybackConfig{
			StartMuted:    false,
			LoadDelayMs:   400,
			BlockAutoplay: true,
		},
		Feed: FeedConfig{
			DemoSize: 24,
			DemoSeed: 42,
		},
		UI: UIConfig{
			Theme:       "dark",
			GridColumns: 2,
		},
		LogLevel: "info",
	}
}

// DataDir returns the directory holding config, database and logs
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reelfeed")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. A missing file yields defaults; a corrupt
// one yields defaults too. Environment overrides apply in both cases.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		cfg = DefaultConfig()
	}
	cfg.AutoPopulateFromEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// AutoPopulateFromEnv applies REELFEED_* environment overrides
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("REELFEED_STORAGE"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REELFEED_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
		if os.Getenv("REELFEED_STORAGE") == "" {
			c.Storage.Backend = "redis"
		}
	}
	if v := os.Getenv("REELFEED_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("REELFEED_PROFILE"); v != "" {
		c.Storage.Profile = v
	}
	if v := os.Getenv("REELFEED_FEED"); v != "" {
		c.Feed.Source = v
	}
	if v := os.Getenv("REELFEED_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("REELFEED_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// normalize replaces out-of-range values from hand-edited files
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Navigation.CooldownMs < 0 {
		c.Navigation.CooldownMs = d.Navigation.CooldownMs
	}
	if c.Navigation.TouchThreshold <= 0 {
		c.Navigation.TouchThreshold = d.Navigation.TouchThreshold
	}
	if c.Visibility.Threshold <= 0 || c.Visibility.Threshold > 1 {
		c.Visibility.Threshold = d.Visibility.Threshold
	}
	if c.Feed.DemoSize <= 0 {
		c.Feed.DemoSize = d.Feed.DemoSize
	}
	if c.UI.GridColumns <= 0 {
		c.UI.GridColumns = d.UI.GridColumns
	}
	switch c.Storage.Backend {
	case "sqlite", "redis", "memory":
	default:
		c.Storage.Backend = d.Storage.Backend
	}
}

// Cooldown returns the navigation cooldown. Zero disables it.
func (c *Config) Cooldown() time.Duration {
	if c.Navigation.CooldownMs == 0 {
		return -1
	}
	return time.Duration(c.Navigation.CooldownMs) * time.Millisecond
}

// DBPath returns the sqlite file path
func (c *Config) DBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(DataDir(), "reelfeed.db")
}

// EventLogPath returns the JSONL diagnostics log path
func EventLogPath() string {
	return filepath.Join(DataDir(), "reelfeed.events.jsonl")
}
