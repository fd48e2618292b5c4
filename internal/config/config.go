// Package config loads agentbar's TOML user configuration.
//
// Everything has a default; a missing config file is the common case and
// means "all defaults". The file lives in the agentbar base directory
// (~/.agentbar, overridable through AGENTBAR_DIR for tests and odd setups).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the config file name inside the base directory.
const ConfigFileName = "config.toml"

// Config is the user configuration. Every section and field is optional.
type Config struct {
	Paths    PathSettings     `toml:"paths"`
	Provider ProviderSettings `toml:"provider"`
	Sync     SyncSettings     `toml:"sync"`
	Log      LogSettings      `toml:"log"`
	UI       UISettings       `toml:"ui"`
}

// PathSettings overrides the data locations.
type PathSettings struct {
	// StateDir holds the per-session state records
	// Default: <base>/state
	StateDir string `toml:"state_dir"`

	// CacheFile is the published slot cache
	// Default: <base>/cache.env
	CacheFile string `toml:"cache_file"`

	// TranscriptsRoot is where agent transcripts live, one subdirectory per
	// project hash. Default: <claude config dir>/projects
	TranscriptsRoot string `toml:"transcripts_root"`
}

// ProviderSettings configures the terminal snapshot command.
type ProviderSettings struct {
	// Command is run via `sh -c` and must print one tab per line:
	// tty<TAB>pid<TAB>cwd
	Command string `toml:"command"`

	// TimeoutSecs bounds one provider run (default: 5)
	TimeoutSecs int `toml:"timeout_secs"`
}

// SyncSettings configures the cache writer daemon.
type SyncSettings struct {
	// IntervalMS is the polling interval in milliseconds (default: 2000)
	IntervalMS int `toml:"interval_ms"`

	// Watch enables the state-directory watcher for reactive refreshes
	// (default: true)
	Watch *bool `toml:"watch"`
}

// GetWatch returns whether the state-dir watcher is enabled, defaulting to true.
func (s *SyncSettings) GetWatch() bool {
	if s.Watch == nil {
		return true
	}
	return *s.Watch
}

// LogSettings configures the debug log.
type LogSettings struct {
	// Level is the minimum level: debug, info, warn, error (default: info)
	Level string `toml:"level"`

	// Format is "json" or "text" (default: json)
	Format string `toml:"format"`

	// MaxSizeMB before rotation (default: 10)
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups rotated files to keep (default: 5)
	MaxBackups int `toml:"max_backups"`

	// MaxAgeDays to keep rotated files (default: 10)
	MaxAgeDays int `toml:"max_age_days"`

	// Compress rotated files (default: true)
	Compress *bool `toml:"compress"`
}

// GetCompress returns whether rotated logs are compressed, defaulting to true.
func (l *LogSettings) GetCompress() bool {
	if l.Compress == nil {
		return true
	}
	return *l.Compress
}

// UISettings configures the watch dashboard.
type UISettings struct {
	// Theme is "dark", "light" or "system" (default: dark)
	Theme string `toml:"theme"`
}

// GetTheme returns the configured theme, defaulting to dark.
func (u *UISettings) GetTheme() string {
	if u.Theme == "" {
		return "dark"
	}
	return u.Theme
}

var (
	configCache   *Config
	configCacheMu sync.RWMutex
)

// BaseDir returns the agentbar home directory: $AGENTBAR_DIR when set,
// otherwise ~/.agentbar.
func BaseDir() (string, error) {
	if dir := os.Getenv("AGENTBAR_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".agentbar"), nil
}

// GetConfigPath returns the path to the user config file.
func GetConfigPath() (string, error) {
	dir, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load returns the user configuration, cached after the first read.
// A missing file yields defaults; a malformed file yields defaults plus the
// parse error so callers can surface it.
func Load() (*Config, error) {
	configCacheMu.RLock()
	if configCache != nil {
		defer configCacheMu.RUnlock()
		return configCache, nil
	}
	configCacheMu.RUnlock()

	configCacheMu.Lock()
	defer configCacheMu.Unlock()
	if configCache != nil {
		return configCache, nil
	}

	path, err := GetConfigPath()
	if err != nil {
		configCache = &Config{}
		return configCache, nil
	}

	cfg, err := LoadFrom(path)
	configCache = cfg
	return configCache, err
}

// LoadFrom parses one config file without touching the cache.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &Config{}, fmt.Errorf("config.toml parse error: %w", err)
	}
	return &cfg, nil
}

// ResetCache clears the cached config. Tests only.
func ResetCache() {
	configCacheMu.Lock()
	configCache = nil
	configCacheMu.Unlock()
}

// ClaudeConfigDir returns the agent's config directory: $CLAUDE_CONFIG_DIR
// when set, otherwise ~/.claude.
func ClaudeConfigDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".claude")
	}
	return filepath.Join(home, ".claude")
}

// GetStateDir resolves the state records directory.
func (c *Config) GetStateDir() (string, error) {
	if c.Paths.StateDir != "" {
		return expandPath(c.Paths.StateDir)
	}
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "state"), nil
}

// GetCacheFile resolves the published cache path.
func (c *Config) GetCacheFile() (string, error) {
	if c.Paths.CacheFile != "" {
		return expandPath(c.Paths.CacheFile)
	}
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cache.env"), nil
}

// GetStateDBPath resolves the writer registry database path.
func (c *Config) GetStateDBPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "state.db"), nil
}

// GetTranscriptsRoot resolves the transcripts root directory.
func (c *Config) GetTranscriptsRoot() (string, error) {
	if c.Paths.TranscriptsRoot != "" {
		return expandPath(c.Paths.TranscriptsRoot)
	}
	return filepath.Join(ClaudeConfigDir(), "projects"), nil
}

// GetInterval returns the sync polling interval.
func (c *Config) GetInterval() time.Duration {
	if c.Sync.IntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Sync.IntervalMS) * time.Millisecond
}

// GetProviderTimeout returns the snapshot command timeout.
func (c *Config) GetProviderTimeout() time.Duration {
	if c.Provider.TimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// expandPath resolves a leading ~/ against the home directory.
func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
