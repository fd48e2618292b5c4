package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.GetInterval())
	assert.Equal(t, 5*time.Second, cfg.GetProviderTimeout())
	assert.True(t, cfg.Sync.GetWatch())
	assert.True(t, cfg.Log.GetCompress())
	assert.Equal(t, "", cfg.Provider.Command)
	assert.Equal(t, "dark", cfg.UI.GetTheme())
}

func TestLoadFromFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
[paths]
state_dir = "/tmp/agentbar-state"
cache_file = "/tmp/agentbar-cache.env"
transcripts_root = "/tmp/projects"

[provider]
command = "iterm-tabs"
timeout_secs = 3

[sync]
interval_ms = 500
watch = false

[log]
level = "debug"
format = "text"
compress = false

[ui]
theme = "light"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	stateDir, err := cfg.GetStateDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentbar-state", stateDir)

	cacheFile, err := cfg.GetCacheFile()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentbar-cache.env", cacheFile)

	root, err := cfg.GetTranscriptsRoot()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/projects", root)

	assert.Equal(t, "iterm-tabs", cfg.Provider.Command)
	assert.Equal(t, 3*time.Second, cfg.GetProviderTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetInterval())
	assert.False(t, cfg.Sync.GetWatch())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Log.GetCompress())
	assert.Equal(t, "light", cfg.UI.GetTheme())
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[paths\nbroken"), 0644))

	cfg, err := LoadFrom(path)
	assert.Error(t, err)
	require.NotNil(t, cfg, "malformed config still yields usable defaults")
	assert.Equal(t, 2*time.Second, cfg.GetInterval())
}

func TestBaseDirEnvOverride(t *testing.T) {
	t.Setenv("AGENTBAR_DIR", "/tmp/custom-agentbar")

	dir, err := BaseDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-agentbar", dir)
}

func TestBaseDirDefault(t *testing.T) {
	t.Setenv("AGENTBAR_DIR", "")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir, err := BaseDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".agentbar"), dir)
}

func TestDefaultPathsUnderBaseDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("AGENTBAR_DIR", base)

	cfg := &Config{}

	stateDir, err := cfg.GetStateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "state"), stateDir)

	cacheFile, err := cfg.GetCacheFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "cache.env"), cacheFile)
}

func TestClaudeConfigDirEnvOverride(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "/tmp/claude-alt")
	assert.Equal(t, "/tmp/claude-alt", ClaudeConfigDir())

	cfg := &Config{}
	root, err := cfg.GetTranscriptsRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/claude-alt", "projects"), root)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{Paths: PathSettings{StateDir: "~/agentbar-state"}}
	stateDir, err := cfg.GetStateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "agentbar-state"), stateDir)
}

func TestLoadCaches(t *testing.T) {
	base := t.TempDir()
	t.Setenv("AGENTBAR_DIR", base)
	ResetCache()
	t.Cleanup(ResetCache)

	first, err := Load()
	require.NoError(t, err)

	// Writing a config after the first Load must not change the cached view
	content := "[sync]\ninterval_ms = 123\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, ConfigFileName), []byte(content), 0644))

	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)

	ResetCache()
	third, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 123*time.Millisecond, third.GetInterval())
}
