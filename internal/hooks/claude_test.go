package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSettingsFile(t *testing.T, configDir string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(configDir, "settings.json"))
	require.NoError(t, err)

	var settings map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &settings))
	return settings
}

func TestInstallIntoEmptyConfigDir(t *testing.T) {
	configDir := t.TempDir()

	installed, err := Install(configDir)
	require.NoError(t, err)
	assert.True(t, installed)
	assert.True(t, Installed(configDir))

	settings := readSettingsFile(t, configDir)
	var hooksSection map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(settings["hooks"], &hooksSection))

	for _, sub := range subscribedEvents {
		raw, ok := hooksSection[sub.Event]
		require.True(t, ok, "event %s missing", sub.Event)

		var blocks []matcherBlock
		require.NoError(t, json.Unmarshal(raw, &blocks))
		require.Len(t, blocks, 1)
		assert.Equal(t, sub.Matcher, blocks[0].Matcher)
		require.Len(t, blocks[0].Hooks, 1)
		assert.Equal(t, hookCommand, blocks[0].Hooks[0].Command)
		assert.True(t, blocks[0].Hooks[0].Async)
	}
}

func TestInstallIdempotent(t *testing.T) {
	configDir := t.TempDir()

	first, err := Install(configDir)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := Install(configDir)
	require.NoError(t, err)
	assert.False(t, second, "second install reports already present")
}

func TestInstallPreservesUserSettings(t *testing.T) {
	configDir := t.TempDir()
	existing := `{
  "model": "opus",
  "hooks": {
    "Stop": [
      {"hooks": [{"type": "command", "command": "my-notifier"}]}
    ]
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.json"), []byte(existing), 0644))

	installed, err := Install(configDir)
	require.NoError(t, err)
	require.True(t, installed)

	settings := readSettingsFile(t, configDir)
	assert.JSONEq(t, `"opus"`, string(settings["model"]), "unrelated settings preserved")

	var hooksSection map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(settings["hooks"], &hooksSection))

	var stopBlocks []matcherBlock
	require.NoError(t, json.Unmarshal(hooksSection["Stop"], &stopBlocks))
	require.Len(t, stopBlocks, 1)

	commands := make([]string, 0, len(stopBlocks[0].Hooks))
	for _, h := range stopBlocks[0].Hooks {
		commands = append(commands, h.Command)
	}
	assert.Contains(t, commands, "my-notifier")
	assert.Contains(t, commands, hookCommand)
}

func TestRemove(t *testing.T) {
	configDir := t.TempDir()
	existing := `{
  "hooks": {
    "Stop": [
      {"hooks": [{"type": "command", "command": "my-notifier"}]}
    ]
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.json"), []byte(existing), 0644))

	_, err := Install(configDir)
	require.NoError(t, err)
	require.True(t, Installed(configDir))

	removed, err := Remove(configDir)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, Installed(configDir))

	// The user's own hook survives
	settings := readSettingsFile(t, configDir)
	var hooksSection map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(settings["hooks"], &hooksSection))

	var stopBlocks []matcherBlock
	require.NoError(t, json.Unmarshal(hooksSection["Stop"], &stopBlocks))
	require.Len(t, stopBlocks, 1)
	require.Len(t, stopBlocks[0].Hooks, 1)
	assert.Equal(t, "my-notifier", stopBlocks[0].Hooks[0].Command)

	// Events that only carried our hook are gone entirely
	_, hasSessionStart := hooksSection["SessionStart"]
	assert.False(t, hasSessionStart)

	// Removing again is a no-op
	removed, err = Remove(configDir)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveCleansEmptyHooksKey(t *testing.T) {
	configDir := t.TempDir()

	_, err := Install(configDir)
	require.NoError(t, err)

	removed, err := Remove(configDir)
	require.NoError(t, err)
	require.True(t, removed)

	settings := readSettingsFile(t, configDir)
	_, hasHooks := settings["hooks"]
	assert.False(t, hasHooks, "empty hooks section is dropped")
}

func TestRemoveMissingFile(t *testing.T) {
	removed, err := Remove(t.TempDir())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestInstalledOnMalformedSettings(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.json"), []byte("{oops"), 0644))

	assert.False(t, Installed(configDir))
}

func TestInstallOnMalformedSettingsErrors(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.json"), []byte("{oops"), 0644))

	_, err := Install(configDir)
	assert.Error(t, err, "refuse to clobber a file we cannot parse")
}
