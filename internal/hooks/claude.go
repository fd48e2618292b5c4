// Package hooks installs agentbar's hook-handler into Claude Code settings.
//
// The hook command is how state records come into existence: Claude Code
// invokes it on lifecycle events with a JSON payload carrying session_id and
// transcript_path. Installation edits settings.json with a
// read-preserve-modify-write cycle so user hooks and unrelated settings
// survive untouched.
package hooks

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentbar/agentbar/internal/logging"
)

// hookCommand is the marker used to recognize agentbar entries in settings.json.
const hookCommand = "agentbar hook-handler"

var hookLog = logging.ForComponent(logging.CompHook)

// entry is a single hook entry in Claude Code settings.
type entry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Async   bool   `json:"async,omitempty"`
}

// matcherBlock is a matcher group in Claude Code settings.
type matcherBlock struct {
	Matcher string  `json:"matcher,omitempty"`
	Hooks   []entry `json:"hooks"`
}

// barEntry returns the hook entry agentbar installs.
func barEntry() entry {
	return entry{
		Type:    "command",
		Command: hookCommand,
		Async:   true,
	}
}

// subscribedEvents lists the lifecycle events agentbar subscribes to and
// their matcher patterns. Every one of them delivers session_id and
// transcript_path, which is all the state record needs.
var subscribedEvents = []struct {
	Event   string
	Matcher string // empty = no matcher
}{
	{Event: "SessionStart"},
	{Event: "UserPromptSubmit"},
	{Event: "Stop"},
	{Event: "PermissionRequest"},
	{Event: "Notification", Matcher: "permission_prompt|elicitation_dialog"},
	{Event: "SessionEnd"},
}

// Install injects agentbar hook entries into settings.json under configDir.
// Returns true when hooks were newly installed, false when already present.
func Install(configDir string) (bool, error) {
	settingsPath := filepath.Join(configDir, "settings.json")

	rawSettings, err := readSettings(settingsPath)
	if err != nil {
		return false, err
	}

	hooksSection := decodeHooksSection(rawSettings)
	if installed(hooksSection) {
		return false, nil
	}

	for _, sub := range subscribedEvents {
		hooksSection[sub.Event] = mergeEvent(hooksSection[sub.Event], sub.Matcher)
	}

	hooksRaw, err := json.Marshal(hooksSection)
	if err != nil {
		return false, fmt.Errorf("marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksRaw

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeSettings(settingsPath, rawSettings); err != nil {
		return false, err
	}

	hookLog.Info("hooks_installed", slog.String("config_dir", configDir))
	return true, nil
}

// Remove strips agentbar hook entries from settings.json.
// Returns true when anything was removed.
func Remove(configDir string) (bool, error) {
	settingsPath := filepath.Join(configDir, "settings.json")

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read settings.json: %w", err)
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return false, fmt.Errorf("parse settings.json: %w", err)
	}

	hooksRaw, ok := rawSettings["hooks"]
	if !ok {
		return false, nil
	}
	var hooksSection map[string]json.RawMessage
	if err := json.Unmarshal(hooksRaw, &hooksSection); err != nil {
		return false, nil
	}

	removed := false
	for _, sub := range subscribedEvents {
		raw, ok := hooksSection[sub.Event]
		if !ok {
			continue
		}
		cleaned, didRemove := removeFromEvent(raw)
		if !didRemove {
			continue
		}
		removed = true
		if cleaned == nil {
			delete(hooksSection, sub.Event)
		} else {
			hooksSection[sub.Event] = cleaned
		}
	}

	if !removed {
		return false, nil
	}

	if len(hooksSection) == 0 {
		delete(rawSettings, "hooks")
	} else {
		hooksData, _ := json.Marshal(hooksSection)
		rawSettings["hooks"] = hooksData
	}

	if err := writeSettings(settingsPath, rawSettings); err != nil {
		return false, err
	}

	hookLog.Info("hooks_removed", slog.String("config_dir", configDir))
	return true, nil
}

// Installed reports whether every subscribed event carries the agentbar hook.
func Installed(configDir string) bool {
	data, err := os.ReadFile(filepath.Join(configDir, "settings.json"))
	if err != nil {
		return false
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return false
	}
	hooksRaw, ok := rawSettings["hooks"]
	if !ok {
		return false
	}
	var hooksSection map[string]json.RawMessage
	if err := json.Unmarshal(hooksRaw, &hooksSection); err != nil {
		return false
	}
	return installed(hooksSection)
}

// readSettings loads settings.json into a shape-preserving map, starting
// fresh when the file does not exist yet.
func readSettings(settingsPath string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings.json: %w", err)
		}
		return make(map[string]json.RawMessage), nil
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return nil, fmt.Errorf("parse settings.json: %w", err)
	}
	return rawSettings, nil
}

// decodeHooksSection pulls the hooks object out of settings, tolerating a
// missing or malformed section.
func decodeHooksSection(rawSettings map[string]json.RawMessage) map[string]json.RawMessage {
	hooksSection := make(map[string]json.RawMessage)
	if raw, ok := rawSettings["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooksSection); err != nil {
			hooksSection = make(map[string]json.RawMessage)
		}
	}
	return hooksSection
}

// writeSettings atomically replaces settings.json.
func writeSettings(settingsPath string, rawSettings map[string]json.RawMessage) error {
	finalData, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmpPath := settingsPath + ".tmp"
	if err := os.WriteFile(tmpPath, finalData, 0644); err != nil {
		return fmt.Errorf("write settings.json.tmp: %w", err)
	}
	if err := os.Rename(tmpPath, settingsPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename settings.json: %w", err)
	}
	return nil
}

// installed checks that every subscribed event already carries our hook.
func installed(hooksSection map[string]json.RawMessage) bool {
	for _, sub := range subscribedEvents {
		raw, ok := hooksSection[sub.Event]
		if !ok {
			return false
		}
		if !eventHasBarHook(raw) {
			return false
		}
	}
	return true
}

// eventHasBarHook checks one event's matcher array for our command.
func eventHasBarHook(raw json.RawMessage) bool {
	var blocks []matcherBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return false
	}
	for _, b := range blocks {
		for _, h := range b.Hooks {
			if strings.Contains(h.Command, hookCommand) {
				return true
			}
		}
	}
	return false
}

// mergeEvent adds our hook to an event's matcher array, preserving every
// existing matcher and hook.
func mergeEvent(existing json.RawMessage, matcher string) json.RawMessage {
	var blocks []matcherBlock
	if existing != nil {
		if err := json.Unmarshal(existing, &blocks); err != nil {
			blocks = nil
		}
	}

	for i, b := range blocks {
		if b.Matcher != matcher {
			continue
		}
		for _, h := range b.Hooks {
			if strings.Contains(h.Command, hookCommand) {
				result, _ := json.Marshal(blocks)
				return result
			}
		}
		blocks[i].Hooks = append(blocks[i].Hooks, barEntry())
		result, _ := json.Marshal(blocks)
		return result
	}

	blocks = append(blocks, matcherBlock{
		Matcher: matcher,
		Hooks:   []entry{barEntry()},
	})
	result, _ := json.Marshal(blocks)
	return result
}

// removeFromEvent strips our entries from one event's matcher array.
// Returns nil JSON when nothing is left in the array.
func removeFromEvent(raw json.RawMessage) (json.RawMessage, bool) {
	var blocks []matcherBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return raw, false
	}

	removed := false
	var cleaned []matcherBlock
	for _, b := range blocks {
		var kept []entry
		for _, h := range b.Hooks {
			if strings.Contains(h.Command, hookCommand) {
				removed = true
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) > 0 {
			b.Hooks = kept
			cleaned = append(cleaned, b)
		} else if b.Matcher != "" && len(b.Hooks) == 0 {
			// Matcher block that was already empty; dropping it counts
			removed = true
		}
	}

	if !removed {
		return raw, false
	}
	if len(cleaned) == 0 {
		return nil, true
	}
	result, _ := json.Marshal(cleaned)
	return result, true
}
