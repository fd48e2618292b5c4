// Package record manages per-terminal session state records.
//
// Each terminal session running an agent owns exactly one record file,
// session-<tty>.json inside the state directory, written by the hook handler
// and read by the resolver. A record that cannot be read or parsed is treated
// as absent everywhere; resolution must keep working through torn writes,
// permission problems and hand-edited files.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	filePrefix = "session-"
	fileExt    = ".json"
)

// Record is the state a terminal session publishes about its agent.
// SessionID is the agent's own id from the hook payload; the terminal
// identity lives in the file name. Only TranscriptPath participates in
// resolution, the rest is informational. Status is one of "active",
// "pending" or "idle".
type Record struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd,omitempty"`
	Event          string `json:"event,omitempty"`
	Status         string `json:"status,omitempty"`
	Timestamp      int64  `json:"ts,omitempty"`
}

// PathFor returns the record file path for a terminal session.
func PathFor(stateDir, tty string) string {
	return filepath.Join(stateDir, filePrefix+tty+fileExt)
}

// Load reads a terminal session's record. Any failure (missing file,
// unreadable file, malformed JSON) reports ok=false.
func Load(stateDir, tty string) (Record, bool) {
	data, err := os.ReadFile(PathFor(stateDir, tty))
	if err != nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Write atomically publishes a terminal session's record.
// Uses tmp file + rename so readers never observe a partial record.
func Write(stateDir, tty string, rec Record) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	filePath := PathFor(stateDir, tty)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0644); err != nil {
		return fmt.Errorf("write tmp record: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// Remove deletes a terminal session's record. Missing files are not an error;
// the record being gone is the desired state.
func Remove(stateDir, tty string) error {
	err := os.Remove(PathFor(stateDir, tty))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// List returns every parseable record in the state directory keyed by the
// owning terminal session id. Unparseable files are skipped, a missing
// directory yields an empty map.
func List(stateDir string) map[string]Record {
	records := make(map[string]Record)

	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return records
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		tty := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
		if tty == "" {
			continue
		}
		if rec, ok := Load(stateDir, tty); ok {
			records[tty] = rec
		}
	}
	return records
}

// CleanStale removes record files older than maxAge and reports how many
// were deleted. Hook traffic refreshes live records constantly, so anything
// old belongs to a terminal that went away without a SessionEnd.
func CleanStale(stateDir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(stateDir, name)) == nil {
				removed++
			}
		}
	}
	return removed
}
