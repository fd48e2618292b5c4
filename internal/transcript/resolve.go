// Package transcript resolves which transcript file a terminal session owns.
//
// There is no broker: every session answers the question independently from
// the state directory, the candidate directory and the liveness set it is
// handed. The answer is a best effort that later polling cycles refine, so
// every failure mode here collapses to "absent" rather than an error.
package transcript

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentbar/agentbar/internal/logging"
	"github.com/agentbar/agentbar/internal/record"
)

// Ext is the candidate transcript extension. Agents append one JSON object
// per line, hence the name.
const Ext = ".jsonl"

var resolverLog = logging.ForComponent(logging.CompResolver)

// Resolve returns the transcript path owned by the terminal session tty, or
// "" when no transcript can be attributed to it.
//
// Fast path: the session's own state record names a transcript that still
// exists. That record was written by the session's own hooks, so it is
// trusted even when tty is missing from live; a session asking about itself
// is proof enough that it exists.
//
// Fallback: take the newest candidate not claimed by another live session.
// Two sessions falling back in the same cycle can briefly pick the same
// transcript; the next hook write repairs that, and resolution is recomputed
// every cycle, so no locking is attempted here.
func Resolve(tty, stateDir, candidateDir string, live map[string]int) string {
	if rec, ok := record.Load(stateDir, tty); ok {
		if isFile(rec.TranscriptPath) {
			return rec.TranscriptPath
		}
	}

	claimed := claimedTranscripts(tty, stateDir, live)
	for _, path := range Candidates(candidateDir) {
		if !claimed[path] {
			resolverLog.Debug("transcript_fallback",
				slog.String("tty", tty),
				slog.String("path", path),
				slog.Int("claimed", len(claimed)),
			)
			return path
		}
	}
	return ""
}

// claimedTranscripts collects transcripts owned by other live sessions.
// A claim only counts when the owning record parses, the owner is in the
// liveness set and the transcript file still exists; records left behind by
// dead sessions block nothing.
func claimedTranscripts(tty, stateDir string, live map[string]int) map[string]bool {
	claimed := make(map[string]bool)
	for owner, rec := range record.List(stateDir) {
		if owner == tty {
			continue
		}
		if _, ok := live[owner]; !ok {
			continue
		}
		if !isFile(rec.TranscriptPath) {
			continue
		}
		claimed[rec.TranscriptPath] = true
	}
	return claimed
}

// Candidates lists the transcript files in dir in resolution order: newest
// modification time first, ties broken by path so the order is stable across
// processes. A missing or unreadable directory yields no candidates.
func Candidates(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:  filepath.Join(dir, entry.Name()),
			mtime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].mtime.Equal(candidates[j].mtime) {
			return candidates[i].mtime.After(candidates[j].mtime)
		}
		return candidates[i].path < candidates[j].path
	})

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.path
	}
	return paths
}

// isFile reports whether path names an existing regular file.
func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
