// Package slot maps live terminal sessions to menu-bar slots.
//
// The menu bar renders one icon per live session, rightmost icon first, so
// slot 1 always shows the last terminal tab. Everything here is a pure
// function of the inputs; the sync daemon recomputes the mapping from scratch
// every cycle and nothing in this package caches between calls.
package slot

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// dirNameRegex flattens a working directory into the transcript directory
// naming convention (/Users/x/proj -> -Users-x-proj).
var dirNameRegex = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// slotNumRegex pulls the slot number out of a reader plugin filename
// (AgentBar-2.1s.sh -> 2).
var slotNumRegex = regexp.MustCompile(`-([0-9]+)\.`)

// LiveSessions filters tabOrder down to the sessions present in live,
// preserving tab order. The liveness map's own ordering is irrelevant, and
// live sessions that no longer appear in tabOrder are dropped.
func LiveSessions(tabOrder []string, live map[string]int) []string {
	sessions := make([]string, 0, len(tabOrder))
	for _, id := range tabOrder {
		if _, ok := live[id]; ok {
			sessions = append(sessions, id)
		}
	}
	return sessions
}

// Map returns the session shown in slot n, counting 1-based from the right:
// slot 1 is the rightmost icon and therefore the last live tab. Slots outside
// 1..count return "" so the caller hides the icon.
func Map(tabOrder []string, live map[string]int, n int) string {
	sessions := LiveSessions(tabOrder, live)
	count := len(sessions)
	if n < 1 || n > count {
		return ""
	}
	return sessions[count-n]
}

// ShortTTY strips the /dev/ prefix from a tty device path and flattens any
// remaining path separators (pts/3 -> pts-3). Short ids double as state
// record file names, so they must never contain a separator. Already-short
// ids pass through unchanged.
func ShortTTY(tty string) string {
	short := strings.TrimPrefix(tty, "/dev/")
	return strings.ReplaceAll(short, "/", "-")
}

// ProjectHash converts a session working directory to the directory name its
// transcripts live under: every byte outside [a-zA-Z0-9-] becomes a hyphen.
func ProjectHash(cwd string) string {
	return dirNameRegex.ReplaceAllString(cwd, "-")
}

// NumberFromName extracts the slot number from a reader plugin filename such
// as AgentBar-2.1s.sh. Filenames without a numeric suffix belong to slot 1.
func NumberFromName(name string) int {
	base := filepath.Base(name)
	m := slotNumRegex.FindStringSubmatch(base)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
