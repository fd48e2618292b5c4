// Package snapshot supplies the terminal state the sync daemon works from.
//
// How tabs and foreground agents are discovered is deliberately not this
// package's business: a user-configured provider command owns that (osascript
// against iTerm2, lsof, tmux list-panes, anything). This package only runs
// the command and parses its output into tab order, liveness and per-session
// fields.
package snapshot

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/agentbar/agentbar/internal/slot"
)

// DefaultTimeout bounds a provider run. Providers shell out to terminal
// emulators which can wedge; the daemon must not wedge with them.
const DefaultTimeout = 5 * time.Second

// Session is one terminal tab running an agent.
type Session struct {
	TTY      string // device path as reported by the provider
	ShortTTY string // canonical short id (ttys009, pts-3)
	PID      int
	CWD      string
}

// Snapshot is the terminal state at one instant. Sessions are in tab order,
// leftmost tab first.
type Snapshot struct {
	Sessions []Session
	Taken    time.Time
}

// TabOrder returns the short session ids in tab order.
func (s Snapshot) TabOrder() []string {
	order := make([]string, len(s.Sessions))
	for i, sess := range s.Sessions {
		order[i] = sess.ShortTTY
	}
	return order
}

// Liveness returns the short id -> pid map. Downstream code only tests key
// membership; the pid rides along for the cache.
func (s Snapshot) Liveness() map[string]int {
	live := make(map[string]int, len(s.Sessions))
	for _, sess := range s.Sessions {
		live[sess.ShortTTY] = sess.PID
	}
	return live
}

// ByTTY looks a session up by its short id.
func (s Snapshot) ByTTY(short string) (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ShortTTY == short {
			return sess, true
		}
	}
	return Session{}, false
}

// Provider produces terminal snapshots.
type Provider interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// ScriptProvider runs a shell command and parses its stdout. One line per
// tab, tab-separated: tty device, foreground pid, working directory.
type ScriptProvider struct {
	Command string
	Timeout time.Duration
}

// Fetch runs the provider command under a timeout.
func (p ScriptProvider) Fetch(ctx context.Context) (Snapshot, error) {
	if p.Command == "" {
		return Snapshot{}, fmt.Errorf("no provider command configured")
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	output, err := cmd.Output()
	if err != nil {
		return Snapshot{}, fmt.Errorf("provider command: %w", err)
	}

	return Parse(output, time.Now()), nil
}

// Parse decodes provider output. Blank and malformed lines are skipped; a
// tty listed twice keeps its first (leftmost) position.
func Parse(output []byte, taken time.Time) Snapshot {
	snap := Snapshot{Taken: taken}
	seen := make(map[string]bool)

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 2 {
			continue
		}

		tty := strings.TrimSpace(parts[0])
		pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if tty == "" || err != nil {
			continue
		}

		short := slot.ShortTTY(tty)
		if seen[short] {
			continue
		}
		seen[short] = true

		sess := Session{TTY: tty, ShortTTY: short, PID: pid}
		if len(parts) == 3 {
			sess.CWD = strings.TrimSpace(parts[2])
		}
		snap.Sessions = append(snap.Sessions, sess)
	}
	return snap
}
