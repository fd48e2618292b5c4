// Package tmux is the built-in snapshot provider for tmux users. When no
// provider command is configured and tmux is running, pane order stands in
// for tab order.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/agentbar/agentbar/internal/snapshot"
)

// paneFormat emits the script-provider contract: tty, pid, cwd.
const paneFormat = "#{pane_tty}\t#{pane_pid}\t#{pane_current_path}"

// runTmux executes a tmux command. Swapped in tests.
var runTmux = func(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "tmux", args...).Output()
}

// IsAvailable checks if tmux is installed and working.
func IsAvailable() error {
	cmd := exec.Command("tmux", "-V")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux not found or not working: %w (output: %s)", err, string(output))
	}
	return nil
}

// Provider lists every pane across all tmux sessions. Pane order follows
// tmux's session/window/pane ordering.
type Provider struct {
	Timeout time.Duration
}

// Fetch implements snapshot.Provider.
func (p Provider) Fetch(ctx context.Context) (snapshot.Snapshot, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = snapshot.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := runTmux(ctx, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("tmux list-panes: %w", err)
	}

	return snapshot.Parse(output, time.Now()), nil
}
