package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/hooks"
	"github.com/agentbar/agentbar/internal/record"
	"github.com/agentbar/agentbar/internal/slot"
)

// hookPayload is the JSON payload Claude Code pipes to hook commands.
// Only the fields we need are decoded; unknown fields are ignored.
type hookPayload struct {
	HookEventName  string          `json:"hook_event_name"`
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path"`
	CWD            string          `json:"cwd"`
	Matcher        json.RawMessage `json:"matcher,omitempty"`
}

// mapEventToStatus maps a hook event to the coarse status published per slot:
//   - "active"  = the agent is processing (session just started or got a prompt)
//   - "pending" = the agent is blocked on the user, typically a permission
//   - "idle"    = the agent finished its turn and is waiting for the next one
//
// Resolution never reads this field; it drives icon choice and `agentbar
// status` only.
func mapEventToStatus(event string) string {
	switch event {
	case "SessionStart", "UserPromptSubmit":
		return "active"
	case "PermissionRequest":
		return "pending"
	case "Stop":
		return "idle"
	default:
		return ""
	}
}

// handleHookHandler consumes one hook payload from stdin and updates the
// terminal session's state record. Always exits 0 and prints nothing: a
// broken hook must never block the agent or leak into its output.
func handleHookHandler() {
	tty := os.Getenv("AGENTBAR_TTY")
	if tty == "" {
		// This agent session isn't running in an agentbar terminal.
		return
	}
	tty = slot.ShortTTY(tty)

	data, err := io.ReadAll(os.Stdin)
	if err != nil || len(data) == 0 {
		return
	}

	var payload hookPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	cfg, _ := config.Load()
	stateDir, err := cfg.GetStateDir()
	if err != nil {
		return
	}

	if payload.HookEventName == "SessionEnd" {
		// Releases the claim: other sessions may now take this transcript's
		// place in the candidate scan.
		_ = record.Remove(stateDir, tty)
		return
	}

	status := mapEventToStatus(payload.HookEventName)

	// Notification only matters when the matcher says the agent is blocked
	// on the user; plain notifications are informational.
	if payload.HookEventName == "Notification" && payload.Matcher != nil {
		var matcher string
		if err := json.Unmarshal(payload.Matcher, &matcher); err == nil {
			if matcher == "permission_prompt" || matcher == "elicitation_dialog" {
				status = "pending"
			}
		}
	}
	if status == "" {
		return
	}

	_ = record.Write(stateDir, tty, record.Record{
		SessionID:      payload.SessionID,
		TranscriptPath: payload.TranscriptPath,
		CWD:            payload.CWD,
		Event:          payload.HookEventName,
		Status:         status,
		Timestamp:      time.Now().Unix(),
	})
}

// handleHooks handles the "hooks" subcommand for manual hook management.
func handleHooks(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: agentbar hooks <install|uninstall|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "install":
		handleHooksInstall()
	case "uninstall":
		handleHooksUninstall()
	case "status":
		handleHooksStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown hooks subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: agentbar hooks <install|uninstall|status>")
		os.Exit(1)
	}
}

func handleHooksInstall() {
	configDir := config.ClaudeConfigDir()
	installed, err := hooks.Install(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error installing hooks: %v\n", err)
		os.Exit(1)
	}
	if installed {
		fmt.Println("Claude Code hooks installed.")
		fmt.Printf("Config: %s/settings.json\n", configDir)
		fmt.Println()
		fmt.Println("Sessions identify their terminal through AGENTBAR_TTY. Add to your")
		fmt.Println("shell profile:")
		fmt.Println(`  export AGENTBAR_TTY="$(tty)"`)
	} else {
		fmt.Println("Claude Code hooks are already installed.")
	}
}

func handleHooksUninstall() {
	configDir := config.ClaudeConfigDir()
	removed, err := hooks.Remove(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing hooks: %v\n", err)
		os.Exit(1)
	}
	if removed {
		fmt.Println("Claude Code hooks removed.")
	} else {
		fmt.Println("No agentbar hooks found to remove.")
	}
}

func handleHooksStatus() {
	configDir := config.ClaudeConfigDir()
	if hooks.Installed(configDir) {
		fmt.Println("Status: INSTALLED")
		fmt.Printf("Config: %s/settings.json\n", configDir)
	} else {
		fmt.Println("Status: NOT INSTALLED")
		fmt.Println("Run 'agentbar hooks install' to install.")
	}

	cfg, _ := config.Load()
	stateDir, err := cfg.GetStateDir()
	if err != nil {
		return
	}
	records := record.List(stateDir)
	fmt.Printf("State records: %d (in %s)\n", len(records), stateDir)
}
