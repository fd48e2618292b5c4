package main

import (
	"fmt"
	"os"

	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/logging"
)

const Version = "0.3.1"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printHelp()
		return
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Printf("agentbar v%s\n", Version)
	case "help", "--help", "-h":
		printHelp()
	case "resolve":
		handleResolve(args[1:])
	case "slot":
		handleSlot(args[1:])
	case "sync":
		handleSync(args[1:])
	case "hook-handler":
		handleHookHandler()
	case "hooks":
		handleHooks(args[1:])
	case "status":
		handleStatus(args[1:])
	case "watch":
		handleWatch(args[1:])
	case "config":
		handleConfig(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

// initLogging sets up the debug log and returns the shutdown func.
//
// Commands that run inside agent hooks and menu-bar plugins (resolve, slot,
// hook-handler) stay quiet unless AGENTBAR_DEBUG is set; anything they print
// or fsync costs latency on every prompt. The sync daemon passes
// alwaysFile=true because the log file is its only visibility.
func initLogging(alwaysFile bool) func() {
	debugMode := os.Getenv("AGENTBAR_DEBUG") != ""

	logCfg := logging.Config{
		Debug:  debugMode,
		Level:  "info",
		Format: "json",
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	if debugMode || alwaysFile {
		if baseDir, err := config.BaseDir(); err == nil {
			logCfg.LogDir = baseDir
		}
	}

	if cfg, err := config.Load(); err == nil {
		ls := cfg.Log
		if ls.Level != "" {
			logCfg.Level = ls.Level
		}
		if ls.Format != "" {
			logCfg.Format = ls.Format
		}
		if ls.MaxSizeMB > 0 {
			logCfg.MaxSizeMB = ls.MaxSizeMB
		}
		if ls.MaxBackups > 0 {
			logCfg.MaxBackups = ls.MaxBackups
		}
		if ls.MaxAgeDays > 0 {
			logCfg.MaxAgeDays = ls.MaxAgeDays
		}
		logCfg.Compress = ls.GetCompress()
	}

	logging.Init(logCfg)
	return logging.Shutdown
}

func printHelp() {
	fmt.Println(`agentbar - menu bar data plane for terminal agent sessions

Usage:
  agentbar <command> [arguments]

Commands:
  sync [--once] [--follow] [--interval <dur>]
        Run the cache writer. One elected daemon publishes
        ~/.agentbar/cache.env every cycle; --once publishes a single
        image and exits, --follow waits for the writer seat instead
        of exiting when another daemon holds it.

  slot <n|plugin-filename> [--cache <path>]
        Print one slot's fields as key=value lines for a menu-bar
        plugin. Hidden slots print STATE=hidden. Always exits 0.

  resolve <session-id> <state-dir> <candidate-dir> <live-csv>
        Print the transcript path for a terminal session, or nothing
        when resolution fails. Always exits 0.

  hook-handler
        Consume one agent hook payload from stdin and update the
        session's state record. Registered by 'hooks install'.

  hooks <install|uninstall|status>
        Manage the hook-handler entries in Claude Code settings.json.

  status [--json]
        Show cache freshness, slots, records and the writer registry.

  watch
        Live dashboard over the published cache. j/k move, / filter,
        y copy transcript path, q quit.

  config <path|show>
        Show the config file location or the effective settings.

  version
        Print the version.

Environment:
  AGENTBAR_DIR     Base directory (default: ~/.agentbar)
  AGENTBAR_TTY     Terminal identity used by hook-handler
  AGENTBAR_DEBUG   Write debug logs to <base>/debug.log
  AGENTBAR_COLOR   Force a color profile for watch: truecolor, 256, 16, none`)
}
