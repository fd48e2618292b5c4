package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/agentbar/agentbar/internal/config"
)

// handleConfig shows the config file location or the effective settings.
func handleConfig(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: agentbar config <path|show>")
		os.Exit(1)
	}

	switch args[0] {
	case "path":
		path, err := config.GetConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
	case "show":
		handleConfigShow()
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: agentbar config <path|show>")
		os.Exit(1)
	}
}

// handleConfigShow prints the effective configuration as TOML, every default
// resolved, so what it prints is exactly what the daemon runs with.
func handleConfigShow() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	eff := *cfg
	eff.Paths.StateDir, _ = cfg.GetStateDir()
	eff.Paths.CacheFile, _ = cfg.GetCacheFile()
	eff.Paths.TranscriptsRoot, _ = cfg.GetTranscriptsRoot()
	eff.Provider.TimeoutSecs = int(cfg.GetProviderTimeout().Seconds())
	eff.Sync.IntervalMS = int(cfg.GetInterval().Milliseconds())
	watch := cfg.Sync.GetWatch()
	eff.Sync.Watch = &watch
	if eff.Log.Level == "" {
		eff.Log.Level = "info"
	}
	if eff.Log.Format == "" {
		eff.Log.Format = "json"
	}
	if eff.Log.MaxSizeMB <= 0 {
		eff.Log.MaxSizeMB = 10
	}
	if eff.Log.MaxBackups <= 0 {
		eff.Log.MaxBackups = 5
	}
	if eff.Log.MaxAgeDays <= 0 {
		eff.Log.MaxAgeDays = 10
	}
	compress := cfg.Log.GetCompress()
	eff.Log.Compress = &compress

	if path, err := config.GetConfigPath(); err == nil {
		fmt.Printf("# effective configuration (%s)\n", path)
	}
	if err := toml.NewEncoder(os.Stdout).Encode(eff); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
