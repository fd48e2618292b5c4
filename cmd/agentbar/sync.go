package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/daemon"
	"github.com/agentbar/agentbar/internal/snapshot"
	"github.com/agentbar/agentbar/internal/statedb"
	"github.com/agentbar/agentbar/internal/tmux"
)

// handleSync runs the cache writer.
func handleSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	once := fs.Bool("once", false, "Publish one cache image and exit (skips the election)")
	follow := fs.Bool("follow", false, "Wait for the writer seat instead of exiting when it is taken")
	interval := fs.Duration("interval", 0, "Override the polling interval (e.g. 500ms, 5s)")

	fs.Usage = func() {
		fmt.Println("Usage: agentbar sync [options]")
		fmt.Println()
		fmt.Println("Publish the slot cache. One elected daemon owns publication; extra")
		fmt.Println("copies exit (or wait, with --follow) instead of double-writing.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	shutdown := initLogging(true)
	defer shutdown()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (continuing with defaults)\n", err)
	}
	if *interval > 0 {
		tuned := *cfg
		tuned.Sync.IntervalMS = int(interval.Milliseconds())
		cfg = &tuned
	}

	provider, err := resolveProvider(cfg)
	if err != nil {
		configPath, _ := config.GetConfigPath()
		fmt.Fprintln(os.Stderr, "Error: no snapshot provider configured and tmux is not running.")
		fmt.Fprintf(os.Stderr, "Add a [provider] command to %s, for example:\n", configPath)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  [provider]")
		fmt.Fprintln(os.Stderr, `  command = "~/.agentbar/bin/list-tabs.sh"`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "The command must print one line per terminal tab: tty<TAB>pid<TAB>cwd")
		os.Exit(1)
	}

	dbPath, err := cfg.GetStateDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	db, err := statedb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	d := daemon.New(cfg, provider, db)
	d.Follow = *follow

	if *once {
		if err := d.RefreshOnce(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, daemon.ErrNotWriter) {
			// Yielding to the elected writer is normal operation, not a failure.
			fmt.Fprintf(os.Stderr, "%v; exiting (use --follow to wait for the seat)\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveProvider picks the snapshot source: the configured command when one
// is set, otherwise tmux when a server is reachable.
func resolveProvider(cfg *config.Config) (snapshot.Provider, error) {
	if cfg.Provider.Command != "" {
		return snapshot.ScriptProvider{
			Command: cfg.Provider.Command,
			Timeout: cfg.GetProviderTimeout(),
		}, nil
	}
	if err := tmux.IsAvailable(); err != nil {
		return nil, fmt.Errorf("no provider available: %w", err)
	}
	fmt.Fprintln(os.Stderr, "No provider command configured; using tmux panes as the tab source")
	return tmux.Provider{Timeout: cfg.GetProviderTimeout()}, nil
}
