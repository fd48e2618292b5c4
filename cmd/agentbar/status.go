package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/agentbar/agentbar/internal/cache"
	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/daemon"
	"github.com/agentbar/agentbar/internal/record"
	"github.com/agentbar/agentbar/internal/statedb"
)

type statusSlot struct {
	Slot        int    `json:"slot"`
	TTY         string `json:"tty"`
	TTYShort    string `json:"tty_short"`
	PID         int    `json:"pid"`
	CWD         string `json:"cwd"`
	ProjectHash string `json:"project_hash,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
	Status      string `json:"status,omitempty"`
}

type statusRecord struct {
	TTY       string `json:"tty"`
	SessionID string `json:"session_id"`
	Event     string `json:"event,omitempty"`
	Status    string `json:"status,omitempty"`
	AgeSecs   int64  `json:"age_secs,omitempty"`
}

type statusWriter struct {
	PID              int   `json:"pid"`
	HeartbeatAgeSecs int64 `json:"heartbeat_age_secs"`
}

type statusView struct {
	CachePath    string         `json:"cache_path"`
	CacheFound   bool           `json:"cache_found"`
	CacheTS      int64          `json:"cache_ts,omitempty"`
	CacheAgeSecs int64          `json:"cache_age_secs,omitempty"`
	Active       []string       `json:"active_ttys,omitempty"`
	Slots        []statusSlot   `json:"slots,omitempty"`
	Records      []statusRecord `json:"records,omitempty"`
	Writer       *statusWriter  `json:"writer,omitempty"`
}

// handleStatus shows the operator summary: cache freshness, published slots,
// state records and the writer registry.
func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Println("Usage: agentbar status [options]")
		fmt.Println()
		fmt.Println("Show cache freshness, slots, state records and the writer registry.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	shutdown := initLogging(false)
	defer shutdown()

	cfg, _ := config.Load()
	view, err := buildStatusView(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		output, _ := json.Marshal(view)
		fmt.Println(string(output))
		return
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		printStatusTable(view)
	} else {
		printStatusPlain(view)
	}
}

func buildStatusView(cfg *config.Config) (statusView, error) {
	var view statusView
	now := time.Now()

	cachePath, err := cfg.GetCacheFile()
	if err != nil {
		return view, err
	}
	view.CachePath = cachePath

	if snap, ok := cache.Read(cachePath); ok {
		view.CacheFound = true
		view.CacheTS = snap.Timestamp
		view.CacheAgeSecs = int64(snap.Age(now).Seconds())
		view.Active = snap.Active
		for i, entry := range snap.Slots {
			view.Slots = append(view.Slots, statusSlot{
				Slot:        i + 1,
				TTY:         entry.TTY,
				TTYShort:    entry.ShortTTY,
				PID:         entry.PID,
				CWD:         entry.CWD,
				ProjectHash: entry.ProjectHash,
				Transcript:  entry.Transcript,
				Status:      entry.Status,
			})
		}
	}

	stateDir, err := cfg.GetStateDir()
	if err != nil {
		return view, err
	}
	for tty, rec := range record.List(stateDir) {
		sr := statusRecord{
			TTY:       tty,
			SessionID: rec.SessionID,
			Event:     rec.Event,
			Status:    rec.Status,
		}
		if rec.Timestamp > 0 {
			sr.AgeSecs = int64(now.Sub(time.Unix(rec.Timestamp, 0)).Seconds())
		}
		view.Records = append(view.Records, sr)
	}
	sort.Slice(view.Records, func(i, j int) bool {
		return view.Records[i].TTY < view.Records[j].TTY
	})

	// Only peek at the registry when it already exists; Open would create it.
	if dbPath, err := cfg.GetStateDBPath(); err == nil {
		if _, statErr := os.Stat(dbPath); statErr == nil {
			if db, openErr := statedb.Open(dbPath); openErr == nil {
				if row, ok, _ := db.CurrentWriter(daemon.ElectionTimeout); ok {
					view.Writer = &statusWriter{
						PID:              row.PID,
						HeartbeatAgeSecs: int64(now.Sub(row.Heartbeat).Seconds()),
					}
				}
				_ = db.Close()
			}
		}
	}

	return view, nil
}

func printStatusTable(view statusView) {
	if view.CacheFound {
		fmt.Printf("Cache:   %s (published %s)\n", view.CachePath, humanize.Time(time.Unix(view.CacheTS, 0)))
	} else {
		fmt.Printf("Cache:   %s (not published yet)\n", view.CachePath)
	}

	if view.Writer != nil {
		fmt.Printf("Writer:  pid %d (heartbeat %s)\n", view.Writer.PID,
			humanize.Time(time.Now().Add(-time.Duration(view.Writer.HeartbeatAgeSecs)*time.Second)))
	} else {
		fmt.Println("Writer:  none (run 'agentbar sync')")
	}

	if len(view.Active) > 0 {
		fmt.Printf("Active:  %s\n", strings.Join(view.Active, ", "))
	}

	if len(view.Slots) > 0 {
		fmt.Println()
		fmt.Printf("%-5s %-14s %-8s %-9s %s\n", "SLOT", "TTY", "PID", "STATUS", "CWD")
		for _, s := range view.Slots {
			status := s.Status
			if status == "" {
				status = "-"
			}
			fmt.Printf("%-5d %-14s %-8d %-9s %s\n", s.Slot, s.TTY, s.PID, status, shortenHome(s.CWD))
		}
	} else {
		fmt.Println()
		fmt.Println("No slots published.")
	}

	if len(view.Records) > 0 {
		fmt.Println()
		fmt.Printf("%-10s %-9s %-18s %s\n", "RECORD", "STATUS", "EVENT", "UPDATED")
		for _, r := range view.Records {
			updated := ""
			if r.AgeSecs > 0 {
				updated = humanize.Time(time.Now().Add(-time.Duration(r.AgeSecs) * time.Second))
			}
			fmt.Printf("%-10s %-9s %-18s %s\n", r.TTY, r.Status, r.Event, updated)
		}
	}
}

func printStatusPlain(view statusView) {
	fmt.Printf("cache_path: %s\n", view.CachePath)
	fmt.Printf("cache_found: %t\n", view.CacheFound)
	if view.CacheFound {
		fmt.Printf("cache_age_secs: %d\n", view.CacheAgeSecs)
	}
	if len(view.Active) > 0 {
		fmt.Printf("active: %s\n", strings.Join(view.Active, ","))
	}
	fmt.Printf("slot_count: %d\n", len(view.Slots))
	for _, s := range view.Slots {
		fmt.Printf("slot_%d: %s %d %s\n", s.Slot, s.TTY, s.PID, s.CWD)
	}
	for _, r := range view.Records {
		fmt.Printf("record_%s: %s %s %ds\n", r.TTY, r.Status, r.Event, r.AgeSecs)
	}
	if view.Writer != nil {
		fmt.Printf("writer_pid: %d\n", view.Writer.PID)
		fmt.Printf("writer_heartbeat_age_secs: %d\n", view.Writer.HeartbeatAgeSecs)
	}
}

// shortenHome abbreviates the home directory prefix to ~.
func shortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
