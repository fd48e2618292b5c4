package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/agentbar/agentbar/internal/cache"
	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/slot"
)

// handleSlot prints one slot's published fields as key=value lines for a
// menu-bar reader plugin. The argument is either a slot number or the
// reader's own filename (AgentBar-3.1s.sh), so a plugin can pass $0.
// A missing cache or an out-of-range slot prints exactly STATE=hidden.
// Always exits 0: the strip renders whatever it gets.
func handleSlot(args []string) {
	shutdown := initLogging(false)
	defer shutdown()

	fs := flag.NewFlagSet("slot", flag.ExitOnError)
	cachePath := fs.String("cache", "", "cache file to read (default: resolved from config)")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentbar slot <n|plugin-filename> [--cache <path>]")
		fmt.Println("STATE=hidden")
		return
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		n = slot.NumberFromName(rest[0])
	}

	path := *cachePath
	if path == "" {
		cfg, _ := config.Load()
		resolved, err := cfg.GetCacheFile()
		if err != nil {
			fmt.Println("STATE=hidden")
			return
		}
		path = resolved
	}

	snap, ok := cache.Read(path)
	if !ok {
		fmt.Println("STATE=hidden")
		return
	}
	entry, ok := snap.Slot(n)
	if !ok {
		fmt.Println("STATE=hidden")
		return
	}

	fmt.Printf("SLOT=%d\n", n)
	fmt.Println("STATE=shown")
	fmt.Printf("TTY=%s\n", entry.TTY)
	fmt.Printf("TTY_SHORT=%s\n", entry.ShortTTY)
	fmt.Printf("PID=%d\n", entry.PID)
	fmt.Printf("CWD=%s\n", entry.CWD)
	fmt.Printf("PROJECT_HASH=%s\n", entry.ProjectHash)
	if entry.Transcript != "" {
		fmt.Printf("TRANSCRIPT=%s\n", entry.Transcript)
	}
	if entry.Status != "" {
		fmt.Printf("STATUS=%s\n", entry.Status)
	}
	fmt.Printf("CACHE_AGE_SECS=%d\n", int(snap.Age(time.Now()).Seconds()))
}
