// Package daemon runs the sync loop that publishes the slot cache.
//
// Each cycle assembles the cache from three inputs: the terminal snapshot
// (tab order, pids, working dirs), the hook records (which tabs run an agent)
// and transcript resolution. Exactly one daemon publishes at a time; the
// writer seat is held through the statedb heartbeat election, so extra copies
// started by hand or by a launchd retry yield instead of fighting over the
// cache file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/agentbar/agentbar/internal/cache"
	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/logging"
	"github.com/agentbar/agentbar/internal/platform"
	"github.com/agentbar/agentbar/internal/record"
	"github.com/agentbar/agentbar/internal/slot"
	"github.com/agentbar/agentbar/internal/snapshot"
	"github.com/agentbar/agentbar/internal/statedb"
	"github.com/agentbar/agentbar/internal/transcript"
)

const (
	// ElectionTimeout is how stale a writer heartbeat may get before another
	// daemon takes the seat over.
	ElectionTimeout = 30 * time.Second

	// Records older than this belong to terminals that went away without a
	// SessionEnd; the daemon sweeps them at startup.
	staleRecordAge = 24 * time.Hour

	// Record changes arrive in bursts (one hook event rewrites the file it
	// just created), so watcher events settle for a moment before refreshing.
	watchDebounce = 100 * time.Millisecond

	watchRefreshPerSec = 4
	watchRefreshBurst  = 2
)

var daemonLog = logging.ForComponent(logging.CompSync)

// ErrNotWriter reports that another live daemon holds the writer seat.
var ErrNotWriter = errors.New("another sync daemon holds the writer seat")

// Daemon publishes the cache on an interval and refreshes early when record
// files change.
type Daemon struct {
	cfg      *config.Config
	provider snapshot.Provider
	db       *statedb.StateDB

	// Follow keeps a non-elected daemon registered and retrying the election
	// each cycle instead of exiting.
	Follow bool

	refresh singleflight.Group
	limiter *rate.Limiter
	kicks   chan struct{}
}

// New creates a daemon. db may be nil for one-shot refreshes that skip the
// election entirely.
func New(cfg *config.Config, provider snapshot.Provider, db *statedb.StateDB) *Daemon {
	return &Daemon{
		cfg:      cfg,
		provider: provider,
		db:       db,
		limiter:  rate.NewLimiter(rate.Limit(watchRefreshPerSec), watchRefreshBurst),
		kicks:    make(chan struct{}, 1),
	}
}

// Run registers in the writer registry and publishes until ctx is cancelled.
// Without Follow it returns ErrNotWriter as soon as the election is lost.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.db.Register(); err != nil {
		return fmt.Errorf("register writer: %w", err)
	}
	defer d.db.Unregister()
	defer d.db.Resign()

	if err := d.db.CleanDead(ElectionTimeout); err != nil {
		daemonLog.Debug("clean dead writers", "error", err)
	}

	stateDir, err := d.cfg.GetStateDir()
	if err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	if n := record.CleanStale(stateDir, staleRecordAge); n > 0 {
		daemonLog.Info("stale records removed", "count", n)
	}

	if d.cfg.Sync.GetWatch() {
		stop, werr := d.watchRecords(ctx, stateDir)
		if werr != nil {
			daemonLog.Warn("record watcher unavailable, interval refresh only", "error", werr)
		} else {
			defer stop()
		}
	}

	interval := d.cfg.GetInterval()
	daemonLog.Info("sync loop starting", "id", d.db.ID(), "interval", interval, "follow", d.Follow)

	writer, err := d.tick(ctx, false)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			daemonLog.Info("sync loop stopping")
			return nil
		case <-d.kicks:
			if writer {
				if err := d.RefreshOnce(ctx); err != nil {
					daemonLog.Warn("refresh failed", "error", err)
				}
			}
		case <-time.After(interval):
			if writer, err = d.tick(ctx, writer); err != nil {
				return err
			}
		}
	}
}

// tick runs one cycle: heartbeat, confirm or take the writer seat, publish.
func (d *Daemon) tick(ctx context.Context, wasWriter bool) (bool, error) {
	if err := d.db.Heartbeat(); err != nil {
		daemonLog.Warn("heartbeat failed", "error", err)
	}

	writer, err := d.db.Elect(ElectionTimeout)
	if err != nil {
		return false, fmt.Errorf("election: %w", err)
	}

	switch {
	case writer && !wasWriter:
		daemonLog.Info("writer seat acquired", "id", d.db.ID())
	case !writer && wasWriter:
		daemonLog.Warn("writer seat lost", "id", d.db.ID())
	}

	if !writer {
		if d.Follow {
			return false, nil
		}
		if row, ok, _ := d.db.CurrentWriter(ElectionTimeout); ok {
			return false, fmt.Errorf("%w (pid %d)", ErrNotWriter, row.PID)
		}
		return false, ErrNotWriter
	}

	if err := d.RefreshOnce(ctx); err != nil {
		daemonLog.Warn("refresh failed", "error", err)
	}
	return true, nil
}

// RefreshOnce publishes one cache image. Concurrent callers collapse into a
// single publication via singleflight.
func (d *Daemon) RefreshOnce(ctx context.Context) error {
	_, err, _ := d.refresh.Do("publish", func() (interface{}, error) {
		return nil, d.publish(ctx)
	})
	return err
}

func (d *Daemon) publish(ctx context.Context) error {
	snap, err := d.provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	view, err := d.Assemble(snap)
	if err != nil {
		return err
	}

	cachePath, err := d.cfg.GetCacheFile()
	if err != nil {
		return fmt.Errorf("cache path: %w", err)
	}
	if err := cache.Write(cachePath, view); err != nil {
		return err
	}

	if d.db != nil {
		if err := d.db.SetMeta("last_publish", strconv.FormatInt(view.Timestamp, 10)); err != nil {
			daemonLog.Debug("record last publish", "error", err)
		}
	}
	daemonLog.Debug("cache published", "slots", len(view.Slots), "active", len(view.Active))
	return nil
}

// Assemble computes the cache image for one terminal snapshot. A session is
// live when its tab is open and a hook record exists for its tty. Slot 1 is
// the rightmost icon, so slot entries run in reverse tab order while
// ACTIVE_AGENT_TTYS keeps tab order.
func (d *Daemon) Assemble(snap snapshot.Snapshot) (cache.Snapshot, error) {
	stateDir, err := d.cfg.GetStateDir()
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("state dir: %w", err)
	}
	transcriptsRoot, err := d.cfg.GetTranscriptsRoot()
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("transcripts root: %w", err)
	}

	records := record.List(stateDir)
	tabs := snap.TabOrder()

	live := make(map[string]int, len(records))
	for tty := range records {
		if sess, ok := snap.ByTTY(tty); ok {
			live[tty] = sess.PID
		}
	}
	sessions := slot.LiveSessions(tabs, live)

	view := cache.Snapshot{
		Timestamp: time.Now().Unix(),
		Active:    sessions,
		Slots:     make([]cache.Entry, 0, len(sessions)),
	}
	for n := 1; n <= len(sessions); n++ {
		tty := slot.Map(tabs, live, n)
		sess, _ := snap.ByTTY(tty)

		// The hook knows the agent's working dir; the provider only knows
		// the shell's. Prefer the hook's.
		cwd := records[tty].CWD
		if cwd == "" {
			cwd = sess.CWD
		}

		entry := cache.Entry{
			TTY:         sess.TTY,
			ShortTTY:    tty,
			PID:         sess.PID,
			CWD:         cwd,
			ProjectHash: slot.ProjectHash(cwd),
			Status:      records[tty].Status,
		}
		if cwd != "" {
			candidateDir := filepath.Join(transcriptsRoot, entry.ProjectHash)
			entry.Transcript = transcript.Resolve(tty, stateDir, candidateDir, live)
		}
		view.Slots = append(view.Slots, entry)
	}
	return view, nil
}

// watchRecords triggers an early refresh when record files change. Events are
// debounced and rate limited so a hook storm cannot starve the interval loop.
// Returns a stop func.
func (d *Daemon) watchRecords(ctx context.Context, stateDir string) (func(), error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	if warning := platform.CheckFsnotifySupport(stateDir); warning != "" {
		daemonLog.Warn(warning)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(stateDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", stateDir, err)
	}
	daemonLog.Debug("watching state dir", "dir", stateDir)

	var pendingMu sync.Mutex
	var pending *time.Timer

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				pendingMu.Lock()
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(watchDebounce, d.kick)
				pendingMu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				daemonLog.Debug("watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// kick queues an early refresh. Dropped when one is already queued or the
// rate budget is spent; the interval loop covers anything dropped.
func (d *Daemon) kick() {
	if !d.limiter.Allow() {
		return
	}
	select {
	case d.kicks <- struct{}{}:
	default:
	}
}
