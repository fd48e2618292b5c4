package ui

import (
	"context"
	"sync"

	dark "github.com/thiagokokada/dark-mode-go"
)

// ThemeWatcher follows the OS appearance while the dashboard runs with theme
// "system". Changes arrive on a buffered channel; the dashboard bridges them
// into its update loop as messages.
type ThemeWatcher struct {
	changeCh chan bool // true=dark, false=light
	stop     context.CancelFunc
	stopOnce sync.Once
}

// NewThemeWatcher starts watching for appearance changes. Returns nil when
// the platform offers no dark mode signal; the dashboard then stays on the
// resolved startup theme.
func NewThemeWatcher(parentCtx context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(parentCtx)

	events, errs, err := dark.WatchDarkMode(ctx)
	if err != nil {
		cancel()
		uiLog.Warn("theme watcher unavailable", "error", err)
		return nil
	}

	tw := &ThemeWatcher{
		changeCh: make(chan bool, 1),
		stop:     cancel,
	}
	go tw.forward(ctx, events, errs)
	return tw
}

// forward pumps appearance events into changeCh. Sends never block: with a
// consumer mid-render the newest unread value wins, stale flips are dropped.
func (tw *ThemeWatcher) forward(ctx context.Context, events <-chan bool, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case isDark, ok := <-events:
			if !ok {
				return
			}
			select {
			case tw.changeCh <- isDark:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				// nil channel never selects
				errs = nil
				continue
			}
			if err != nil {
				uiLog.Warn("theme watcher error", "error", err)
			}
		}
	}
}

// ChangeChannel returns the channel that receives dark mode changes.
func (tw *ThemeWatcher) ChangeChannel() <-chan bool {
	return tw.changeCh
}

// Close stops the watcher. Safe to call multiple times.
func (tw *ThemeWatcher) Close() {
	tw.stopOnce.Do(tw.stop)
}
