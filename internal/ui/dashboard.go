// Package ui renders the watch dashboard: a live terminal view of the
// published slot cache and the hook records behind it.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/agentbar/agentbar/internal/cache"
	"github.com/agentbar/agentbar/internal/clipboard"
	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/logging"
	"github.com/agentbar/agentbar/internal/record"
)

var uiLog = logging.ForComponent(logging.CompUI)

const (
	tickInterval = time.Second

	// staleAfter marks the cache as stale in the header; three missed sync
	// intervals at the default cadence.
	staleAfter = 10 * time.Second

	flashDuration = 3 * time.Second
)

type tickMsg time.Time

// themeChangedMsg reports an OS dark mode flip while theme is "system".
type themeChangedMsg struct {
	dark bool
}

// slotRow is one dashboard line: a published slot joined with its hook record.
type slotRow struct {
	Slot       int
	TTY        string
	PID        int
	CWD        string
	Status     string
	Transcript string
	Event      string
	Updated    time.Time
}

// rowSource implements fuzzy.Source over slot rows. Queries match the
// working directory and the tty name.
type rowSource struct {
	rows []slotRow
}

func (s rowSource) String(i int) string {
	return s.rows[i].CWD + " " + s.rows[i].TTY
}

func (s rowSource) Len() int {
	return len(s.rows)
}

// Dashboard is the watch TUI model. It reloads the cache and records every
// tick, so it tracks whatever the sync daemon publishes without talking to
// the daemon itself.
type Dashboard struct {
	cfg *config.Config

	rows     []slotRow
	filtered []slotRow
	cursor   int

	cacheOK bool
	cacheTS int64

	filter    textinput.Model
	filtering bool

	flash   string
	flashAt time.Time

	width  int
	height int

	supportsOSC52 bool
	themeWatcher  *ThemeWatcher
}

// NewDashboard creates the dashboard and performs the initial load.
func NewDashboard(cfg *config.Config) *Dashboard {
	ti := textinput.New()
	ti.Placeholder = "Filter by directory or tty..."
	ti.CharLimit = 100
	ti.Width = 40

	d := &Dashboard{
		cfg:           cfg,
		filter:        ti,
		supportsOSC52: clipboard.SupportsOSC52(),
	}
	if cfg.UI.GetTheme() == "system" {
		d.themeWatcher = NewThemeWatcher(context.Background())
	}
	d.reload()
	return d
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, d.tick()}
	if d.themeWatcher != nil {
		cmds = append(cmds, listenForThemeChanges(d.themeWatcher))
	}
	return tea.Batch(cmds...)
}

// listenForThemeChanges waits for the next OS dark mode flip.
func listenForThemeChanges(tw *ThemeWatcher) tea.Cmd {
	return func() tea.Msg {
		if tw == nil {
			return nil
		}
		isDark, ok := <-tw.ChangeChannel()
		if !ok {
			return nil
		}
		return themeChangedMsg{dark: isDark}
	}
}

// tick returns a command that sends a tick message at regular intervals
func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tickMsg:
		d.reload()
		if d.flash != "" && time.Since(d.flashAt) > flashDuration {
			d.flash = ""
		}
		return d, d.tick()

	case themeChangedMsg:
		if msg.dark {
			InitTheme("dark")
		} else {
			InitTheme("light")
		}
		return d, listenForThemeChanges(d.themeWatcher)

	case tea.KeyMsg:
		if d.filtering {
			return d.updateFiltering(msg)
		}
		return d.updateBrowsing(msg)
	}

	return d, nil
}

// updateFiltering handles keys while the filter input has focus.
func (d *Dashboard) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if d.themeWatcher != nil {
			d.themeWatcher.Close()
		}
		return d, tea.Quit

	case "esc":
		d.filtering = false
		d.filter.Blur()
		d.filter.SetValue("")
		d.applyFilter()
		return d, nil

	case "enter":
		d.filtering = false
		d.filter.Blur()
		return d, nil

	case "up", "ctrl+k":
		if d.cursor > 0 {
			d.cursor--
		}
		return d, nil

	case "down", "ctrl+j":
		if d.cursor < len(d.filtered)-1 {
			d.cursor++
		}
		return d, nil

	default:
		var cmd tea.Cmd
		d.filter, cmd = d.filter.Update(msg)
		d.applyFilter()
		return d, cmd
	}
}

// updateBrowsing handles keys in the normal list view.
func (d *Dashboard) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if d.themeWatcher != nil {
			d.themeWatcher.Close()
		}
		return d, tea.Quit

	case "j", "down":
		if d.cursor < len(d.filtered)-1 {
			d.cursor++
		}

	case "k", "up":
		if d.cursor > 0 {
			d.cursor--
		}

	case "g", "home":
		d.cursor = 0

	case "G", "end":
		if len(d.filtered) > 0 {
			d.cursor = len(d.filtered) - 1
		}

	case "/":
		d.filtering = true
		d.filter.Focus()
		return d, textinput.Blink

	case "esc":
		if d.filter.Value() != "" {
			d.filter.SetValue("")
			d.applyFilter()
		}

	case "y":
		d.yankTranscript()

	case "r":
		d.reload()
	}

	return d, nil
}

// reload reads the published cache and the state records from disk. Called on
// every tick; both are small flat files so rereading beats any invalidation
// scheme.
func (d *Dashboard) reload() {
	d.rows = nil
	d.cacheOK = false

	var recs map[string]record.Record
	if stateDir, err := d.cfg.GetStateDir(); err == nil {
		recs = record.List(stateDir)
	}

	cachePath, err := d.cfg.GetCacheFile()
	if err != nil {
		d.applyFilter()
		return
	}
	snap, ok := cache.Read(cachePath)
	if !ok {
		d.applyFilter()
		return
	}

	d.cacheOK = true
	d.cacheTS = snap.Timestamp
	for i, entry := range snap.Slots {
		row := slotRow{
			Slot:       i + 1,
			TTY:        entry.ShortTTY,
			PID:        entry.PID,
			CWD:        entry.CWD,
			Status:     entry.Status,
			Transcript: entry.Transcript,
		}
		if rec, found := recs[entry.ShortTTY]; found {
			row.Event = rec.Event
			if rec.Timestamp > 0 {
				row.Updated = time.Unix(rec.Timestamp, 0)
			}
			if row.Status == "" {
				row.Status = rec.Status
			}
		}
		d.rows = append(d.rows, row)
	}
	d.applyFilter()
}

// applyFilter recomputes the visible rows from the current query.
func (d *Dashboard) applyFilter() {
	query := d.filter.Value()
	if query == "" {
		d.filtered = d.rows
	} else {
		matches := fuzzy.FindFrom(query, rowSource{rows: d.rows})
		filtered := make([]slotRow, 0, len(matches))
		for _, match := range matches {
			filtered = append(filtered, d.rows[match.Index])
		}
		d.filtered = filtered
	}

	if d.cursor >= len(d.filtered) {
		d.cursor = len(d.filtered) - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
}

// selected returns the row under the cursor.
func (d *Dashboard) selected() (slotRow, bool) {
	if len(d.filtered) == 0 || d.cursor >= len(d.filtered) {
		return slotRow{}, false
	}
	return d.filtered[d.cursor], true
}

// yankTranscript copies the selected slot's transcript path to the clipboard.
func (d *Dashboard) yankTranscript() {
	row, ok := d.selected()
	if !ok {
		return
	}
	if row.Transcript == "" {
		d.setFlash("no transcript resolved for this slot")
		return
	}

	result, err := clipboard.Copy(row.Transcript, d.supportsOSC52)
	if err != nil {
		uiLog.Warn("clipboard copy failed", "error", err)
		d.setFlash("copy failed: " + err.Error())
		return
	}
	d.setFlash("copied transcript path via " + result.Method)
}

func (d *Dashboard) setFlash(msg string) {
	d.flash = msg
	d.flashAt = time.Now()
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(d.header())
	b.WriteString("\n\n")

	if d.filtering || d.filter.Value() != "" {
		b.WriteString(SearchBoxStyle.Render(d.filter.View()))
		b.WriteString("\n")
	}

	switch {
	case !d.cacheOK:
		b.WriteString(DimStyle.Render("  no cache published yet. Run 'agentbar sync' to start the daemon."))
		b.WriteString("\n")
	case len(d.filtered) == 0 && d.filter.Value() != "":
		b.WriteString(DimStyle.Render("  no slots match the filter"))
		b.WriteString("\n")
	case len(d.filtered) == 0:
		b.WriteString(DimStyle.Render("  no live agent sessions"))
		b.WriteString("\n")
	default:
		visible := d.visibleRows()
		for i, row := range d.filtered {
			if i >= visible {
				b.WriteString(DimStyle.Render(fmt.Sprintf("  +%d more", len(d.filtered)-visible)))
				b.WriteString("\n")
				break
			}
			b.WriteString(d.renderRow(row, i == d.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(d.footer())
	return b.String()
}

// header shows the title and cache freshness.
func (d *Dashboard) header() string {
	title := TitleStyle.Render("agentbar")

	var fresh string
	switch {
	case !d.cacheOK:
		fresh = ErrorStyle.Render("cache missing")
	case time.Since(time.Unix(d.cacheTS, 0)) > staleAfter:
		fresh = StaleStyle.Render(fmt.Sprintf("stale, published %s", humanize.Time(time.Unix(d.cacheTS, 0))))
	default:
		fresh = DimStyle.Render("published " + humanize.Time(time.Unix(d.cacheTS, 0)))
	}

	count := ""
	if d.cacheOK {
		count = DimStyle.Render(fmt.Sprintf("%d agents", len(d.rows))) + "  "
	}

	return title + "  " + count + fresh
}

// renderRow formats one slot line. Slot 1 is the rightmost menu-bar icon.
func (d *Dashboard) renderRow(row slotRow, selected bool) string {
	cwd := shortenPath(row.CWD)
	if maxCWD := d.width - 30; d.width > 0 && maxCWD > 8 {
		cwd = runewidth.Truncate(cwd, maxCWD, "…")
	}

	body := fmt.Sprintf("%d  %-10s %-7d %s", row.Slot, row.TTY, row.PID, cwd)
	if row.Transcript != "" {
		body += "  " + filepath.Base(row.Transcript)
	}

	if selected {
		return " " + StatusIndicator(row.Status) + " " + RowSelectedStyle.Render(body)
	}
	return " " + StatusIndicator(row.Status) + " " + RowStyle.Render(body)
}

// visibleRows bounds the list to the terminal height, leaving room for the
// header, filter box and footer.
func (d *Dashboard) visibleRows() int {
	if d.height == 0 {
		return len(d.filtered)
	}
	visible := d.height - 7
	if visible < 1 {
		visible = 1
	}
	return visible
}

// footer shows the key help, or the flash message after an action.
func (d *Dashboard) footer() string {
	if d.flash != "" {
		return " " + StaleStyle.Render(d.flash)
	}
	keys := []string{
		FooterKey("j/k", "move"),
		FooterKey("/", "filter"),
		FooterKey("y", "copy transcript"),
		FooterKey("r", "refresh"),
		FooterKey("q", "quit"),
	}
	return " " + strings.Join(keys, "  ")
}

// shortenPath abbreviates the home directory prefix to ~.
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
