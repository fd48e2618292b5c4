package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/agentbar/agentbar/internal/config"
	"github.com/agentbar/agentbar/internal/ui"
)

// handleWatch runs the live slot dashboard in the terminal.
func handleWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: agentbar watch")
		fmt.Println()
		fmt.Println("Live view of the published cache: one row per slot with status,")
		fmt.Println("working directory and transcript. Keys: j/k move, / filter,")
		fmt.Println("y copy transcript path, r refresh, q quit.")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	shutdown := initLogging(false)
	defer shutdown()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (continuing with defaults)\n", err)
	}

	initColorProfile()
	ui.InitTheme(ui.ResolveTheme(cfg.UI.GetTheme()))

	p := tea.NewProgram(ui.NewDashboard(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initColorProfile configures the lipgloss color profile before any styles
// render. Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// AGENTBAR_COLOR overrides detection: truecolor, 256, 16, none
	if colorEnv := os.Getenv("AGENTBAR_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	// TERM values that imply TrueColor support in practice
	term := os.Getenv("TERM")
	trueColorTerms := []string{
		"xterm-256color",
		"screen-256color",
		"tmux-256color",
		"xterm-direct",
		"alacritty",
		"kitty",
		"wezterm",
	}
	for _, t := range trueColorTerms {
		if strings.Contains(term, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	if os.Getenv("WT_SESSION") != "" || // Windows Terminal
		os.Getenv("ITERM_SESSION_ID") != "" || // iTerm2
		os.Getenv("TERMINAL_EMULATOR") != "" || // JetBrains terminals
		os.Getenv("KONSOLE_VERSION") != "" { // Konsole
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}
