package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// currentTheme holds the active theme (set at init)
var currentTheme Theme = ThemeDark

// Dark Theme - Tokyo Night
var darkColors = struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Cyan, Green, Yellow        lipgloss.Color
	Orange, Red, Comment               lipgloss.Color
}{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Orange:  lipgloss.Color("#ff9e64"),
	Red:     lipgloss.Color("#f7768e"),
	Comment: lipgloss.Color("#787fa0"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Cyan, Green, Yellow        lipgloss.Color
	Orange, Red, Comment               lipgloss.Color
}{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Orange:  lipgloss.Color("#965027"),
	Red:     lipgloss.Color("#8c4351"),
	Comment: lipgloss.Color("#6a6d7c"),
}

// Active color variables (set by InitTheme)
var (
	ColorBg      lipgloss.Color
	ColorSurface lipgloss.Color
	ColorBorder  lipgloss.Color
	ColorText    lipgloss.Color
	ColorTextDim lipgloss.Color
	ColorAccent  lipgloss.Color
	ColorCyan    lipgloss.Color
	ColorGreen   lipgloss.Color
	ColorYellow  lipgloss.Color
	ColorOrange  lipgloss.Color
	ColorRed     lipgloss.Color
	ColorComment lipgloss.Color
)

// themeMu protects global color/style variables during live theme switches.
var themeMu sync.RWMutex

// InitTheme sets the active color palette based on theme name
// Must be called before any UI rendering
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()
	if theme == "light" {
		currentTheme = ThemeLight
		ColorBg = lightColors.Bg
		ColorSurface = lightColors.Surface
		ColorBorder = lightColors.Border
		ColorText = lightColors.Text
		ColorTextDim = lightColors.TextDim
		ColorAccent = lightColors.Accent
		ColorCyan = lightColors.Cyan
		ColorGreen = lightColors.Green
		ColorYellow = lightColors.Yellow
		ColorOrange = lightColors.Orange
		ColorRed = lightColors.Red
		ColorComment = lightColors.Comment
	} else {
		currentTheme = ThemeDark
		ColorBg = darkColors.Bg
		ColorSurface = darkColors.Surface
		ColorBorder = darkColors.Border
		ColorText = darkColors.Text
		ColorTextDim = darkColors.TextDim
		ColorAccent = darkColors.Accent
		ColorCyan = darkColors.Cyan
		ColorGreen = darkColors.Green
		ColorYellow = darkColors.Yellow
		ColorOrange = darkColors.Orange
		ColorRed = darkColors.Red
		ColorComment = darkColors.Comment
	}
	// Reinitialize styles with new colors
	initStyles()
}

// GetCurrentTheme returns the active theme
func GetCurrentTheme() Theme {
	return currentTheme
}

// ResolveTheme resolves a configured theme name to "dark" or "light".
// "system" detects the OS dark mode setting and falls back to "dark" on
// detection failure.
func ResolveTheme(theme string) string {
	if theme != "system" {
		if theme == "light" {
			return "light"
		}
		return "dark"
	}
	isDark, err := dark.IsDarkMode()
	if err != nil {
		return "dark"
	}
	if isDark {
		return "dark"
	}
	return "light"
}

func init() {
	// Default to dark theme at package init
	InitTheme("dark")
}

// Base Styles
var (
	TitleStyle     lipgloss.Style
	HighlightStyle lipgloss.Style
	DimStyle       lipgloss.Style
	ErrorStyle     lipgloss.Style
)

// Status Indicator Styles
var (
	ActiveStyle  lipgloss.Style
	PendingStyle lipgloss.Style
	IdleStyle    lipgloss.Style
)

// Row Styles
var (
	RowStyle         lipgloss.Style
	RowSelectedStyle lipgloss.Style
	SlotNumStyle     lipgloss.Style
	PathStyle        lipgloss.Style
)

// Footer Styles
var (
	FooterStyle     lipgloss.Style
	FooterKeyStyle  lipgloss.Style
	FooterSepStyle  lipgloss.Style
	FooterDescStyle lipgloss.Style
)

// Search Styles
var (
	SearchBoxStyle lipgloss.Style
	StaleStyle     lipgloss.Style
)

// initStyles initializes all style variables with current theme colors
// Called by InitTheme after color variables are set
func initStyles() {
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Background(ColorSurface).
		Padding(0, 1)

	HighlightStyle = lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorAccent).
		Bold(true)

	DimStyle = lipgloss.NewStyle().
		Foreground(ColorComment)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true)

	ActiveStyle = lipgloss.NewStyle().
		Foreground(ColorGreen).
		Bold(true)

	PendingStyle = lipgloss.NewStyle().
		Foreground(ColorOrange).
		Bold(true)

	IdleStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	RowStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		PaddingLeft(1)

	RowSelectedStyle = lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorAccent).
		Bold(true).
		PaddingLeft(1)

	SlotNumStyle = lipgloss.NewStyle().
		Foreground(ColorCyan).
		Bold(true)

	PathStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	FooterStyle = lipgloss.NewStyle().
		Background(ColorSurface).
		Foreground(ColorText).
		Padding(0, 1)

	FooterKeyStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	FooterSepStyle = lipgloss.NewStyle().
		Foreground(ColorBorder)

	FooterDescStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	SearchBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1)

	StaleStyle = lipgloss.NewStyle().
		Foreground(ColorYellow).
		Bold(true)
}

// StatusIndicator returns a styled status symbol for a slot.
// Read-locked to protect against concurrent style access during live theme
// switches. Symbols: ● active, ◐ pending, ○ idle.
func StatusIndicator(status string) string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	switch status {
	case "active":
		return ActiveStyle.Render("●")
	case "pending":
		return PendingStyle.Render("◐")
	case "idle":
		return IdleStyle.Render("○")
	default:
		return IdleStyle.Render("○")
	}
}

// FooterKey creates a formatted footer item with key and description
func FooterKey(key, description string) string {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return FooterKeyStyle.Render(key) + " " +
		FooterSepStyle.Render("•") + " " +
		FooterDescStyle.Render(description)
}
