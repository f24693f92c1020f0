package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	ColorFg      = lipgloss.Color("#D1D1D1")
	ColorAccent  = lipgloss.Color("#5FAFFF")
	ColorGood    = lipgloss.Color("#00B894")
	ColorBad     = lipgloss.Color("#FF5F5F")
	ColorWarn    = lipgloss.Color("#FFAF5F")
	ColorDimmed  = lipgloss.Color("#666666")
	ColorBorder  = lipgloss.Color("#333333")
	ColorMatched = lipgloss.Color("#FFFF5F")

	// Styles
	StyleHeader = lipgloss.NewStyle().
			Background(ColorBorder).
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StyleModeActive = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Underline(true)

	StyleModeInactive = lipgloss.NewStyle().
				Foreground(ColorDimmed)

	StyleCursorRow = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorAccent).
			PaddingLeft(1).
			Foreground(ColorAccent)

	StyleRow = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(ColorFg)

	StyleDetail = lipgloss.NewStyle().
			PaddingLeft(6).
			Foreground(ColorDimmed)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorBorder)

	StyleStatusLine = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleMatch = lipgloss.NewStyle().
			Foreground(ColorMatched).
			Bold(true)

	StyleModal = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2)

	StyleStatusRunning   = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleStatusSucceeded = lipgloss.NewStyle().Foreground(ColorGood)
	StyleStatusFailed    = lipgloss.NewStyle().Foreground(ColorBad)
	StyleStatusCancelled = lipgloss.NewStyle().Foreground(ColorWarn)
)
