package tui

import "github.com/charmbracelet/lipgloss"

// Color constants — snapshot lifecycle palette.
var (
	colorGreen  = lipgloss.Color("#10b981")
	colorYellow = lipgloss.Color("#f59e0b")
	colorRed    = lipgloss.Color("#ef4444")
	colorGray   = lipgloss.Color("#6b7280")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorWhite  = lipgloss.Color("#f8fafc")
	colorDark   = lipgloss.Color("#1e293b")
)

// StyleHeader — full-width dark header bar.
var StyleHeader = lipgloss.NewStyle().
	Background(colorDark).
	Foreground(colorWhite).
	Padding(0, 1)

// Table styles.
var (
	StyleTableHeader = lipgloss.NewStyle().
				Bold(true).
				Underline(true).
				Foreground(colorGray)

	StyleTableRow = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// Utility styles.
var (
	StyleError = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	StyleDim   = lipgloss.NewStyle().Foreground(colorGray)
	StylePhase = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
)

// State styles keyed by snapshot state strings.
var (
	StyleStateSuccess    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	StyleStatePartial    = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	StyleStateFailed     = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	StyleStateInProgress = lipgloss.NewStyle().Foreground(colorBlue)
	StyleStateUnknown    = lipgloss.NewStyle().Foreground(colorGray)
)

// StateStyle returns the style for a snapshot state display string.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "SUCCESS", "SUCCEEDED":
		return StyleStateSuccess
	case "PARTIAL":
		return StyleStatePartial
	case "FAILED":
		return StyleStateFailed
	case "IN_PROGRESS":
		return StyleStateInProgress
	default:
		return StyleStateUnknown
	}
}
