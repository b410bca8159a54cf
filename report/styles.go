package report

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	mutedColor   = lipgloss.Color("#6B7280") // Gray
	errorColor   = lipgloss.Color("#EF4444") // Red
)

// Styles for table output. They are not applied with --no-color.
var (
	// HeaderStyle for table column headers.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// LabelStyle for the keys of key/value tables.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)
)
