package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	primaryColor   = lipgloss.Color("#3b82f6")
	secondaryColor = lipgloss.Color("#64748b")
	successColor   = lipgloss.Color("#10b981")
	warningColor   = lipgloss.Color("#f59e0b")
	errorColor     = lipgloss.Color("#ef4444")
	mutedColor     = lipgloss.Color("#94a3b8")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Title renders a heading
func Title(format string, a ...any) string {
	return titleStyle.Render(fmt.Sprintf(format, a...))
}

// Success renders a success status line
func Success(format string, a ...any) string {
	return successStyle.Render(fmt.Sprintf(format, a...))
}

// Warning renders a warning status line
func Warning(format string, a ...any) string {
	return warningStyle.Render(fmt.Sprintf(format, a...))
}

// Error renders a failure status line
func Error(format string, a ...any) string {
	return errorStyle.Render(fmt.Sprintf(format, a...))
}

// Muted renders secondary detail
func Muted(format string, a ...any) string {
	return mutedStyle.Render(fmt.Sprintf(format, a...))
}

// Box frames a block of text
func Box(s string) string {
	return boxStyle.Render(s)
}
