// Package style provides consistent terminal styling for hud's CLI
// commands (status, doctor) using Lipgloss.
package style

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/agenthud/hud/internal/store"
)

var (
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Bold    = lipgloss.NewStyle().Bold(true)

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("!")
	ErrorPrefix   = Error.Render("✗")
)

// StateStyle returns the style used to render a session's state badge in
// `hud status` output.
func StateStyle(s store.SessionState) lipgloss.Style {
	switch s {
	case store.StateWorking:
		return Info
	case store.StateReady:
		return Success
	case store.StateWaiting:
		return Warning
	case store.StateCompacting:
		return Warning
	default:
		return Dim
	}
}

// PrintWarning prints a warning message with consistent formatting.
func PrintWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

// PrintError prints an error message with consistent formatting.
func PrintError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", ErrorPrefix, fmt.Sprintf(format, args...))
}
