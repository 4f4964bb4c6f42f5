// Package ui renders notifications on the terminal and asks the user to
// pick a folder when the target scope is ambiguous.
package ui

import "github.com/charmbracelet/lipgloss"

// Message styles
var (
	StyleInfo = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	StyleWarning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	StyleAction = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)
)
