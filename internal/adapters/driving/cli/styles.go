package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by command output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourError   = lipgloss.Color("#F38BA8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
)

// resultLine renders "✓ id  N items" or "✗ id  error".
func resultLine(endpointID string, items int, err error) string {
	if err != nil {
		return errorStyle.Render("✗ "+endpointID) + "  " + err.Error()
	}
	return successStyle.Render("✓ "+endpointID) + "  " + mutedStyle.Render(pluralItems(items))
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
