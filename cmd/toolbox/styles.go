package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// AccountStyle frames the account summary block.
	AccountStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	// LabelStyle for the account field names.
	LabelStyle = lipgloss.NewStyle().Faint(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)
)

// FormatProfit renders a signed money amount with a direction marker, so
// gains and losses stand apart on monochrome terminals.
func FormatProfit(v float64) string {
	s := fmt.Sprintf("%.2f", v)

	if v > 0 {
		return "+" + s + " ▲"
	} else if v < 0 {
		return s + " ▼"
	}

	return s
}
