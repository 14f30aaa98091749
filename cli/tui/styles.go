// Package tui provides Bubble Tea views for the chatkit CLI.
//
// TUI mode is opt-in (--tui) and only offered by read-only commands. Views
// render the same response payloads as the table, json and yaml outputs.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	okColor      = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	cautionColor = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	failureColor = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	subtleColor  = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	textColor    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	frameColor   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(subtleColor).Width(14)
	ValueStyle = lipgloss.NewStyle().Foreground(textColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(okColor)
	WarningStyle = lipgloss.NewStyle().Foreground(cautionColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(failureColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(subtleColor)

	// BoxStyle frames the detail pane next to the rooms table.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(subtleColor).MarginTop(1)

	// Stat boxes are laid out side by side, so they share a fixed width.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(0, 2).
			Width(18).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().Foreground(subtleColor).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor).Align(lipgloss.Center)
)

// StateStyle returns the style for a connection or entity state.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "connected", "populated":
		return SuccessStyle
	case "initializing", "degraded", "partial":
		return WarningStyle
	case "closed":
		return ErrorStyle
	case "empty":
		return MutedStyle
	default:
		return ValueStyle
	}
}
