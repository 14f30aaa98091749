package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var supportedViews = []string{
	"inspect_rooms",
	"inspect_users",
	"stats_snapshot",
	"stats_session",
}

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	model, err := NewModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// NewModel builds the model for viewType.
func NewModel(viewType string, data any) (tea.Model, error) {
	if !IsTUISupported(viewType) {
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	switch {
	case strings.HasPrefix(viewType, "inspect_"):
		return NewInspectModel(viewType, data), nil
	case strings.HasPrefix(viewType, "stats_"):
		return NewStatsModel(viewType, data), nil
	}
	return nil, fmt.Errorf("unknown view type: %s", viewType)
}

// IsTUISupported reports whether viewType has an interactive view.
// Only read-only inspect and stats views do.
func IsTUISupported(viewType string) bool {
	return slices.Contains(supportedViews, viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return slices.Clone(supportedViews)
}
