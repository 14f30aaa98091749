package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pusher/chatkit-go/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch d := m.data.(type) {
	case *reader.SnapshotStats:
		content = m.renderSnapshot(d)
	case *reader.SessionStats:
		content = m.renderSession(d)
	default:
		content = fmt.Sprintf("Invalid data type for %s", m.viewType)
	}
	return content + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

func (m StatsModel) renderSnapshot(d *reader.SnapshotStats) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Snapshot v%d", d.Version)))
	b.WriteString("\n")
	b.WriteString(field("Signature", ValueStyle.Render(d.Signature)))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Rooms", d.Rooms, frameColor),
		statBox("Private", d.PrivateRooms, subtleColor),
		statBox("Unread rooms", d.UnreadRooms, cautionColor),
		statBox("Unread total", d.UnreadTotal, cautionColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Users", d.Users, frameColor),
		statBox("Populated", d.PopulatedUsers, okColor),
	))

	if len(d.Connections) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Connections"))
		b.WriteString("\n")
		for _, c := range d.Connections {
			value := StateStyle(c.State).Render(c.State)
			if c.Error != "" {
				value += " " + ErrorStyle.Render(c.Error)
			}
			b.WriteString(field(c.Subscription, value))
		}
	}
	return b.String()
}

func (m StatsModel) renderSession(d *reader.SessionStats) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session " + d.ClientID))
	b.WriteString("\n")
	b.WriteString(field("State", StateStyle(d.State).Render(d.State)))
	if d.Error != "" {
		b.WriteString(field("Error", ErrorStyle.Render(d.Error)))
	}
	b.WriteString(field("Duration", ValueStyle.Render(fmt.Sprintf("%dms", d.DurationMs))))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Events", int(d.EventsReceived), frameColor),
		statBox("Decode errors", int(d.DecodeErrors), failureColor),
		statBox("Actions", int(d.ActionsDispatched), frameColor),
		statBox("Broadcasts", int(d.Broadcasts), okColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Held", int(d.BufferHeld), cautionColor),
		statBox("Resolved", int(d.BufferResolved), okColor),
		statBox("Users fetched", int(d.UsersFetched), okColor),
		statBox("Fetch failures", int(d.UserFetchFailures), failureColor),
	))
	if d.Published+d.Failed+d.Dropped > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			statBox("Published", int(d.Published), okColor),
			statBox("Failed", int(d.Failed), failureColor),
			statBox("Dropped", int(d.Dropped), cautionColor),
		))
	}
	return b.String()
}

func statBox(label string, value int, color lipgloss.TerminalColor) string {
	v := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	l := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, v, l))
}

// RenderStatsStatic renders the view once without starting a program.
func RenderStatsStatic(viewType string, data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewStatsModel(viewType, data).View())
}
