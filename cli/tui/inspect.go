package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pusher/chatkit-go/cli/reader"
)

// InspectModel shows a snapshot's rooms or users as a scrollable table with
// a detail pane for the selected row.
type InspectModel struct {
	viewType string
	data     any
	table    table.Model
	width    int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{viewType: viewType, data: data}

	var (
		columns []table.Column
		rows    []table.Row
	)
	switch d := data.(type) {
	case *reader.RoomsResponse:
		columns = []table.Column{
			{Title: "ID", Width: 12},
			{Title: "Name", Width: 24},
			{Title: "Unread", Width: 7},
			{Title: "Members", Width: 8},
			{Title: "Last message", Width: 20},
		}
		for _, r := range d.Rooms {
			last := ""
			if r.LastMessageAt != nil {
				last = r.LastMessageAt.Format("2006-01-02 15:04:05")
			}
			rows = append(rows, table.Row{r.ID, r.Name, fmt.Sprint(r.Unread), fmt.Sprint(r.Members), last})
		}
	case *reader.UsersResponse:
		columns = []table.Column{
			{Title: "ID", Width: 16},
			{Title: "Name", Width: 24},
			{Title: "State", Width: 10},
		}
		for _, u := range d.Users {
			id := u.ID
			if u.Current {
				id += " *"
			}
			rows = append(rows, table.Row{id, u.Name, u.State})
		}
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(subtleColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(accentColor)

	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(max(len(rows), 1), 15)),
		table.WithStyles(styles),
	)
	return m
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Height > 12 {
			m.table.SetHeight(min(len(m.table.Rows())+1, msg.Height-12))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	switch d := m.data.(type) {
	case *reader.RoomsResponse:
		b.WriteString(TitleStyle.Render("Joined Rooms"))
		b.WriteString("\n")
		b.WriteString(field("Instance", ValueStyle.Render(d.InstanceLocator)))
		b.WriteString(field("Version", ValueStyle.Render(fmt.Sprint(d.Version))))
		b.WriteString(field("Signature", ValueStyle.Render(d.Signature)))
		b.WriteString(field("Connection", StateStyle(connectionKind(d.Connection)).Render(d.Connection)))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(m.table.View()))
		if detail := m.roomDetail(d); detail != "" {
			b.WriteString("\n")
			b.WriteString(detail)
		}
	case *reader.UsersResponse:
		b.WriteString(TitleStyle.Render("Users"))
		b.WriteString("\n")
		b.WriteString(field("Version", ValueStyle.Render(fmt.Sprint(d.Version))))
		b.WriteString(field("Current", ValueStyle.Render(d.CurrentUser)))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(m.table.View()))
	default:
		b.WriteString(fmt.Sprintf("Invalid data type for %s", m.viewType))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/↓ to move • q to quit"))
	return b.String()
}

func (m InspectModel) roomDetail(d *reader.RoomsResponse) string {
	i := m.table.Cursor()
	if i < 0 || i >= len(d.Rooms) {
		return ""
	}
	r := d.Rooms[i]

	creator := r.CreatedByID
	if r.CreatorName != "" {
		creator = fmt.Sprintf("%s (%s)", r.CreatorName, r.CreatedByID)
	}
	var b strings.Builder
	b.WriteString(field("Room", ValueStyle.Render(r.Name)))
	b.WriteString(field("Private", ValueStyle.Render(fmt.Sprint(r.Private))))
	b.WriteString(field("Creator", ValueStyle.Render(creator)))
	return b.String()
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s\n", LabelStyle.Render(label+":"), value)
}

// connectionKind strips the error from "degraded(reason)".
func connectionKind(s string) string {
	kind, _, _ := strings.Cut(s, "(")
	return kind
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RenderInspectStatic renders the view once without starting a program.
func RenderInspectStatic(viewType string, data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewInspectModel(viewType, data).View())
}
