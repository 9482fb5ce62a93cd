package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/wgconv/common"
)

const (
	editorWidth  = 72
	editorHeight = 16
)

// editorModel is a textarea that submits on ctrl+d.
type editorModel struct {
	title     string
	area      textarea.Model
	submitted bool
	cancelled bool
}

func newEditor(title, initial string) editorModel {
	area := textarea.New()
	area.Placeholder = common.ConfigPlaceholder
	area.CharLimit = 0
	area.MaxHeight = 0
	area.ShowLineNumbers = false
	area.SetWidth(editorWidth)
	area.SetHeight(editorHeight)
	area.SetValue(initial)
	area.Focus()

	return editorModel{title: title, area: area}
}

func (m editorModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+d":
			m.submitted = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 0 && width < editorWidth {
			m.area.SetWidth(width)
		}
	}

	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	return m, cmd
}

func (m editorModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		frameStyle.Render(m.area.View()),
		helpStyle.Render("ctrl+d convert • esc cancel"),
	)
}

// Value returns the edited text.
func (m editorModel) Value() string {
	return m.area.Value()
}
