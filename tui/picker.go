package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/wgconv/common"
)

type optionItem common.Option

func (i optionItem) Title() string       { return i.Label }
func (i optionItem) Description() string { return "" }
func (i optionItem) FilterValue() string { return i.Label }

// pickerModel is a filterable single-choice list.
type pickerModel struct {
	list   list.Model
	choice string
}

func newPicker(title string, options []common.Option) pickerModel {
	items := make([]list.Item, len(options))
	for i, opt := range options {
		items[i] = optionItem(opt)
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(accent).
		BorderLeftForeground(accent)

	l := list.New(items, delegate, 60, len(options)+8)
	l.Title = title
	l.Styles.Title = titleStyle.MarginBottom(0)
	l.SetShowStatusBar(false)

	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(optionItem); ok {
				m.choice = item.Value
			}
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.choice != "" {
		return ""
	}
	return m.list.View()
}
