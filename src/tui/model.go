// Package tui is the terminal viewer for hookstat findings.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"hookstat/src/contracts"
)

// MainModel is the Bubble Tea model of the findings viewer: a ranked list on
// the left and the selected finding on the right.
type MainModel struct {
	items          []Item
	listView       View
	detailViewport viewport.Model
	header         Header
	styles         *StyleConfig

	width  int
	height int
	ready  bool

	detailFocused bool
	searchMode    bool
	searchQuery   string
}

// NewMainModel creates the viewer for findings merged from any number of reports.
func NewMainModel(title string, findings []contracts.Finding) MainModel {
	styles := DefaultStyles()
	items := NewItems(findings)

	m := MainModel{
		items:          items,
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		header:         NewHeaderWithStyles(title, analysesOf(items), styles),
		styles:         styles,
	}
	m.listView.SetItems(items)
	return m
}

// Start runs the viewer until the user quits.
func Start(title string, findings []contracts.Finding) error {
	p := tea.NewProgram(NewMainModel(title, findings), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

func analysesOf(items []Item) []string {
	var names []string
	seen := make(map[string]bool)
	for _, item := range items {
		if name := item.Finding.Analysis; !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Init initializes the model. Required by tea.Model interface.
func (m MainModel) Init() tea.Cmd {
	return nil
}

// Update handles window, search, navigation and focus messages.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.searchMode {
			return m.updateSearch(msg), nil
		}
		if m.detailFocused {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m MainModel) updateSearch(msg tea.KeyMsg) MainModel {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	default:
		return m
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m
}

func (m MainModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "left", "h":
		m.detailFocused = false
		return m, nil
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m MainModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "enter", "right", "l":
		if _, ok := m.listView.GetSelectedItem(); ok {
			m.detailFocused = true
		}
		return m, nil
	}

	before, _ := m.listView.GetSelectedItem()
	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	if after, ok := m.listView.GetSelectedItem(); ok && after.Rank != before.Rank {
		m.updateDetailContent(after)
	}
	return m, cmd
}
