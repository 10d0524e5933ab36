package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
// Render and resize both go through it so the two never disagree.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + panel column header row (1) + panel borders (2)
	availableHeight := max(m.height-headerHeight-1-1-2, 1)

	// Findings list (40%) | Detail (60%)
	leftPanelWidth := m.width * 2 / 5
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	dims := m.calculateDimensions()
	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.Render(m.width),
		lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel),
		m.renderHelpText(),
	)
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sep := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Render(" • ")

	var helpText string
	switch {
	case m.searchMode:
		helpText = fmt.Sprintf("%s: Apply%s%s: Clear", keyStyle.Render("Enter"), sep, keyStyle.Render("Esc"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll%s%s: Back%s%s: Quit",
			keyStyle.Render("j/k"), sep, keyStyle.Render("Esc"), sep, keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav%s%s: View%s%s: Analysis%s%s: Search%s%s: Quit",
			keyStyle.Render("j/k"), sep, keyStyle.Render("Enter"), sep,
			keyStyle.Render("Tab"), sep, keyStyle.Render("/"), sep, keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().MaxWidth(m.width).Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	// list and viewport sit inside the panel borders
	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)
	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight

	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	}
}
