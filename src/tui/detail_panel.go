package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hookstat/src/sanitize"
)

// renderDetail renders the detail content for a finding
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	f := item.Finding
	label := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)
	value := lipgloss.NewStyle().Foreground(m.styles.TextPrimary)

	var content strings.Builder

	header := Wrap(fmt.Sprintf("#%d %s", item.Rank, f.Analysis), maxWidth)
	fmt.Fprintf(&content, "%s\n\n", lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true).Render(header))

	fields := []struct{ name, val string }{
		{"Location", f.LocationText},
		{"Site", fmt.Sprintf("%d", f.ID)},
		{"Count", fmt.Sprintf("%d", f.Count)},
		{"Key", f.Key.String()},
	}
	for _, field := range fields {
		fmt.Fprintln(&content, label.Render(field.name+":"))
		fmt.Fprintln(&content, value.Render(Wrap(field.val, maxWidth)))
	}

	if msg := sanitize.Text(f.Message); msg != "" {
		fmt.Fprintln(&content)
		fmt.Fprintln(&content, label.Render("Message:"))
		fmt.Fprint(&content, lipgloss.NewStyle().Foreground(m.styles.MessageColor).Render(Wrap(msg, maxWidth)))
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	// 1 char padding on each side
	maxWidth := m.detailViewport.Width - 2
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	borderColor := m.styles.BorderColor
	if m.detailFocused {
		borderColor = m.styles.AccentBlue
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(width - 2).
		Height(height)

	title := " "
	if item, ok := m.listView.GetSelectedItem(); ok {
		title = Truncate(item.Finding.LocationText, width-4, true)
	}
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(title)

	if _, ok := m.listView.GetSelectedItem(); !ok {
		empty := panel.
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.styles.TextSecondary).
			Faint(true).
			Render("No findings to show")
		return lipgloss.JoinVertical(lipgloss.Left, headerRow, empty)
	}

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, panel.Render(m.detailViewport.View()))
}
