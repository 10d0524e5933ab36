package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel renders the left panel with the findings list.
// The list itself is sized in resizeComponents.
func (m MainModel) renderListPanel(width, height int) string {
	body := m.listView.Render()
	if m.listView.Len() == 0 {
		body = lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("No findings reported.")
	}

	listPanel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width - 2).
		Height(height).
		MaxHeight(height + 2).
		Render(body)

	delegate := m.listView.GetDelegate()
	headerText := fmt.Sprintf("%*s │ %*s │ %-*s │ Finding",
		delegate.RankWidth, "Rk",
		delegate.CountWidth, "N",
		analysisWidth, "Analysis")
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(headerText, width-4, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}
