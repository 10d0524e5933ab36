package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// AllAnalyses is the filter value that shows every analysis.
const AllAnalyses = "ALL"

// Header is the top status bar: title, analysis filter and search.
type Header struct {
	title          string
	selectedFilter string
	analyses       []string
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeaderWithStyles creates a header cycling through the given analyses.
func NewHeaderWithStyles(title string, analyses []string, styles *StyleConfig) Header {
	return Header{
		title:          title,
		selectedFilter: AllAnalyses,
		analyses:       analyses,
		styles:         styles,
	}
}

// GetFilter returns the current analysis filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter moves to the next analysis, wrapping back to ALL.
func (h *Header) CycleFilter() {
	filters := append([]string{AllAnalyses}, h.analyses...)
	next := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			next = (i + 1) % len(filters)
			break
		}
	}
	h.selectedFilter = filters[next]
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	title := h.styles.TitleStyle().Render(h.title)

	filter := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Padding(0, 2).
		Render(fmt.Sprintf("Analysis: %s", h.selectedFilter))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}
	searchStyle := lipgloss.NewStyle().Foreground(h.styles.TextSecondary).Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, title, filter, searchStyle.Render(searchText))

	return lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		MaxWidth(width).
		Render(content)
}
