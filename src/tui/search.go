package tui

import (
	"strings"
)

// applyFilter shows the items matching the analysis filter and the search query.
func (m *MainModel) applyFilter() {
	filter := m.header.GetFilter()
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))

	var filtered []Item
	for _, item := range m.items {
		if filter != AllAnalyses && item.Finding.Analysis != filter {
			continue
		}
		if query != "" && !matches(item, query) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
	}
}

// matches searches the message, location, analysis and classification key.
func matches(item Item, query string) bool {
	f := item.Finding
	for _, field := range []string{f.Message, f.LocationText, f.Analysis, f.Key.Category} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
