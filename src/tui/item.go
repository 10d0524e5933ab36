package tui

import (
	"hookstat/src/contracts"
	"hookstat/src/ranking"
	"hookstat/src/sanitize"
)

// Item is one finding in the list. It implements bubbles/list.Item.
// Rank is the position across all analyses shown, not the per-report rank.
type Item struct {
	Finding contracts.Finding
	Rank    int
}

// NewItems merges findings of several reports into one ranked list.
func NewItems(findings []contracts.Finding) []Item {
	sorted := ranking.SortFindings(findings)
	items := make([]Item, len(sorted))
	for i, f := range sorted {
		items[i] = Item{Finding: f, Rank: f.Rank}
	}
	return items
}

// FilterValue is the value used for filtering.
func (i Item) FilterValue() string {
	return i.Finding.Message + " " + i.Finding.LocationText
}

// Title returns the message, or the location when the analysis has none.
func (i Item) Title() string {
	if msg := sanitize.Text(i.Finding.Message); msg != "" {
		return msg
	}
	return i.Finding.LocationText
}

// Description returns the analysis and location.
func (i Item) Description() string {
	return i.Finding.Analysis + " · " + i.Finding.LocationText
}

// Count returns the number of events behind the finding.
func (i Item) Count() int64 {
	return i.Finding.Count
}
