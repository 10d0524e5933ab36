package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// View manages the list of findings.
type View struct {
	list     list.Model
	delegate *Delegate
}

// NewView creates a new findings list view
func NewView(styles *StyleConfig) View {
	delegate := NewDelegateWithStyles(styles)
	l := list.New([]list.Item{}, &delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return View{
		list:     l,
		delegate: &delegate,
	}
}

// Update handles list navigation
func (v View) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// SetSize sets the list dimensions
func (v *View) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// SetItems replaces the list items and resizes the numeric columns.
func (v *View) SetItems(items []Item) {
	maxRank := 0
	var maxCount int64
	for _, item := range items {
		maxRank = max(maxRank, item.Rank)
		maxCount = max(maxCount, item.Count())
	}
	v.delegate.SetColumnWidths(maxRank, maxCount)

	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}
	v.list.SetItems(listItems)
	v.list.ResetSelected()
}

// Len returns the number of items shown.
func (v View) Len() int {
	return len(v.list.Items())
}

// GetSelectedItem returns the selected finding
func (v View) GetSelectedItem() (Item, bool) {
	item, ok := v.list.SelectedItem().(Item)
	return item, ok
}

// Render returns the string representation of the view
func (v View) Render() string {
	return v.list.View()
}

// GetDelegate returns the delegate for accessing column widths
func (v View) GetDelegate() *Delegate {
	return v.delegate
}
