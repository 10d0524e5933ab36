package tui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	listRenderingOverhead = 10

	// analysisWidth is the width of the analysis tag column.
	analysisWidth = 8

	// separatorsWidth covers the three " │ " column separators.
	separatorsWidth = 9
)

// Delegate renders findings as table rows.
type Delegate struct {
	RankWidth  int
	CountWidth int
	styles     *StyleConfig
}

// NewDelegate creates a new findings table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		RankWidth:  2,
		CountWidth: 2,
		styles:     styles,
	}
}

// SetColumnWidths sizes the rank and count columns for the largest values shown.
func (d *Delegate) SetColumnWidths(maxRank int, maxCount int64) {
	d.RankWidth = max(len(strconv.Itoa(maxRank)), 2)
	d.CountWidth = max(len(strconv.FormatInt(maxCount, 10)), 2)
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	rankCol := fmt.Sprintf("%*d", d.RankWidth, entry.Rank)
	countCol := fmt.Sprintf("%*d", d.CountWidth, entry.Count())
	analysisCol := TruncateAndPad(entry.Finding.Analysis, analysisWidth, false)

	fixedWidth := d.RankWidth + d.CountWidth + analysisWidth + separatorsWidth
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var snippet string
	if availableWidth > 0 {
		snippet = TruncateAndPad(entry.Title(), availableWidth, true)
	}

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	tag := lipgloss.NewStyle().Foreground(d.styles.AnalysisColor(entry.Finding.Analysis))
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
		tag = tag.Bold(true).Background(d.styles.SelectedColor)
	}

	sep := style.Render(" │ ")
	fmt.Fprint(w, style.Render(rankCol)+sep+style.Render(countCol)+sep+tag.Render(analysisCol)+sep+style.Render(snippet))
}
