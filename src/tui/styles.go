package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// StyleConfig holds the colors of the findings viewer.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color
	MessageColor   lipgloss.Color

	// AnalysisColors tag the analysis column; an analysis keeps its color across runs.
	AnalysisColors []lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		MessageColor:   lipgloss.Color("#F28B82"),
		AnalysisColors: []lipgloss.Color{
			lipgloss.Color("#34A853"), // Green
			lipgloss.Color("#FBBC04"), // Yellow
			lipgloss.Color("#A142F4"), // Purple
			lipgloss.Color("#24C1E0"), // Cyan
			lipgloss.Color("#EA4335"), // Red
		},
	}
}

// AnalysisColor picks the tag color of an analysis.
func (s *StyleConfig) AnalysisColor(analysis string) lipgloss.Color {
	if len(s.AnalysisColors) == 0 {
		return s.TextSecondary
	}
	h := fnv.New32a()
	h.Write([]byte(analysis))
	return s.AnalysisColors[h.Sum32()%uint32(len(s.AnalysisColors))]
}

// TitleStyle returns the style of the header title
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 2)
}

// HelpStyle returns the style of the help line
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}
