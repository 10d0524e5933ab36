package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"hookstat/src/contracts"
	"hookstat/src/sanitize"
)

func testFindings() []contracts.Finding {
	return []contracts.Finding{
		{
			Analysis:     "AccessUndefArrayElem",
			ID:           10,
			Key:          contracts.Key{Analysis: "AccessUndefArrayElem", Category: "uninit-array-elem", ID: 10},
			LocationText: "(app.js:3:5:3:11)",
			Message:      "Access of undefined array element",
			Count:        2,
		},
		{
			Analysis:     "AddEnumerablePropertyToObject",
			ID:           20,
			Key:          contracts.Key{Analysis: "AddEnumerablePropertyToObject", ID: 20},
			LocationText: "(lib.js:1:1:1:30)",
			Message:      "Adding an enumerable property to Object.prototype at (lib.js:1:1:1:30) 7 time(s).",
			Count:        7,
		},
		{
			Analysis:     "AccessUndefArrayElem",
			ID:           11,
			Key:          contracts.Key{Analysis: "AccessUndefArrayElem", Category: "uninit-array-elem", ID: 11},
			LocationText: "(app.js:9:1:9:8)",
			Message:      "Access of undefined array element",
			Count:        1,
		},
	}
}

func sized(t *testing.T, m MainModel, width, height int) MainModel {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(MainModel)
}

func press(t *testing.T, m MainModel, keys ...tea.KeyMsg) MainModel {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(MainModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewItems(t *testing.T) {
	items := NewItems(testFindings())

	want := []contracts.EventID{20, 10, 11}
	if len(items) != len(want) {
		t.Fatalf("NewItems() returned %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].Finding.ID != id || items[i].Rank != i+1 {
			t.Errorf("items[%d] = site %d rank %d, want site %d rank %d", i, items[i].Finding.ID, items[i].Rank, id, i+1)
		}
	}
}

func TestItemTitle(t *testing.T) {
	tests := []struct {
		name    string
		finding contracts.Finding
		want    string
	}{
		{"message", contracts.Finding{Message: "Access of undefined array element", LocationText: "(a.js:1:1:1:2)"}, "Access of undefined array element"},
		{"no message", contracts.Finding{LocationText: "(a.js:1:1:1:2)"}, "(a.js:1:1:1:2)"},
		{"escape sequences stripped", contracts.Finding{Message: "\x1b[31mred\x1b[0m"}, "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Item{Finding: tt.finding}).Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMainModel_Initializing(t *testing.T) {
	m := NewMainModel("hookstat", testFindings())
	if view := m.View(); !strings.Contains(view, "Initializing") {
		t.Errorf("View() before sizing = %q, want initializing message", view)
	}
}

func TestMainModel_Navigation(t *testing.T) {
	m := sized(t, NewMainModel("hookstat", testFindings()), 120, 30)

	selected, ok := m.listView.GetSelectedItem()
	if !ok || selected.Finding.ID != 20 {
		t.Fatalf("initial selection = %+v, want site 20", selected)
	}

	m = press(t, m, runes("j"))
	selected, _ = m.listView.GetSelectedItem()
	if selected.Finding.ID != 10 {
		t.Errorf("selection after down = site %d, want 10", selected.Finding.ID)
	}
	if content := sanitize.StripANSI(m.detailViewport.View()); !strings.Contains(content, "(app.js:3:5:3:11)") {
		t.Errorf("detail does not follow the selection:\n%s", content)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.detailFocused {
		t.Error("Enter did not focus the detail panel")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.detailFocused {
		t.Error("Esc did not return to the list")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Error("q did not return a quit command")
	}
}

func TestMainModel_AnalysisFilter(t *testing.T) {
	m := sized(t, NewMainModel("hookstat", testFindings()), 120, 30)

	tests := []struct {
		filter string
		want   int
	}{
		{"AddEnumerablePropertyToObject", 1},
		{"AccessUndefArrayElem", 2},
		{AllAnalyses, 3},
	}

	for _, tt := range tests {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if got := m.header.GetFilter(); got != tt.filter {
			t.Fatalf("filter = %q, want %q", got, tt.filter)
		}
		if got := m.listView.Len(); got != tt.want {
			t.Errorf("filter %s shows %d items, want %d", tt.filter, got, tt.want)
		}
	}
}

func TestMainModel_Search(t *testing.T) {
	m := sized(t, NewMainModel("hookstat", testFindings()), 120, 30)

	m = press(t, m, runes("/"), runes("lib.js"))
	if !m.searchMode {
		t.Fatal("/ did not enter search mode")
	}
	if m.listView.Len() != 1 {
		t.Errorf("search lib.js shows %d items, want 1", m.listView.Len())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searchMode || m.searchQuery != "lib.js" {
		t.Errorf("Enter should keep the query and leave search mode, got mode=%v query=%q", m.searchMode, m.searchQuery)
	}

	m = press(t, m, runes("/"), runes("nothing-matches"))
	if m.listView.Len() != 0 {
		t.Errorf("non-matching search shows %d items, want 0", m.listView.Len())
	}
	if view := sanitize.StripANSI(m.View()); !strings.Contains(view, "No findings") {
		t.Errorf("empty result not rendered:\n%s", view)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchQuery != "" || m.listView.Len() != 3 {
		t.Errorf("Esc should clear the search, got query=%q items=%d", m.searchQuery, m.listView.Len())
	}
}

func TestMainModel_EmptyFindings(t *testing.T) {
	m := sized(t, NewMainModel("hookstat", nil), 80, 24)

	view := sanitize.StripANSI(m.View())
	if !strings.Contains(view, "No findings reported.") {
		t.Errorf("empty view missing placeholder:\n%s", view)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.detailFocused {
		t.Error("Enter focused the detail panel with nothing selected")
	}
}

func TestMainModel_NoOverflow(t *testing.T) {
	long := strings.Repeat("Adding an enumerable property to Object.prototype through a very long chain ", 5)
	longWord := strings.Repeat("abcdefghijklmnopqrstuvwxyz", 20)

	tests := []struct {
		name    string
		width   int
		height  int
		finding contracts.Finding
	}{
		{"long message", 100, 30, contracts.Finding{Analysis: "AddEnumerablePropertyToObject", ID: 1, Message: long, LocationText: "(lib.js:1:1:1:30)", Count: 3}},
		{"long word", 80, 30, contracts.Finding{Analysis: "AccessUndefArrayElem", ID: 2, Message: longWord, LocationText: "(" + longWord + ":1:1:1:2)", Count: 1}},
		{"narrow terminal", 60, 20, contracts.Finding{Analysis: "ExeStat", ID: 3, LocationText: "(app.js:1:1:1:2)", Count: 123456}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sized(t, NewMainModel("hookstat · run-1", []contracts.Finding{tt.finding}), tt.width, tt.height)

			var violations []string
			for i, line := range strings.Split(m.View(), "\n") {
				if w := VisualWidth(sanitize.StripANSI(line)); w > tt.width {
					violations = append(violations, fmt.Sprintf("line %d: width=%d", i, w))
				}
			}
			if len(violations) > 0 {
				t.Errorf("%d lines overflow terminal width %d:\n%s", len(violations), tt.width, strings.Join(violations, "\n"))
			}

			for i, line := range strings.Split(m.detailViewport.View(), "\n") {
				if w := VisualWidth(sanitize.StripANSI(line)); w > m.detailViewport.Width {
					t.Errorf("detail line %d exceeds viewport width (%d > %d)", i, w, m.detailViewport.Width)
				}
			}
		})
	}
}
