// Package list provides list display components for the TUI.
package list

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
)

// Item is one entry of a popup menu.
type Item struct {
	// ID identifies the action or target.
	ID string

	// Label is the text shown.
	Label string
}

// Menu is a small navigable popup list.
type Menu struct {
	title    string
	items    []Item
	selected int
	styles   *styles.Styles
}

// NewMenu creates a popup menu.
func NewMenu(s *styles.Styles, title string, items []Item) *Menu {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Menu{title: title, items: items, styles: s}
}

// Update handles navigation keys. It reports whether the key was consumed.
func (m *Menu) Update(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		m.MoveUp()
		return true
	case "down", "j":
		m.MoveDown()
		return true
	}
	return false
}

// View renders the menu.
func (m *Menu) View() string {
	lines := make([]string, 0, len(m.items)+1)
	if m.title != "" {
		lines = append(lines, m.styles.Subtitle.Render(m.title))
	}
	for i, item := range m.items {
		if i == m.selected {
			lines = append(lines, m.styles.Selected.Render("> "+item.Label))
			continue
		}
		lines = append(lines, m.styles.Normal.Render("  "+item.Label))
	}
	return m.styles.Popup.Render(strings.Join(lines, "\n"))
}

// Items returns the menu entries.
func (m *Menu) Items() []Item {
	return m.items
}

// Selected returns the index of the highlighted entry.
func (m *Menu) Selected() int {
	return m.selected
}

// SelectedItem returns the highlighted entry.
func (m *Menu) SelectedItem() (Item, bool) {
	if m.selected < 0 || m.selected >= len(m.items) {
		return Item{}, false
	}
	return m.items[m.selected], true
}

// MoveUp moves selection up.
func (m *Menu) MoveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

// MoveDown moves selection down.
func (m *Menu) MoveDown() {
	if m.selected < len(m.items)-1 {
		m.selected++
	}
}

// Count returns the number of entries.
func (m *Menu) Count() int {
	return len(m.items)
}
