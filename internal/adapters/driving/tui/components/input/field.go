// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
)

// Field wraps a bubbles textinput with a label and focus styling.
type Field struct {
	label     string
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewField creates a labelled single-line input.
func NewField(s *styles.Styles, label, placeholder string, charLimit int) *Field {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = charLimit
	ti.Width = 50

	return &Field{
		label:     label,
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Update handles input messages.
func (f *Field) Update(msg tea.Msg) (*Field, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the label above the input.
func (f *Field) View() string {
	label := f.styles.Muted.Render(f.label)
	if f.textinput.Focused() {
		label = f.styles.Subtitle.Render(f.label)
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, f.styles.InputField.Render(f.textinput.View()))
}

// Value returns the current input value.
func (f *Field) Value() string {
	return f.textinput.Value()
}

// SetValue sets the input value.
func (f *Field) SetValue(value string) {
	f.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (f *Field) Focus() tea.Cmd {
	return f.textinput.Focus()
}

// Blur removes focus from the input.
func (f *Field) Blur() {
	f.textinput.Blur()
}

// Focused returns whether the input is focused.
func (f *Field) Focused() bool {
	return f.textinput.Focused()
}

// SetWidth sets the width of the input.
func (f *Field) SetWidth(width int) {
	f.width = width
	// Account for border and padding
	inputWidth := width - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	f.textinput.Width = inputWidth
}

// Width returns the current width.
func (f *Field) Width() int {
	return f.width
}

// Reset clears the input.
func (f *Field) Reset() {
	f.textinput.Reset()
}
