// Package confirm provides a yes/no confirmation dialog.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
)

// Dialog asks for confirmation before running an action.
type Dialog struct {
	styles    *styles.Styles
	keys      *keymap.KeyMap
	active    bool
	prompt    string
	onConfirm tea.Cmd
}

// New creates an inactive dialog.
func New(s *styles.Styles, km *keymap.KeyMap) *Dialog {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Dialog{styles: s, keys: km}
}

// Activate shows prompt. onConfirm runs only if the user accepts.
func (d *Dialog) Activate(prompt string, onConfirm tea.Cmd) {
	d.prompt = prompt
	d.onConfirm = onConfirm
	d.active = true
}

// Active reports whether the dialog is showing.
func (d *Dialog) Active() bool {
	return d.active
}

// Prompt returns the current prompt.
func (d *Dialog) Prompt() string {
	return d.prompt
}

// Update handles a key while active. Other keys are swallowed so nothing
// behind the dialog reacts.
func (d *Dialog) Update(msg tea.KeyMsg) tea.Cmd {
	if !d.active {
		return nil
	}
	switch {
	case keymap.Matches(msg.String(), d.keys.Confirm):
		cmd := d.onConfirm
		d.reset()
		return cmd
	case keymap.Matches(msg.String(), d.keys.Cancel):
		d.reset()
	}
	return nil
}

func (d *Dialog) reset() {
	d.active = false
	d.prompt = ""
	d.onConfirm = nil
}

// View renders the dialog.
func (d *Dialog) View() string {
	if !d.active {
		return ""
	}
	box := d.styles.Dialog.Render(d.prompt)
	help := d.styles.Help.
		Width(lipgloss.Width(box)).
		Align(lipgloss.Center).
		Render("(y/n)")
	return lipgloss.JoinVertical(lipgloss.Left, box, help)
}
