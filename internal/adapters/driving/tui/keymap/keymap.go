// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Help shows the help view.
	Help key.Binding

	// Back returns to the previous view or closes a popup.
	Back key.Binding

	// Up navigates up in a list.
	Up key.Binding

	// Down navigates down in a list.
	Down key.Binding

	// Select confirms a selection.
	Select key.Binding

	// List actions.

	// Open shows the selected source in the viewer.
	Open key.Binding

	// Reindex reindexes the selected source.
	Reindex key.Binding

	// Remove deletes the selected source after confirmation.
	Remove key.Binding

	// Menu toggles the overflow menu of the selected card.
	Menu key.Binding

	// Add opens the editor to create a source.
	Add key.Binding

	// Refresh reloads the source list.
	Refresh key.Binding

	// ReindexAll reindexes every source after confirmation.
	ReindexAll key.Binding

	// Editor actions.

	// NextTab cycles the editor's content type.
	NextTab key.Binding

	// NextField moves focus to the next input.
	NextField key.Binding

	// PrevField moves focus to the previous input.
	PrevField key.Binding

	// Submit sends the editor form.
	Submit key.Binding

	// Viewer actions.

	// Preview opens the rendered preview.
	Preview key.Binding

	// External opens the first preview or download target.
	External key.Binding

	// ToggleText shows or hides extracted text.
	ToggleText key.Binding

	// Download opens the single download or toggles the download menu.
	Download key.Binding

	// Dialog actions.

	// Confirm accepts a prompt.
	Confirm key.Binding

	// Cancel rejects a prompt.
	Cancel key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter", "open"),
		),
		Reindex: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "reindex"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "menu"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ReindexAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reindex all"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "switch type"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Preview: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "preview"),
		),
		External: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		ToggleText: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "extracted text"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// ListHelp returns keybindings for the source list.
func (k *KeyMap) ListHelp() []key.Binding {
	return []key.Binding{k.Open, k.Add, k.Menu, k.Reindex, k.Remove, k.Refresh, k.Quit}
}

// EditorHelp returns keybindings for the editor.
func (k *KeyMap) EditorHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.NextField, k.Submit, k.Back}
}

// ViewerHelp returns keybindings for the viewer.
func (k *KeyMap) ViewerHelp() []key.Binding {
	return []key.Binding{k.Preview, k.External, k.ToggleText, k.Download, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Menu, k.Add, k.Reindex, k.Remove, k.Refresh, k.ReindexAll},
		{k.NextTab, k.NextField, k.PrevField, k.Submit},
		{k.Preview, k.External, k.ToggleText, k.Download},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
