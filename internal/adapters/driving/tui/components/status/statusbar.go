// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady      State = "ready"
	StateLoading    State = "loading"
	StateSubmitting State = "submitting"
)

// notice is a transient message shown instead of the state.
type notice struct {
	id    int
	text  string
	level messages.Level
}

// Bar displays application status, transient notifications and
// keybinding hints.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	state  State
	count  int
	hints  []key.Binding
	width  int

	notice *notice
	nextID int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		hints:  km.ShortHelp(),
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles notification messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.Notify:
		return s, s.Notify(msg)
	case messages.NotificationExpired:
		if s.notice != nil && s.notice.id == msg.ID {
			s.notice = nil
		}
	}
	return s, nil
}

// Notify shows n and returns a command that expires it after its TTL.
// A newer notification replaces an older one; the older one's expiry
// is then ignored.
func (s *Bar) Notify(n messages.Notify) tea.Cmd {
	s.nextID++
	id := s.nextID
	s.notice = &notice{id: id, text: n.Text, level: n.Level}

	ttl := n.TTL
	if ttl <= 0 {
		ttl = messages.DefaultNoticeTTL
	}
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return messages.NotificationExpired{ID: id}
	})
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	padding := s.width - leftLen - rightLen
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders the notification or the state.
func (s *Bar) renderLeft() string {
	if s.notice != nil {
		switch s.notice.level {
		case messages.LevelError:
			return s.styles.Error.Render(s.notice.text)
		case messages.LevelWarning:
			return s.styles.Warning.Render(s.notice.text)
		case messages.LevelSuccess:
			return s.styles.Success.Render(s.notice.text)
		case messages.LevelInfo:
			return s.styles.Normal.Render(s.notice.text)
		}
	}

	switch s.state {
	case StateLoading:
		return s.styles.Muted.Render("Loading...")
	case StateSubmitting:
		return s.styles.Muted.Render("Saving...")
	case StateReady:
		if s.count == 1 {
			return s.styles.Normal.Render("1 source")
		}
		if s.count > 0 {
			return s.styles.Normal.Render(fmt.Sprintf("%d sources", s.count))
		}
	}
	return s.styles.Muted.Render("Ready")
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	hints := make([]string, 0, len(s.hints))
	for _, b := range s.hints {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetCount sets the number of sources shown in the ready state.
func (s *Bar) SetCount(count int) {
	s.count = count
}

// Count returns the source count.
func (s *Bar) Count() int {
	return s.count
}

// SetHints replaces the keybinding hints.
func (s *Bar) SetHints(bindings []key.Binding) {
	s.hints = bindings
}

// Notice returns the visible notification text, if any.
func (s *Bar) Notice() (string, messages.Level, bool) {
	if s.notice == nil {
		return "", messages.LevelInfo, false
	}
	return s.notice.text, s.notice.level, true
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.notice = nil
	s.count = 0
}
