package viewer

import tea "github.com/charmbracelet/bubbletea"

// Trigger selects which keys a dismissal listener reacts to.
type Trigger int

const (
	// TriggerEscape fires on the escape key.
	TriggerEscape Trigger = iota
	// TriggerOutside fires on any other key the menu did not consume.
	TriggerOutside
)

// Listener reacts to a key. It reports whether the key was consumed.
type Listener func(msg tea.KeyMsg) bool

type attachment struct {
	id int
	fn Listener
}

// Scope holds at most one listener per trigger. Attaching replaces the
// previous listener for that trigger.
type Scope struct {
	listeners map[Trigger]attachment
	nextID    int
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{listeners: make(map[Trigger]attachment, 2)}
}

// Attach registers fn for t and returns a func that releases it.
// Releasing after a newer Attach for the same trigger is a no-op.
func (s *Scope) Attach(t Trigger, fn Listener) func() {
	s.nextID++
	id := s.nextID
	s.listeners[t] = attachment{id: id, fn: fn}
	return func() {
		if current, ok := s.listeners[t]; ok && current.id == id {
			delete(s.listeners, t)
		}
	}
}

// ReleaseAll removes every listener.
func (s *Scope) ReleaseAll() {
	clear(s.listeners)
}

// Len returns the number of attached listeners.
func (s *Scope) Len() int {
	return len(s.listeners)
}

// Has reports whether a listener is attached for t.
func (s *Scope) Has(t Trigger) bool {
	_, ok := s.listeners[t]
	return ok
}

// Dispatch routes msg to the matching listener.
func (s *Scope) Dispatch(msg tea.KeyMsg) bool {
	t := TriggerOutside
	if msg.Type == tea.KeyEsc {
		t = TriggerEscape
	}
	a, ok := s.listeners[t]
	if !ok {
		return false
	}
	return a.fn(msg)
}
