// Package sources provides the source list view for the TUI.
package sources

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// Overflow menu actions.
const (
	ActionPin     = "pin"
	ActionEdit    = "edit"
	ActionRefresh = "refresh"
	ActionDelete  = "delete"

	actionReindex    = "reindex"
	actionReindexAll = "reindex-all"
	actionRemove     = "remove"
)

// View is the source list.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	service driving.SourceService

	snapshot []domain.Source
	err      error
	selected int

	pending    map[int]struct{}
	nextTicket int
	// applyFrom is the oldest ticket still allowed to replace the snapshot.
	applyFrom int
	spinner    spinner.Model
	bar        progress.Model

	// One popup for the whole list; menuFor is the card it belongs to.
	menu    *list.Menu
	menuFor string

	excerptLength int
	width         int
	height        int
}

// NewView creates the source list.
func NewView(s *styles.Styles, km *keymap.KeyMap, service driving.SourceService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	return &View{
		styles:        s,
		keymap:        km,
		service:       service,
		pending:       make(map[int]struct{}),
		spinner:       sp,
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
		excerptLength: domain.ExcerptLength,
		width:         80,
	}
}

// SetExcerptLength sets how many runes of preview each card shows.
func (v *View) SetExcerptLength(n int) {
	if n > 0 {
		v.excerptLength = n
	}
}

// Init loads the first snapshot.
func (v *View) Init() tea.Cmd {
	return v.Refresh()
}

// Refresh fetches the list. Every call takes its own loading ticket;
// the spinner runs until all tickets settle. A result never replaces
// the snapshot of a later ticket.
func (v *View) Refresh() tea.Cmd {
	ticket := v.nextTicket
	v.nextTicket++
	wasIdle := len(v.pending) == 0
	v.pending[ticket] = struct{}{}

	service := v.service
	load := func() tea.Msg {
		if service == nil {
			return messages.SourcesLoaded{Ticket: ticket, Err: fmt.Errorf("%w: source service", domain.ErrNotImplemented)}
		}
		sources, err := service.List(context.Background())
		return messages.SourcesLoaded{Ticket: ticket, Sources: sources, Err: err}
	}

	if wasIdle {
		return tea.Batch(load, v.spinner.Tick)
	}
	return load
}

// Loading reports whether any refresh is outstanding.
func (v *View) Loading() bool {
	return len(v.pending) > 0
}

// Snapshot returns the latest list.
func (v *View) Snapshot() []domain.Source {
	return v.snapshot
}

// Err returns the error of the last refresh.
func (v *View) Err() error {
	return v.err
}

// SelectedIndex returns the index of the focused card.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedSource returns the focused card's source.
func (v *View) SelectedSource() (*domain.Source, bool) {
	if v.selected < 0 || v.selected >= len(v.snapshot) {
		return nil, false
	}
	src := v.snapshot[v.selected]
	return &src, true
}

// MenuFor returns the ID of the card whose menu is open, empty if none.
func (v *View) MenuFor() string {
	return v.menuFor
}

// Update handles messages for the list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SourcesLoaded:
		delete(v.pending, msg.Ticket)
		if msg.Ticket < v.applyFrom {
			return v, nil
		}
		v.applyFrom = msg.Ticket + 1
		if msg.Err != nil {
			v.snapshot = nil
			v.err = msg.Err
		} else {
			v.snapshot = msg.Sources
			v.err = nil
		}
		v.clamp()
		return v, nil

	case spinner.TickMsg:
		if !v.Loading() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.ActionFinished:
		return v, actionNotice(msg)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	return v, nil
}

func actionNotice(msg messages.ActionFinished) tea.Cmd {
	if msg.Err == nil {
		if msg.Notice == "" {
			return nil
		}
		return messages.Success(msg.Notice)
	}
	text := messages.Describe(msg.Err)
	if msg.Notice != "" {
		text = msg.Notice + ": " + text
	}
	return messages.Failure(text)
}

// clamp keeps the selection in range and drops a menu whose card is gone.
func (v *View) clamp() {
	if v.selected >= len(v.snapshot) {
		v.selected = len(v.snapshot) - 1
	}
	if v.selected < 0 {
		v.selected = 0
	}
	if v.menuFor != "" {
		if _, ok := domain.FindSource(v.snapshot, v.menuFor); !ok {
			v.closeMenu()
		}
	}
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if v.menu != nil {
		switch {
		case keymap.Matches(k, v.keymap.Menu):
			v.closeMenu()
			return v, nil
		case v.menu.Update(msg):
			return v, nil
		case keymap.Matches(k, v.keymap.Select):
			item, ok := v.menu.SelectedItem()
			id := v.menuFor
			v.closeMenu()
			if !ok {
				return v, nil
			}
			return v, v.Activate(item.ID, id)
		}
		// Anything the menu did not take dismisses it.
		v.closeMenu()
		if keymap.Matches(k, v.keymap.Back) {
			return v, nil
		}
	}

	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.snapshot)-1 {
			v.selected++
		}
	case keymap.Matches(k, v.keymap.Open):
		if src, ok := v.SelectedSource(); ok {
			return v, v.open(src.ID)
		}
	case keymap.Matches(k, v.keymap.Reindex):
		if src, ok := v.SelectedSource(); ok {
			return v, v.reindex(src.ID)
		}
	case keymap.Matches(k, v.keymap.Remove):
		if src, ok := v.SelectedSource(); ok {
			return v, v.confirmRemove(src.ID)
		}
	case keymap.Matches(k, v.keymap.Menu):
		if src, ok := v.SelectedSource(); ok {
			v.ToggleMenu(src.ID)
		}
	case keymap.Matches(k, v.keymap.Add):
		return v, func() tea.Msg { return messages.OpenEditor{Tab: domain.SourceTypeText} }
	case keymap.Matches(k, v.keymap.ReindexAll):
		return v, v.confirmReindexAll()
	case keymap.Matches(k, v.keymap.Refresh):
		return v, v.Refresh()
	}

	return v, nil
}

// ToggleMenu opens the overflow menu for id, or closes it if it is
// already open for id. Opening always clears any other open menu first.
func (v *View) ToggleMenu(id string) {
	if v.menuFor == id {
		v.closeMenu()
		return
	}
	v.closeMenu()

	src, ok := domain.FindSource(v.snapshot, id)
	if !ok {
		return
	}
	pin := "Pin"
	if src.Pinned {
		pin = "Unpin"
	}
	v.menu = list.NewMenu(v.styles, "", []list.Item{
		{ID: ActionPin, Label: pin},
		{ID: ActionEdit, Label: "Edit"},
		{ID: ActionRefresh, Label: "Refresh"},
		{ID: ActionDelete, Label: "Delete"},
	})
	v.menuFor = id
}

func (v *View) closeMenu() {
	v.menu = nil
	v.menuFor = ""
}

// Activate runs a menu action against the live snapshot entry for id.
func (v *View) Activate(action, id string) tea.Cmd {
	src, ok := domain.FindSource(v.snapshot, id)
	if !ok {
		return messages.Failure(messages.Describe(domain.ErrNotFound))
	}

	switch action {
	case ActionPin:
		return v.setPinned(src.ID, !src.Pinned)
	case ActionEdit:
		return func() tea.Msg { return messages.OpenEditor{Tab: src.Type, Source: src} }
	case ActionRefresh:
		return v.reindex(src.ID)
	case ActionDelete:
		return v.confirmRemove(src.ID)
	}
	return nil
}

func (v *View) open(id string) tea.Cmd {
	src, ok := domain.FindSource(v.snapshot, id)
	if !ok {
		return messages.Failure(messages.Describe(domain.ErrNotFound))
	}
	return func() tea.Msg { return messages.OpenViewer{Source: *src} }
}

func (v *View) setPinned(id string, pinned bool) tea.Cmd {
	notice := "Unpinned"
	if pinned {
		notice = "Pinned"
	}
	return v.run(ActionPin, id, notice, func(ctx context.Context) error {
		_, err := v.service.Update(ctx, id, domain.PinPatch(pinned))
		return err
	})
}

func (v *View) reindex(id string) tea.Cmd {
	return v.run(actionReindex, id, "Reindex requested", func(ctx context.Context) error {
		_, err := v.service.Reindex(ctx, id)
		return err
	})
}

func (v *View) remove(id string) tea.Cmd {
	return v.run(actionRemove, id, "Source removed", func(ctx context.Context) error {
		return v.service.Remove(ctx, id)
	})
}

func (v *View) confirmRemove(id string) tea.Cmd {
	src, ok := domain.FindSource(v.snapshot, id)
	if !ok {
		return messages.Failure(messages.Describe(domain.ErrNotFound))
	}
	prompt := fmt.Sprintf("Remove %q?", src.DisplayTitle())
	onConfirm := v.remove(id)
	return func() tea.Msg {
		return messages.ConfirmRequested{Prompt: prompt, OnConfirm: onConfirm}
	}
}

func (v *View) confirmReindexAll() tea.Cmd {
	if len(v.snapshot) == 0 {
		return messages.Info("Nothing to reindex")
	}
	ids := make([]string, 0, len(v.snapshot))
	for i := range v.snapshot {
		ids = append(ids, v.snapshot[i].ID)
	}
	service := v.service
	onConfirm := func() tea.Msg {
		if service == nil {
			return messages.ActionFinished{Action: actionReindexAll, Err: domain.ErrNotImplemented}
		}
		done, err := service.ReindexAll(context.Background(), ids)
		notice := fmt.Sprintf("Reindexed %d of %d sources", done, len(ids))
		return messages.ActionFinished{Action: actionReindexAll, Notice: notice, Err: err}
	}
	prompt := fmt.Sprintf("Reindex all %d sources?", len(ids))
	return func() tea.Msg {
		return messages.ConfirmRequested{Prompt: prompt, OnConfirm: onConfirm}
	}
}

// run executes fn in a command and reports the outcome as ActionFinished.
func (v *View) run(action, id, notice string, fn func(ctx context.Context) error) tea.Cmd {
	if v.service == nil {
		return messages.Failure("Source service not available")
	}
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return messages.ActionFinished{Action: action, SourceID: id, Err: err}
		}
		return messages.ActionFinished{Action: action, SourceID: id, Notice: notice}
	}
}

// View renders the list.
func (v *View) View() string {
	st := RenderState{
		Loading:       v.Loading(),
		Spinner:       v.spinner.View(),
		Selected:      v.selected,
		MenuFor:       v.menuFor,
		ExcerptLength: v.excerptLength,
		Width:         v.width,
		Height:        v.height,
		Bar:           &v.bar,
	}
	if v.err != nil {
		st.Err = messages.Describe(v.err)
	}
	if v.menu != nil {
		st.Menu = v.menu.View()
	}
	return RenderList(v.styles, v.snapshot, st)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}
