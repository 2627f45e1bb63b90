// Package viewer provides the source detail view for the TUI.
package viewer

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// State is the lifecycle of the viewer.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateShowing
	StateFailed
)

// DetailFetcher loads the full view of a source.
type DetailFetcher interface {
	Detail(ctx context.Context, id string) (*domain.Source, error)
}

// View is the detail viewer.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	fetcher DetailFetcher
	links   driving.LinkService

	state    State
	seq      int
	summary  *domain.Source
	detail   *domain.Source
	layout   layout
	showText bool

	menu      *list.Menu
	listeners *Scope
	releases  []func()

	viewport viewport.Model
	width    int
	height   int
}

// NewView creates a closed viewer. links may be nil, in which case
// nothing can be opened.
func NewView(s *styles.Styles, km *keymap.KeyMap, fetcher DetailFetcher, links driving.LinkService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:    s,
		keymap:    km,
		fetcher:   fetcher,
		links:     links,
		listeners: NewScope(),
		viewport:  viewport.New(80, 20),
		width:     80,
		height:    24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// OpenWithSource shows src, fetching its detail when the list summary
// lacks what the viewer renders.
func (v *View) OpenWithSource(src domain.Source) tea.Cmd {
	v.closeMenu()
	v.listeners.ReleaseAll()
	v.seq++
	v.summary = &src
	v.detail = nil
	v.showText = false
	v.layout = layout{}
	v.viewport.SetContent("")

	if !domain.NeedsDetail(&src) || v.fetcher == nil {
		v.show(&src)
		return nil
	}

	v.state = StateLoading
	seq := v.seq
	id := src.ID
	fetcher := v.fetcher
	return func() tea.Msg {
		detail, err := fetcher.Detail(context.Background(), id)
		return messages.DetailLoaded{Seq: seq, Detail: detail, Err: err}
	}
}

// Close hides the viewer and releases every listener.
func (v *View) Close() {
	v.closeMenu()
	v.listeners.ReleaseAll()
	v.seq++
	v.state = StateClosed
	v.summary = nil
	v.detail = nil
	v.layout = layout{}
	v.showText = false
	v.viewport.SetContent("")
}

// State returns the current lifecycle state.
func (v *View) State() State {
	return v.state
}

// IsOpen reports whether the viewer is visible.
func (v *View) IsOpen() bool {
	return v.state != StateClosed
}

// Source returns the source being shown, the detail once loaded.
func (v *View) Source() *domain.Source {
	if v.detail != nil {
		return v.detail
	}
	return v.summary
}

// Title returns the best-known title.
func (v *View) Title() string {
	if src := v.Source(); src != nil {
		return src.DisplayTitle()
	}
	return ""
}

// MenuOpen reports whether the download menu is shown.
func (v *View) MenuOpen() bool {
	return v.menu != nil
}

// Listeners exposes the dismissal listener scope.
func (v *View) Listeners() *Scope {
	return v.listeners
}

// DownloadTargets returns the download targets of the shown source.
func (v *View) DownloadTargets() []domain.DownloadTarget {
	return v.layout.targets
}

// Update handles messages for the viewer.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.DetailLoaded:
		if msg.Seq != v.seq || v.state != StateLoading {
			return v, nil
		}
		if msg.Err != nil || msg.Detail == nil {
			v.state = StateFailed
			return v, nil
		}
		v.show(v.merge(*msg.Detail))
		return v, nil

	case tea.KeyMsg:
		if v.state == StateClosed {
			return v, nil
		}
		return v.handleKey(msg)
	}

	return v, nil
}

// merge fills gaps in a detail envelope from the list summary.
func (v *View) merge(detail domain.Source) *domain.Source {
	if v.summary != nil {
		if detail.ID == "" {
			detail.ID = v.summary.ID
		}
		if detail.Type == domain.SourceTypeUnknown {
			detail.Type = v.summary.Type
		}
		if detail.Title == "" {
			detail.Title = v.summary.Title
		}
	}
	return &detail
}

func (v *View) show(src *domain.Source) {
	v.detail = src
	v.state = StateShowing
	v.refreshBody()
	v.viewport.GotoTop()
}

func (v *View) refreshBody() {
	src := v.Source()
	if src == nil {
		return
	}
	r := bodyRenderer{styles: v.styles, resolve: v.resolve, showText: v.showText}
	v.layout, _ = renderBody(r, src)
	body := strings.Join(v.layout.lines, "\n")
	if v.viewport.Width > 0 {
		body = lipgloss.NewStyle().Width(v.viewport.Width).Render(body)
	}
	v.viewport.SetContent(body)
}

func (v *View) resolve(raw string) (string, bool) {
	if v.links != nil {
		return v.links.Resolve(raw)
	}
	return domain.ResolveURL("", raw)
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if v.menu != nil {
		switch {
		case keymap.Matches(k, v.keymap.Download):
			v.closeMenu()
			return v, nil
		case v.menu.Update(msg):
			return v, nil
		case keymap.Matches(k, v.keymap.Select):
			item, ok := v.menu.SelectedItem()
			v.closeMenu()
			if !ok {
				return v, nil
			}
			return v, v.openLink(item.ID, item.Label)
		}
		if v.listeners.Dispatch(msg) {
			return v, nil
		}
	}

	switch {
	case keymap.Matches(k, v.keymap.Back):
		v.Close()
		return v, func() tea.Msg { return messages.ViewerClosed{} }
	}

	if v.state != StateShowing {
		return v, nil
	}

	switch {
	case keymap.Matches(k, v.keymap.Preview):
		if v.layout.preview == "" {
			return v, messages.Info("No preview available")
		}
		return v, v.openLink(v.layout.preview, "preview")

	case keymap.Matches(k, v.keymap.External):
		if v.layout.external == "" {
			return v, messages.Info("Nothing to open")
		}
		return v, v.openLink(v.layout.external, "link")

	case keymap.Matches(k, v.keymap.ToggleText):
		return v, v.toggleText()

	case keymap.Matches(k, v.keymap.Download):
		return v, v.download()
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) toggleText() tea.Cmd {
	if !v.layout.isFile {
		return nil
	}
	if !v.layout.hasExtracted {
		return func() tea.Msg {
			return messages.Notify{Text: "No extracted text for this file", Level: messages.LevelInfo}
		}
	}
	v.showText = !v.showText
	v.refreshBody()
	return nil
}

// download opens the only target directly, or toggles the menu when
// there are several.
func (v *View) download() tea.Cmd {
	targets := v.layout.targets
	switch len(targets) {
	case 0:
		return nil
	case 1:
		return v.openLink(targets[0].URL, targets[0].Label)
	}
	v.openMenu(targets)
	return nil
}

func (v *View) openMenu(targets []domain.DownloadTarget) {
	v.closeMenu()

	items := make([]list.Item, 0, len(targets))
	for _, t := range targets {
		items = append(items, list.Item{ID: t.URL, Label: t.Label})
	}
	v.menu = list.NewMenu(v.styles, "Download", items)

	v.releases = append(v.releases,
		v.listeners.Attach(TriggerEscape, func(tea.KeyMsg) bool {
			v.closeMenu()
			return true
		}),
		v.listeners.Attach(TriggerOutside, func(tea.KeyMsg) bool {
			v.closeMenu()
			return false
		}),
	)
}

func (v *View) closeMenu() {
	for _, release := range v.releases {
		release()
	}
	v.releases = nil
	v.menu = nil
}

// openLink opens raw in the browser after resolution and the safety check.
func (v *View) openLink(raw, label string) tea.Cmd {
	if v.links == nil {
		return messages.Warn("Opening links is not available")
	}
	links := v.links
	return func() tea.Msg {
		if err := links.Open(raw); err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return messages.Notify{Text: "Blocked unsafe link", Level: messages.LevelError}
			}
			return messages.Notify{Text: messages.Describe(err), Level: messages.LevelError}
		}
		return messages.Notify{Text: "Opened " + label, Level: messages.LevelInfo}
	}
}

// View renders the viewer.
func (v *View) View() string {
	if v.state == StateClosed {
		return ""
	}

	var b strings.Builder

	header := v.styles.Title.Render(Sanitize(v.Title()))
	if src := v.Source(); src != nil {
		header = v.styles.Badge.Render(src.Type.Label()) + " " + header
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	switch v.state {
	case StateLoading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case StateFailed:
		b.WriteString(v.styles.Error.Render("Unable to load this source"))
	case StateShowing:
		b.WriteString(v.viewport.View())
		if v.menu != nil {
			b.WriteString("\n")
			b.WriteString(v.menu.View())
		}
	case StateClosed:
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[p] preview  [o] open  [t] text  [d] download  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	bodyHeight := height - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	v.viewport.Width = width
	v.viewport.Height = bodyHeight
	if v.state == StateShowing {
		v.refreshBody()
	}
}
