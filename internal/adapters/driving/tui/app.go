package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/components/confirm"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/views/editor"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/views/sources"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/views/viewer"
	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	sourcesView *sources.View
	editorView  *editor.View
	viewerView  *viewer.View
	confirm     *confirm.Dialog
	statusBar   *status.Bar

	// changes is the single change-feed subscription; unsubscribe ends it.
	changes     <-chan domain.Change
	unsubscribe func()

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// Option configures an App.
type Option func(*App)

// WithExcerptLength sets the number of runes of preview shown per card.
func WithExcerptLength(n int) Option {
	return func(a *App) {
		a.sourcesView.SetExcerptLength(n)
	}
}

// NewApp creates a new TUI application with the given ports. It
// subscribes to source changes once; Close ends the subscription.
func NewApp(ports *Ports, opts ...Option) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sourcesView := sources.NewView(s, km, ports.Source)
	editorView := editor.NewView(s, km)
	editorView.SetSubmitHandler(sourcesView.Submit)

	statusBar := status.NewBar(s, km)
	statusBar.SetHints(km.ListHelp())

	changes, unsubscribe := ports.Source.Subscribe()

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		sourcesView: sourcesView,
		editorView:  editorView,
		viewerView:  viewer.NewView(s, km, ports.Source, ports.Links),
		confirm:     confirm.New(s, km),
		statusBar:   statusBar,
		changes:     changes,
		unsubscribe: unsubscribe,
		currentView: messages.ViewSources,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It loads the first snapshot and starts listening for changes.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("knowctl - Knowledge Sources"),
		a.sourcesView.Init(),
		a.waitForChange(),
	)
}

// waitForChange blocks on the subscription for the next change.
func (a *App) waitForChange() tea.Cmd {
	ch := a.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return messages.ChangeFeedClosed{}
		}
		return messages.SourcesChanged{Change: change}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.SourcesChanged:
		logger.Debug("source %s %s, refreshing", msg.Change.SourceID, msg.Change.Kind)
		return a, tea.Batch(a.sourcesView.Refresh(), a.waitForChange())

	case messages.ChangeFeedClosed:
		logger.Debug("change feed closed")
		a.changes = nil
		return a, nil

	case messages.SourcesLoaded:
		if msg.Err != nil {
			a.err = msg.Err
		}
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		a.syncStatus()
		return a, cmd

	case spinner.TickMsg, messages.ActionFinished:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.OpenViewer:
		a.switchTo(messages.ViewViewer)
		return a, a.viewerView.OpenWithSource(msg.Source)

	case messages.DetailLoaded:
		a.viewerView, cmd = a.viewerView.Update(msg)
		return a, cmd

	case messages.ViewerClosed, messages.EditorClosed:
		a.switchTo(messages.ViewSources)
		return a, nil

	case messages.OpenEditor:
		cmd = a.editorView.Open(msg.Tab, msg.Source)
		if a.editorView.IsOpen() {
			a.switchTo(messages.ViewEditor)
		}
		return a, cmd

	case messages.SubmitFinished:
		a.editorView, cmd = a.editorView.Update(msg)
		a.syncStatus()
		return a, cmd

	case messages.ConfirmRequested:
		a.confirm.Activate(msg.Prompt, msg.OnConfirm)
		return a, nil

	case messages.Notify, messages.NotificationExpired:
		a.statusBar, cmd = a.statusBar.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, messages.Failure(messages.Describe(msg.Err))

	case messages.ViewChanged:
		a.switchTo(msg.View)
		return a, nil

	case messages.Quit:
		a.Close()
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit with ctrl+c
	if msg.String() == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	// A pending confirmation takes every key.
	if a.confirm.Active() {
		return a, a.confirm.Update(msg)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewEditor:
		a.editorView, cmd = a.editorView.Update(msg)
		a.syncStatus()
		return a, cmd

	case messages.ViewViewer:
		a.viewerView, cmd = a.viewerView.Update(msg)
		return a, cmd

	case messages.ViewHelp:
		if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
			a.switchTo(messages.ViewSources)
		}
		return a, nil

	case messages.ViewSources:
		// The overflow menu sees keys before the global bindings.
		if a.sourcesView.MenuFor() == "" {
			switch {
			case keymap.Matches(msg.String(), a.keymap.Quit):
				a.Close()
				return a, tea.Quit
			case keymap.Matches(msg.String(), a.keymap.Help):
				a.switchTo(messages.ViewHelp)
				return a, nil
			}
		}
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		a.syncStatus()
		return a, cmd
	}
	return a, nil
}

func (a *App) switchTo(view messages.ViewType) {
	a.currentView = view
	switch view {
	case messages.ViewEditor:
		a.statusBar.SetHints(a.keymap.EditorHelp())
	case messages.ViewViewer:
		a.statusBar.SetHints(a.keymap.ViewerHelp())
	case messages.ViewHelp:
		a.statusBar.SetHints(a.keymap.ShortHelp())
	case messages.ViewSources:
		a.statusBar.SetHints(a.keymap.ListHelp())
	}
	a.syncStatus()
}

// syncStatus mirrors loading and submit state into the status bar.
func (a *App) syncStatus() {
	switch {
	case a.editorView.Submitting():
		a.statusBar.SetState(status.StateSubmitting)
	case a.sourcesView.Loading():
		a.statusBar.SetState(status.StateLoading)
	default:
		a.statusBar.SetState(status.StateReady)
	}
	a.statusBar.SetCount(len(a.sourcesView.Snapshot()))
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewEditor:
		body = a.editorView.View()
	case messages.ViewViewer:
		body = a.viewerView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.sourcesView.View()
	}

	if a.confirm.Active() {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", a.confirm.View())
	}

	bodyHeight := a.height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusBar.View())
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	groups := []string{"Sources", "Editor", "Viewer", "General"}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n")
	for i, bindings := range a.keymap.FullHelp() {
		b.WriteString("\n")
		b.WriteString(a.styles.Subtitle.Render(groups[i]))
		b.WriteString("\n")
		for _, binding := range bindings {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-12s %s\n", h.Key, h.Desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Close ends the change subscription. Safe to call more than once.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	bodyHeight := height - 1
	a.sourcesView.SetDimensions(width, bodyHeight)
	a.editorView.SetDimensions(width, bodyHeight)
	a.viewerView.SetDimensions(width, bodyHeight)
	a.statusBar.SetWidth(width)
}
