// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSources is the source list.
	ViewSources ViewType = iota
	// ViewEditor is the add/edit form.
	ViewEditor
	// ViewViewer shows a single source.
	ViewViewer
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSources:
		return "sources"
	case ViewEditor:
		return "editor"
	case ViewViewer:
		return "viewer"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// SourcesLoaded settles one refresh. Ticket identifies the refresh so
// its loading indicator can be released.
type SourcesLoaded struct {
	Ticket  int
	Sources []domain.Source
	Err     error
}

// SourcesChanged carries one change notification from the source service.
type SourcesChanged struct {
	Change domain.Change
}

// ChangeFeedClosed signals that the change subscription ended.
type ChangeFeedClosed struct{}

// ActionFinished reports the outcome of a card or menu action.
type ActionFinished struct {
	Action   string
	SourceID string
	Notice   string
	Err      error
}

// OpenViewer asks the app to show a source in the detail viewer.
type OpenViewer struct {
	Source domain.Source
}

// ViewerClosed signals the viewer was dismissed.
type ViewerClosed struct{}

// DetailLoaded carries the extended view of a source. Seq identifies
// the viewer open it belongs to.
type DetailLoaded struct {
	Seq    int
	Detail *domain.Source
	Err    error
}

// OpenEditor asks the app to open the editor. Source is nil when creating.
type OpenEditor struct {
	Tab    domain.SourceType
	Source *domain.Source
}

// EditorClosed signals the editor was dismissed.
type EditorClosed struct{}

// SubmitFinished settles an editor submission.
type SubmitFinished struct {
	// Seq identifies the submission; stale results are ignored.
	Seq    int
	Notice string
	Err    error
}

// ConfirmRequested asks the app to confirm before running OnConfirm.
type ConfirmRequested struct {
	Prompt    string
	OnConfirm tea.Cmd
}

// Level grades a notification.
type Level int

const (
	// LevelInfo is a neutral notice.
	LevelInfo Level = iota
	// LevelSuccess reports a completed action.
	LevelSuccess
	// LevelWarning reports something the user should notice.
	LevelWarning
	// LevelError reports a failure.
	LevelError
)

// DefaultNoticeTTL is how long a notification stays visible.
const DefaultNoticeTTL = 3 * time.Second

// Notify shows a transient notification in the status bar.
// A zero TTL uses DefaultNoticeTTL.
type Notify struct {
	Text  string
	Level Level
	TTL   time.Duration
}

// NotificationExpired clears the notification with the given ID.
type NotificationExpired struct {
	ID int
}

// Info builds a command emitting an info notification.
func Info(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text, Level: LevelInfo} }
}

// Success builds a command emitting a success notification.
func Success(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text, Level: LevelSuccess} }
}

// Warn builds a command emitting a warning notification.
func Warn(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text, Level: LevelWarning} }
}

// Failure builds a command emitting an error notification.
func Failure(text string) tea.Cmd {
	return func() tea.Msg { return Notify{Text: text, Level: LevelError} }
}
