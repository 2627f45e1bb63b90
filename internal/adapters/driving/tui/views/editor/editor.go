// Package editor provides the add/edit source form for the TUI.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// ErrSubmitBlocked is returned by Submit when the form cannot be sent.
var ErrSubmitBlocked = errors.New("submit blocked")

// Submission is the form payload handed to the submit handler.
type Submission struct {
	Tab       domain.SourceType
	EditingID string
	Title     string
	Content   string
	URI       string
	File      *domain.FileHandle
}

// Editing reports whether the submission updates an existing source.
func (s Submission) Editing() bool {
	return s.EditingID != ""
}

// SubmitFunc persists a submission and returns the success notice.
type SubmitFunc func(ctx context.Context, sub Submission) (string, error)

// View is the editor modal.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	open       bool
	tab        domain.SourceType
	editingID  string
	focus      int
	submitting bool
	handler    SubmitFunc

	// session changes on every Close; a submission settling in a later
	// session must not touch the form the user reopened.
	session       int
	submitSeq     int
	submitSession int

	// Text tab.
	textTitle *input.Field
	body      textarea.Model

	// File tab.
	fileTitle   *input.Field
	path        *input.Field
	pendingFile *domain.FileHandle

	// URL tab.
	uri *input.Field

	stat   func(string) (os.FileInfo, error)
	width  int
	height int
}

// NewView creates a closed editor.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	body := textarea.New()
	body.Placeholder = "Paste or type the content"
	body.ShowLineNumbers = false
	body.CharLimit = 0
	body.MaxHeight = 0
	body.SetWidth(60)
	body.SetHeight(8)

	return &View{
		styles:    s,
		keymap:    km,
		tab:       domain.SourceTypeText,
		textTitle: input.NewField(s, "Title", "Defaults to the start of the content", 200),
		body:      body,
		fileTitle: input.NewField(s, "Title", "Defaults to the file name", 200),
		path:      input.NewField(s, "File", "Path to a document, comma separated for several", 0),
		uri:       input.NewField(s, "URL", "https://", 0),
		stat:      os.Stat,
		width:     80,
	}
}

// SetSubmitHandler registers the function that persists submissions.
func (v *View) SetSubmitHandler(fn SubmitFunc) {
	v.handler = fn
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open shows the editor. A non-nil src switches to edit mode on the
// source's own tab with its values filled in.
func (v *View) Open(tab domain.SourceType, src *domain.Source) tea.Cmd {
	if src != nil {
		if src.Type == domain.SourceTypeUnknown {
			return messages.Warn("This source type cannot be edited")
		}
		v.Close()
		v.editingID = src.ID
		v.tab = src.Type
		_, _ = domain.Visit[struct{}](src, prefill{v: v, title: src.Title})
	} else {
		if v.editingID != "" {
			v.Close()
		}
		if tab != domain.SourceTypeUnknown {
			v.tab = tab
		}
	}

	v.open = true
	v.focus = 0
	return v.applyFocus()
}

// Close hides the editor and clears every buffer. An in-flight
// submission stays in flight until its result arrives.
func (v *View) Close() {
	v.open = false
	v.session++
	v.editingID = ""
	v.focus = 0
	v.tab = domain.SourceTypeText
	v.textTitle.Reset()
	v.body.Reset()
	v.fileTitle.Reset()
	v.path.Reset()
	v.pendingFile = nil
	v.uri.Reset()
	v.blurAll()
}

// IsOpen reports whether the editor is visible.
func (v *View) IsOpen() bool {
	return v.open
}

// Tab returns the active tab.
func (v *View) Tab() domain.SourceType {
	return v.tab
}

// EditingID returns the ID of the source being edited, empty when creating.
func (v *View) EditingID() string {
	return v.editingID
}

// Submitting reports whether a submission is in flight.
func (v *View) Submitting() bool {
	return v.submitting
}

// PendingFile returns the file selected for upload.
func (v *View) PendingFile() *domain.FileHandle {
	return v.pendingFile
}

// CanSubmit reports whether the active tab holds enough to submit.
func (v *View) CanSubmit() bool {
	switch v.tab {
	case domain.SourceTypeText:
		return strings.TrimSpace(v.body.Value()) != ""
	case domain.SourceTypeFile:
		return v.pendingFile != nil || v.editingID != ""
	case domain.SourceTypeURL:
		return strings.TrimSpace(v.uri.Value()) != ""
	case domain.SourceTypeUnknown:
	}
	return false
}

// Submission snapshots the form for the active tab.
func (v *View) Submission() Submission {
	sub := Submission{Tab: v.tab, EditingID: v.editingID}
	switch v.tab {
	case domain.SourceTypeText:
		sub.Title = strings.TrimSpace(v.textTitle.Value())
		sub.Content = v.body.Value()
	case domain.SourceTypeFile:
		sub.Title = strings.TrimSpace(v.fileTitle.Value())
		if v.pendingFile != nil {
			f := *v.pendingFile
			sub.File = &f
		}
	case domain.SourceTypeURL:
		sub.URI = strings.TrimSpace(v.uri.Value())
	case domain.SourceTypeUnknown:
	}
	return sub
}

// Submit sends the form to the registered handler. The returned command
// always settles with messages.SubmitFinished.
func (v *View) Submit() (tea.Cmd, error) {
	if !v.open || v.submitting || !v.CanSubmit() {
		return nil, ErrSubmitBlocked
	}
	if v.handler == nil {
		return nil, fmt.Errorf("%w: no submit handler", domain.ErrNotImplemented)
	}

	v.submitting = true
	v.submitSeq++
	v.submitSession = v.session
	seq := v.submitSeq
	sub := v.Submission()
	handler := v.handler
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = messages.SubmitFinished{Seq: seq, Err: fmt.Errorf("submit panicked: %v", r)}
			}
		}()
		notice, err := handler(context.Background(), sub)
		return messages.SubmitFinished{Seq: seq, Notice: notice, Err: err}
	}, nil
}

// Update handles messages for the editor.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SubmitFinished:
		if !v.submitting || msg.Seq != v.submitSeq {
			return v, nil
		}
		v.submitting = false
		if msg.Err != nil {
			return v, messages.Failure(messages.Describe(msg.Err))
		}
		notice := msg.Notice
		if notice == "" {
			notice = "Saved"
		}
		if v.submitSession != v.session {
			// Closed while saving; the form on screen belongs to someone else.
			return v, messages.Success(notice)
		}
		v.Close()
		return v, tea.Batch(
			func() tea.Msg { return messages.EditorClosed{} },
			messages.Success(notice),
		)

	case tea.KeyMsg:
		if !v.open {
			return v, nil
		}
		return v.handleKey(msg)
	}

	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		v.Close()
		return v, func() tea.Msg { return messages.EditorClosed{} }

	case keymap.Matches(k, v.keymap.Submit):
		cmd, err := v.Submit()
		if err != nil && !errors.Is(err, ErrSubmitBlocked) {
			return v, messages.Failure(err.Error())
		}
		return v, cmd

	case keymap.Matches(k, v.keymap.NextTab):
		return v, v.nextTab()

	case keymap.Matches(k, v.keymap.NextField):
		v.focus = (v.focus + 1) % v.fieldCount()
		return v, v.applyFocus()

	case keymap.Matches(k, v.keymap.PrevField):
		v.focus = (v.focus + v.fieldCount() - 1) % v.fieldCount()
		return v, v.applyFocus()

	case k == "enter" && v.tab == domain.SourceTypeFile && v.path.Focused():
		return v, v.selectFiles(v.path.Value())
	}

	return v, v.forward(msg)
}

// nextTab cycles the content type. Edited sources keep their type.
func (v *View) nextTab() tea.Cmd {
	if v.editingID != "" {
		return nil
	}
	for i, t := range domain.SourceTypes {
		if t == v.tab {
			v.tab = domain.SourceTypes[(i+1)%len(domain.SourceTypes)]
			break
		}
	}
	v.focus = 0
	return v.applyFocus()
}

// SelectFiles applies the admission filter to a comma-separated list
// of paths and keeps the first acceptable file.
func (v *View) SelectFiles(raw string) tea.Cmd {
	return v.selectFiles(raw)
}

func (v *View) selectFiles(raw string) tea.Cmd {
	var (
		files   []domain.FileHandle
		missing []string
	)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		info, err := v.stat(p)
		if err != nil || info.IsDir() {
			missing = append(missing, p)
			continue
		}
		files = append(files, domain.NewFileHandle(p))
	}

	if len(files) == 0 {
		v.pendingFile = nil
		if len(missing) > 0 {
			return messages.Failure("File not found: " + strings.Join(missing, ", "))
		}
		return nil
	}

	admission := domain.AdmitFiles(files)
	if admission.AllRejected() {
		v.pendingFile = nil
		return messages.Warn("Image uploads are disabled")
	}

	v.pendingFile = admission.File
	if admission.Rejected > 0 {
		return messages.Warn(fmt.Sprintf("%d image(s) discarded", admission.Rejected))
	}
	return messages.Info("Selected " + admission.File.Name)
}

func (v *View) fieldCount() int {
	switch v.tab {
	case domain.SourceTypeText, domain.SourceTypeFile:
		return 2
	case domain.SourceTypeURL, domain.SourceTypeUnknown:
	}
	return 1
}

func (v *View) blurAll() {
	v.textTitle.Blur()
	v.body.Blur()
	v.fileTitle.Blur()
	v.path.Blur()
	v.uri.Blur()
}

func (v *View) applyFocus() tea.Cmd {
	v.blurAll()
	switch v.tab {
	case domain.SourceTypeText:
		if v.focus == 0 {
			return v.textTitle.Focus()
		}
		return v.body.Focus()
	case domain.SourceTypeFile:
		if v.focus == 0 {
			return v.fileTitle.Focus()
		}
		return v.path.Focus()
	case domain.SourceTypeURL:
		return v.uri.Focus()
	case domain.SourceTypeUnknown:
	}
	return nil
}

// forward passes a key to the focused input.
func (v *View) forward(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case v.textTitle.Focused():
		_, cmd = v.textTitle.Update(msg)
	case v.body.Focused():
		v.body, cmd = v.body.Update(msg)
	case v.fileTitle.Focused():
		_, cmd = v.fileTitle.Update(msg)
	case v.path.Focused():
		_, cmd = v.path.Update(msg)
	case v.uri.Focused():
		_, cmd = v.uri.Update(msg)
	}
	return cmd
}

// View renders the editor.
func (v *View) View() string {
	if !v.open {
		return ""
	}

	var b strings.Builder

	heading := "Add source"
	if v.editingID != "" {
		heading = "Edit source"
	}
	b.WriteString(v.styles.Title.Render(heading))
	b.WriteString("\n\n")
	b.WriteString(v.renderTabs())
	b.WriteString("\n\n")

	switch v.tab {
	case domain.SourceTypeText:
		b.WriteString(v.textTitle.View())
		b.WriteString("\n\n")
		label := v.styles.Muted.Render("Content")
		if v.body.Focused() {
			label = v.styles.Subtitle.Render("Content")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(v.body.View())
	case domain.SourceTypeFile:
		b.WriteString(v.fileTitle.View())
		b.WriteString("\n\n")
		b.WriteString(v.path.View())
		b.WriteString("\n")
		b.WriteString(v.renderSelection())
	case domain.SourceTypeURL:
		b.WriteString(v.uri.View())
	case domain.SourceTypeUnknown:
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderButton())
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[ctrl+t] type  [tab] next field  [ctrl+s] save  [esc] cancel"))

	return v.styles.Dialog.Width(v.dialogWidth()).Render(b.String())
}

func (v *View) renderTabs() string {
	tabs := make([]string, 0, len(domain.SourceTypes))
	for _, t := range domain.SourceTypes {
		switch {
		case t == v.tab:
			tabs = append(tabs, v.styles.TabActive.Render(t.Label()))
		case v.editingID != "":
			tabs = append(tabs, v.styles.Muted.Render(t.Label()))
		default:
			tabs = append(tabs, v.styles.Tab.Render(t.Label()))
		}
	}
	return strings.Join(tabs, " ")
}

func (v *View) renderSelection() string {
	switch {
	case v.pendingFile != nil:
		return v.styles.Success.Render("Selected: " + v.pendingFile.Name)
	case v.editingID != "":
		return v.styles.Muted.Render("Leave empty to keep the current file")
	default:
		return v.styles.Muted.Render("No file selected, press enter to select")
	}
}

func (v *View) renderButton() string {
	switch {
	case v.submitting:
		return v.styles.ButtonDisabled.Render("Saving...")
	case v.CanSubmit():
		return v.styles.Button.Render("Save")
	default:
		return v.styles.ButtonDisabled.Render("Save")
	}
}

func (v *View) dialogWidth() int {
	w := v.width - 4
	if w > 90 {
		w = 90
	}
	if w < 30 {
		w = 30
	}
	return w
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	inner := v.dialogWidth() - 4
	v.textTitle.SetWidth(inner)
	v.fileTitle.SetWidth(inner)
	v.path.SetWidth(inner)
	v.uri.SetWidth(inner)
	v.body.SetWidth(inner)

	bodyHeight := height - 18
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	v.body.SetHeight(bodyHeight)
}

// prefill copies a source's values into the matching tab's buffers.
type prefill struct {
	v     *View
	title string
}

func (p prefill) VisitText(t domain.TextPayload) struct{} {
	p.v.textTitle.SetValue(p.title)
	p.v.body.SetValue(t.Content)
	return struct{}{}
}

func (p prefill) VisitFile(f domain.FilePayload) struct{} {
	title := p.title
	if title == "" {
		title = f.Filename
	}
	p.v.fileTitle.SetValue(title)
	return struct{}{}
}

func (p prefill) VisitURL(u domain.URLPayload) struct{} {
	p.v.uri.SetValue(u.URI)
	return struct{}{}
}
