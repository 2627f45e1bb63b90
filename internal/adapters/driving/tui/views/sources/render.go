package sources

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// cardHeight is the rendered height of one card including its border.
const cardHeight = 6

// RenderState is everything besides the snapshot that affects the list.
type RenderState struct {
	Loading       bool
	Spinner       string
	Err           string
	Selected      int
	MenuFor       string
	Menu          string
	ExcerptLength int
	Width         int
	Height        int
	Bar           *progress.Model
}

// RenderList renders the source cards. It has no side effects.
func RenderList(s *styles.Styles, snapshot []domain.Source, st RenderState) string {
	if s == nil {
		s = styles.DefaultStyles()
	}

	var b strings.Builder

	title := s.Title.Render("Knowledge sources")
	if st.Loading {
		title += " " + st.Spinner + s.Muted.Render(" loading")
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if st.Err != "" {
		b.WriteString(s.Error.Render("Could not load sources: " + st.Err))
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("Press r to retry."))
		return b.String()
	}

	if len(snapshot) == 0 {
		if !st.Loading {
			b.WriteString(s.Muted.Render("No sources yet. Press a to add one."))
		}
		return b.String()
	}

	start, end := window(len(snapshot), st.Selected, st.Height)
	for i := start; i < end; i++ {
		src := &snapshot[i]
		b.WriteString(renderCard(s, src, i == st.Selected, st))
		b.WriteString("\n")
		if st.MenuFor != "" && st.MenuFor == src.ID && st.Menu != "" {
			b.WriteString(st.Menu)
			b.WriteString("\n")
		}
	}
	if end-start < len(snapshot) {
		b.WriteString(s.Muted.Render(fmt.Sprintf("%d-%d of %d", start+1, end, len(snapshot))))
	}

	return b.String()
}

// window returns the slice of cards that fits height while keeping
// selected visible.
func window(total, selected, height int) (int, int) {
	visible := total
	if height > 0 {
		visible = (height - 4) / cardHeight
		if visible < 1 {
			visible = 1
		}
	}
	if visible >= total {
		return 0, total
	}
	start := 0
	if selected >= visible {
		start = selected - visible + 1
	}
	return start, start + visible
}

func renderCard(s *styles.Styles, src *domain.Source, selected bool, st RenderState) string {
	var lines []string

	head := s.Badge.Render(src.Type.Label()) + " "
	if src.Pinned {
		head += s.Pinned.Render("★ ")
	}
	head += s.Normal.Bold(true).Render(oneLine(src.DisplayTitle()))
	lines = append(lines, head)

	lines = append(lines, renderStatus(s, src, st.Bar))

	if excerpt := Excerpt(src, st.ExcerptLength); excerpt != "" {
		lines = append(lines, s.Normal.Render(excerpt))
	} else {
		lines = append(lines, s.Muted.Render("No preview"))
	}

	if src.LastUpdated != "" {
		lines = append(lines, s.Muted.Render("Updated "+src.LastUpdated))
	}

	style := s.Card
	if selected {
		style = s.CardSelected
	}
	if st.Width > 4 {
		style = style.Width(st.Width - 2)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderStatus(s *styles.Styles, src *domain.Source, bar *progress.Model) string {
	status := src.Status
	if status == "" {
		status = "ready"
	}
	line := s.Muted.Render(status)

	frac := src.ProgressFraction()
	if src.Progress > 0 && frac < 1 {
		if bar != nil {
			line += " " + bar.ViewAs(frac)
		} else {
			line += s.Muted.Render(fmt.Sprintf(" %.0f%%", frac*100))
		}
	}
	return line
}

// Excerpt returns the card excerpt of src truncated to n runes.
func Excerpt(src *domain.Source, n int) string {
	text, ok := domain.Visit[string](src, excerpts{})
	if !ok {
		text = src.Preview
	}
	return domain.ShortText(oneLine(text), n)
}

type excerpts struct{}

func (excerpts) VisitText(t domain.TextPayload) string {
	if t.Preview != "" {
		return t.Preview
	}
	return t.Content
}

func (excerpts) VisitFile(f domain.FilePayload) string {
	return f.Filename
}

func (excerpts) VisitURL(u domain.URLPayload) string {
	if u.Preview != "" {
		return u.Preview
	}
	return u.URI
}

// oneLine collapses whitespace runs, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
