package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// layout is the rendered body of a source plus the links its keys act on.
type layout struct {
	lines        []string
	preview      string
	external     string
	targets      []domain.DownloadTarget
	hasExtracted bool
	isFile       bool
}

// Sanitize strips terminal escape sequences and control characters,
// keeping newlines and tabs.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}

// bodyRenderer renders each source variant.
type bodyRenderer struct {
	styles   *styles.Styles
	resolve  func(string) (string, bool)
	showText bool
}

func (r bodyRenderer) VisitText(t domain.TextPayload) layout {
	content := Sanitize(t.Content)
	if strings.TrimSpace(content) == "" {
		return layout{lines: []string{r.styles.Muted.Render("(empty)")}}
	}
	return layout{lines: []string{content}}
}

func (r bodyRenderer) VisitFile(f domain.FilePayload) layout {
	out := layout{isFile: true, hasExtracted: f.ExtractedText != ""}

	if f.Filename != "" {
		out.lines = append(out.lines, r.styles.Subtitle.Render("File: ")+r.styles.Normal.Render(Sanitize(f.Filename)))
	}

	if preview, ok := r.resolve(f.PreviewURL()); ok {
		out.preview = preview
		out.external = preview
		out.lines = append(out.lines, "Preview: "+r.styles.Link.Render(preview)+r.styles.Help.Render("  [p] open"))
	} else {
		out.lines = append(out.lines, r.styles.Muted.Render(previewExplanation(f)))
	}

	out.targets = f.DownloadTargets()
	if out.external == "" && len(out.targets) > 0 {
		out.external = out.targets[0].URL
	}
	switch len(out.targets) {
	case 0:
	case 1:
		out.lines = append(out.lines, r.styles.Help.Render("[d] download "+out.targets[0].Label))
	default:
		out.lines = append(out.lines, r.styles.Help.Render(fmt.Sprintf("[d] downloads (%d)", len(out.targets))))
	}

	if r.showText && out.hasExtracted {
		out.lines = append(out.lines, "", r.styles.Subtitle.Render("Extracted text"), Sanitize(f.ExtractedText))
	}
	return out
}

func (r bodyRenderer) VisitURL(u domain.URLPayload) layout {
	var out layout
	if link, ok := r.resolve(u.URI); ok {
		out.external = link
		out.lines = append(out.lines, r.styles.Link.Render(link)+r.styles.Help.Render("  [o] open"))
	} else {
		out.lines = append(out.lines, r.styles.Normal.Render(Sanitize(u.URI)))
	}
	if preview := strings.TrimSpace(u.Preview); preview != "" {
		out.lines = append(out.lines, "", r.styles.Muted.Render(Sanitize(preview)))
	}
	return out
}

func previewExplanation(f domain.FilePayload) string {
	switch f.Generation {
	case domain.PreviewSkippedNoConverter:
		return "No preview: the server has no document converter installed"
	case domain.PreviewFailed:
		if f.GenerationErr != "" {
			return "Preview generation failed: " + Sanitize(f.GenerationErr)
		}
		return "Preview generation failed"
	}
	return "No preview available"
}

// renderBody lays out src. ok is false for unknown types.
func renderBody(r bodyRenderer, src *domain.Source) (layout, bool) {
	out, ok := domain.Visit[layout](src, r)
	if !ok {
		return layout{lines: []string{r.styles.Muted.Render("This source cannot be displayed")}}, false
	}
	return out, true
}
