package domain

import "strings"

// TextPayload is the variant data of a text source.
type TextPayload struct {
	Content string
	Preview string
}

// FilePayload is the variant data of a file source.
type FilePayload struct {
	Filename      string
	FileURL       string
	DownloadURL   string
	PreviewPDFURL string
	Generation    PreviewGeneration
	GenerationErr string
	ExtractedText string
	Downloads     []DownloadTarget
}

// URLPayload is the variant data of a url source.
type URLPayload struct {
	URI     string
	Preview string
}

// PayloadVisitor handles every source variant. Adding a variant adds a
// method here, so every implementation must be extended before it compiles.
type PayloadVisitor[T any] interface {
	VisitText(TextPayload) T
	VisitFile(FilePayload) T
	VisitURL(URLPayload) T
}

// Visit dispatches src to the visitor method for its type.
// ok is false when the type is unknown.
func Visit[T any](src *Source, v PayloadVisitor[T]) (result T, ok bool) {
	switch src.Type {
	case SourceTypeText:
		return v.VisitText(TextPayload{Content: src.Content, Preview: src.Preview}), true
	case SourceTypeFile:
		return v.VisitFile(FilePayload{
			Filename:      src.Filename,
			FileURL:       src.FileURL,
			DownloadURL:   src.DownloadURL,
			PreviewPDFURL: src.PreviewPDFURL,
			Generation:    src.PreviewPDFGeneration,
			GenerationErr: src.PreviewPDFError,
			ExtractedText: src.ExtractedText,
			Downloads:     src.Downloads,
		}), true
	case SourceTypeURL:
		return v.VisitURL(URLPayload{URI: src.URI, Preview: src.Preview}), true
	case SourceTypeUnknown:
	}
	return result, false
}

// PreviewURL is the inline preview link for a file: the explicit PDF
// preview, else the stored file rendered as PDF.
func (p FilePayload) PreviewURL() string {
	if p.PreviewPDFURL != "" {
		return p.PreviewPDFURL
	}
	if p.FileURL != "" {
		return p.FileURL + "?format=pdf"
	}
	return ""
}

// DownloadTargets returns the explicit download list, else the default
// original and PDF targets. Entries without a URL are dropped.
func (p FilePayload) DownloadTargets() []DownloadTarget {
	candidates := p.Downloads
	if len(candidates) == 0 {
		original := p.DownloadURL
		if original == "" && p.FileURL != "" {
			original = strings.Replace(p.FileURL, "/file/", "/download/", 1)
		}
		candidates = []DownloadTarget{
			{Label: "Original", URL: original},
			{Label: "PDF", URL: p.PreviewURL()},
		}
	}

	targets := make([]DownloadTarget, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			targets = append(targets, c)
		}
	}
	return targets
}

// NeedsDetail reports whether the list summary lacks what the detail
// view renders, so a view fetch is required.
func NeedsDetail(src *Source) bool {
	switch src.Type {
	case SourceTypeText:
		return false
	case SourceTypeFile:
		return src.PreviewPDFURL == "" && len(src.Downloads) == 0
	case SourceTypeURL:
		return src.URI == ""
	case SourceTypeUnknown:
	}
	return true
}
