package domain

import "strings"

const (
	// StoredPreviewLength caps the preview persisted with a text source.
	StoredPreviewLength = 400

	// ExcerptLength is the default card excerpt length.
	ExcerptLength = 240

	// DefaultTitleLength caps a title derived from content.
	DefaultTitleLength = 80

	// Ellipsis marks truncated text.
	Ellipsis = "…"
)

// StoredPreview returns the first StoredPreviewLength runes of content,
// with an ellipsis when anything was cut.
func StoredPreview(content string) string {
	runes := []rune(content)
	if len(runes) <= StoredPreviewLength {
		return content
	}
	return string(runes[:StoredPreviewLength]) + Ellipsis
}

// ShortText truncates s to n runes (ExcerptLength when n <= 0),
// trimming trailing whitespace before the ellipsis.
func ShortText(s string, n int) string {
	if n <= 0 {
		n = ExcerptLength
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + Ellipsis
}

// DefaultTitle derives a title from the start of content.
func DefaultTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > DefaultTitleLength {
		runes = runes[:DefaultTitleLength]
	}
	return string(runes)
}
