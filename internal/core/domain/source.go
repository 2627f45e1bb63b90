package domain

import (
	"encoding/json"
	"strings"
)

// SourceType is the closed set of content variants a source can hold.
type SourceType int

const (
	// SourceTypeUnknown is any tag the client does not recognise.
	SourceTypeUnknown SourceType = iota
	// SourceTypeText is free text entered by the user.
	SourceTypeText
	// SourceTypeFile is an uploaded document.
	SourceTypeFile
	// SourceTypeURL is a referenced web link.
	SourceTypeURL
)

// SourceTypes lists the known variants in tab order.
var SourceTypes = []SourceType{SourceTypeText, SourceTypeFile, SourceTypeURL}

// ParseSourceType normalises a wire tag. "site" and "link" are accepted
// aliases for url; matching is exact after trimming and lower-casing.
func ParseSourceType(tag string) SourceType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "text":
		return SourceTypeText
	case "file":
		return SourceTypeFile
	case "url", "site", "link":
		return SourceTypeURL
	default:
		return SourceTypeUnknown
	}
}

// String returns the canonical wire tag.
func (t SourceType) String() string {
	switch t {
	case SourceTypeText:
		return "text"
	case SourceTypeFile:
		return "file"
	case SourceTypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Label returns the badge text shown next to a source.
func (t SourceType) Label() string {
	switch t {
	case SourceTypeText:
		return "Text"
	case SourceTypeFile:
		return "File"
	case SourceTypeURL:
		return "Link"
	default:
		return "Source"
	}
}

// MarshalJSON writes the canonical tag.
func (t SourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any string tag; unrecognised tags become SourceTypeUnknown.
func (t *SourceType) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		*t = SourceTypeUnknown
		return nil //nolint:nilerr // non-string tags are treated as unknown
	}
	*t = ParseSourceType(tag)
	return nil
}

// PreviewGeneration reports why a PDF preview is missing.
type PreviewGeneration string

const (
	// PreviewSkippedNoConverter means the backend has no document converter installed.
	PreviewSkippedNoConverter PreviewGeneration = "skipped_no_soffice"
	// PreviewFailed means conversion was attempted and failed.
	PreviewFailed PreviewGeneration = "failed"
)

// DownloadTarget is a labelled link offered by the detail view.
type DownloadTarget struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Source is a content item registered with the knowledge backend.
// Only the fields that belong to Type are meaningful; use Visit to
// read them.
type Source struct {
	ID          string     `json:"source_id"`
	Type        SourceType `json:"type"`
	Title       string     `json:"title,omitempty"`
	Preview     string     `json:"preview,omitempty"`
	Pinned      bool       `json:"pinned,omitempty"`
	Status      string     `json:"status,omitempty"`
	Progress    float64    `json:"progress,omitempty"`
	LastUpdated string     `json:"last_updated,omitempty"`

	// Text.
	Content string `json:"content,omitempty"`

	// File.
	Filename             string            `json:"filename,omitempty"`
	FileURL              string            `json:"file_url,omitempty"`
	DownloadURL          string            `json:"download_url,omitempty"`
	PreviewPDFURL        string            `json:"preview_pdf_url,omitempty"`
	PreviewPDFGeneration PreviewGeneration `json:"preview_pdf_generation,omitempty"`
	PreviewPDFError      string            `json:"preview_pdf_error,omitempty"`
	ExtractedText        string            `json:"extracted_text,omitempty"`
	Downloads            []DownloadTarget  `json:"downloads,omitempty"`

	// URL.
	URI string `json:"uri,omitempty"`
}

// DisplayTitle returns the best available human label for the source.
func (s *Source) DisplayTitle() string {
	for _, candidate := range []string{s.Title, s.URI, s.Filename, s.ID} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// ProgressFraction returns Progress as a 0..1 fraction, clamped.
func (s *Source) ProgressFraction() float64 {
	switch {
	case s.Progress <= 0:
		return 0
	case s.Progress >= 100:
		return 1
	default:
		return s.Progress / 100
	}
}

// FindSource returns the source with the given ID from a snapshot.
func FindSource(sources []Source, id string) (*Source, bool) {
	for i := range sources {
		if sources[i].ID == id {
			src := sources[i]
			return &src, true
		}
	}
	return nil, false
}
