package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// sourceRecord is the machine-readable shape of a source.
type sourceRecord struct {
	ID            string                  `json:"source_id" yaml:"source_id"`
	Type          string                  `json:"type" yaml:"type"`
	Title         string                  `json:"title" yaml:"title"`
	Pinned        bool                    `json:"pinned" yaml:"pinned"`
	Status        string                  `json:"status,omitempty" yaml:"status,omitempty"`
	Progress      float64                 `json:"progress,omitempty" yaml:"progress,omitempty"`
	LastUpdated   string                  `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
	Preview       string                  `json:"preview,omitempty" yaml:"preview,omitempty"`
	Content       string                  `json:"content,omitempty" yaml:"content,omitempty"`
	Filename      string                  `json:"filename,omitempty" yaml:"filename,omitempty"`
	FileURL       string                  `json:"file_url,omitempty" yaml:"file_url,omitempty"`
	URI           string                  `json:"uri,omitempty" yaml:"uri,omitempty"`
	ExtractedText string                  `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty"`
	Downloads     []domain.DownloadTarget `json:"downloads,omitempty" yaml:"downloads,omitempty"`
}

func toRecord(src *domain.Source) sourceRecord {
	return sourceRecord{
		ID:            src.ID,
		Type:          src.Type.String(),
		Title:         src.DisplayTitle(),
		Pinned:        src.Pinned,
		Status:        src.Status,
		Progress:      src.Progress,
		LastUpdated:   src.LastUpdated,
		Preview:       src.Preview,
		Content:       src.Content,
		Filename:      src.Filename,
		FileURL:       src.FileURL,
		URI:           src.URI,
		ExtractedText: src.ExtractedText,
		Downloads:     src.Downloads,
	}
}

func toRecords(sources []domain.Source) []sourceRecord {
	records := make([]sourceRecord, len(sources))
	for i := range sources {
		records[i] = toRecord(&sources[i])
	}
	return records
}

// validateFormat rejects unknown -o values before any request is made.
func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("output format %q: expected one of %s: %w",
		format, strings.Join(allowed, ", "), domain.ErrInvalidInput)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return validateFormat(format, formatJSON, formatYAML)
	}
}

// writeSourceTable renders sources as an aligned table.
func writeSourceTable(w io.Writer, sources []domain.Source, excerpt int) error {
	table := tablewriter.NewTable(w)
	table.Header("ID", "Type", "Title", "Status", "Updated", "Preview")
	for i := range sources {
		src := &sources[i]
		title := src.DisplayTitle()
		if src.Pinned {
			title = "★ " + title
		}
		if err := table.Append([]string{
			src.ID,
			src.Type.Label(),
			domain.ShortText(title, 40),
			statusText(src),
			src.LastUpdated,
			domain.ShortText(oneLine(previewText(src)), excerpt),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func statusText(src *domain.Source) string {
	status := src.Status
	if status == "" {
		status = "ready"
	}
	if src.Progress > 0 && src.Progress < 100 {
		status = fmt.Sprintf("%s %d%%", status, int(src.Progress))
	}
	return status
}

// previewText picks the short description of a source for listings.
func previewText(src *domain.Source) string {
	text, ok := domain.Visit[string](src, listPreview{})
	if !ok {
		return src.Preview
	}
	return text
}

type listPreview struct{}

func (listPreview) VisitText(p domain.TextPayload) string {
	if p.Preview != "" {
		return p.Preview
	}
	return p.Content
}

func (listPreview) VisitFile(p domain.FilePayload) string {
	return p.Filename
}

func (listPreview) VisitURL(p domain.URLPayload) string {
	if p.Preview != "" {
		return p.Preview
	}
	return p.URI
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
