package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// defaultListLimit caps list_sources when no limit is given.
const defaultListLimit = 50

// ListInput is the input schema for the list_sources tool.
type ListInput struct {
	Type  string `json:"type,omitempty" jsonschema:"only return sources of this type: text, file or url"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of sources to return (default 50)"`
}

// ListOutput is the output schema for the list_sources tool.
type ListOutput struct {
	Sources []SourceOutput `json:"sources"`
	Count   int            `json:"count"`
	Total   int            `json:"total"`
}

// SourceIDInput identifies one source.
type SourceIDInput struct {
	SourceID string `json:"source_id" jsonschema:"the id of the source"`
}

// AddTextInput is the input schema for the add_text tool.
type AddTextInput struct {
	Title   string `json:"title,omitempty" jsonschema:"title of the note; defaults to the start of the content"`
	Content string `json:"content" jsonschema:"the text to index"`
}

// AddLinkInput is the input schema for the add_link tool.
type AddLinkInput struct {
	URI string `json:"uri" jsonschema:"an http or https address to index"`
}

// UploadInput is the input schema for the upload_file tool.
type UploadInput struct {
	Path     string `json:"path" jsonschema:"local path of the file to upload; images are refused"`
	Title    string `json:"title,omitempty" jsonschema:"title for the source; defaults to the file name"`
	SourceID string `json:"source_id,omitempty" jsonschema:"replace the file of this existing source instead of creating one"`
}

// UpdateInput is the input schema for the update_source tool.
type UpdateInput struct {
	SourceID string  `json:"source_id" jsonschema:"the id of the source"`
	Title    *string `json:"title,omitempty" jsonschema:"new title"`
	Content  *string `json:"content,omitempty" jsonschema:"new content (text sources only)"`
	URI      *string `json:"uri,omitempty" jsonschema:"new address (url sources only)"`
	Pinned   *bool   `json:"pinned,omitempty" jsonschema:"pin or unpin the source"`
}

// SourceOutput is the view of a source returned to assistants.
type SourceOutput struct {
	ID            string           `json:"source_id"`
	Type          string           `json:"type"`
	Title         string           `json:"title"`
	Pinned        bool             `json:"pinned,omitempty"`
	Status        string           `json:"status,omitempty"`
	Progress      float64          `json:"progress,omitempty"`
	LastUpdated   string           `json:"last_updated,omitempty"`
	Preview       string           `json:"preview,omitempty"`
	Content       string           `json:"content,omitempty"`
	Filename      string           `json:"filename,omitempty"`
	URI           string           `json:"uri,omitempty"`
	PreviewURL    string           `json:"preview_url,omitempty"`
	Downloads     []DownloadOutput `json:"downloads,omitempty"`
	ExtractedText string           `json:"extracted_text,omitempty"`
}

// DownloadOutput is one labelled download link.
type DownloadOutput struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ResultOutput acknowledges a mutation.
type ResultOutput struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List knowledge sources registered with the backend",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "view_source",
		Description: "Show the full detail of one knowledge source, including extracted text and download links",
	}, s.handleView)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_text",
		Description: "Add a free-text knowledge source",
	}, s.handleAddText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_link",
		Description: "Add a web link as a knowledge source",
	}, s.handleAddLink)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_file",
		Description: "Upload a local document as a knowledge source, or replace an existing source's file",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_source",
		Description: "Change the title, content, address or pinned flag of a source",
	}, s.handleUpdate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex_source",
		Description: "Ask the backend to rebuild a source's index entries",
	}, s.handleReindex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_source",
		Description: "Delete a knowledge source",
	}, s.handleRemove)
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	want := domain.SourceTypeUnknown
	if input.Type != "" {
		want = domain.ParseSourceType(input.Type)
		if want == domain.SourceTypeUnknown {
			return nil, ListOutput{}, fmt.Errorf("type %q: %w", input.Type, domain.ErrUnsupportedType)
		}
	}

	sources, err := s.ports.Source.List(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{Sources: []SourceOutput{}}
	for i := range sources {
		if want != domain.SourceTypeUnknown && sources[i].Type != want {
			continue
		}
		output.Total++
		if len(output.Sources) < limit {
			output.Sources = append(output.Sources, s.summary(&sources[i]))
		}
	}
	output.Count = len(output.Sources)

	return nil, output, nil
}

func (s *Server) handleView(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceIDInput,
) (*mcp.CallToolResult, SourceOutput, error) {
	if err := requireID(input.SourceID); err != nil {
		return nil, SourceOutput{}, err
	}
	detail, err := s.ports.Source.Detail(ctx, input.SourceID)
	if err != nil {
		return nil, SourceOutput{}, err
	}
	return nil, s.detail(detail), nil
}

func (s *Server) handleAddText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddTextInput,
) (*mcp.CallToolResult, SourceOutput, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, SourceOutput{}, fmt.Errorf("content is required: %w", domain.ErrInvalidInput)
	}
	src, err := s.ports.Source.Add(ctx, domain.NewTextDraft(strings.TrimSpace(input.Title), content))
	if err != nil {
		return nil, SourceOutput{}, err
	}
	return nil, s.summary(src), nil
}

func (s *Server) handleAddLink(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddLinkInput,
) (*mcp.CallToolResult, SourceOutput, error) {
	uri := strings.TrimSpace(input.URI)
	if uri == "" {
		return nil, SourceOutput{}, fmt.Errorf("uri is required: %w", domain.ErrInvalidInput)
	}
	src, err := s.ports.Source.Add(ctx, domain.NewURLDraft(uri))
	if err != nil {
		return nil, SourceOutput{}, err
	}
	return nil, s.summary(src), nil
}

func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, ResultOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, ResultOutput{}, fmt.Errorf("path is required: %w", domain.ErrInvalidInput)
	}
	file := domain.NewFileHandle(path)
	if domain.IsImageFile(file) {
		return nil, ResultOutput{}, fmt.Errorf("%s: %w", file.Name, domain.ErrImagesNotAllowed)
	}

	result, err := s.ports.Source.Upload(ctx, file, input.SourceID)
	if err != nil {
		return nil, ResultOutput{}, err
	}

	title := strings.TrimSpace(input.Title)
	var patch domain.Patch
	switch {
	case input.SourceID != "":
		patch = domain.FileReplacementPatch(result.Filename, result.FileURL)
		if title != "" {
			patch.Title = &title
		}
	case title != "" && title != result.Filename:
		patch = domain.TitlePatch(title)
	}
	if !patch.IsEmpty() {
		if _, err := s.ports.Source.Update(ctx, result.SourceID, patch); err != nil {
			return nil, ResultOutput{}, fmt.Errorf("uploaded %s but update failed: %w", result.Filename, err)
		}
	}

	return nil, ResultOutput{
		SourceID: result.SourceID,
		Message:  "Uploaded " + result.Filename,
	}, nil
}

func (s *Server) handleUpdate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateInput,
) (*mcp.CallToolResult, ResultOutput, error) {
	if err := requireID(input.SourceID); err != nil {
		return nil, ResultOutput{}, err
	}

	patch := domain.Patch{Title: input.Title, URI: input.URI, Pinned: input.Pinned}
	if input.Content != nil {
		patch = domain.TextPatch(derefOr(input.Title, domain.DefaultTitle(*input.Content)), *input.Content)
		patch.URI = input.URI
		patch.Pinned = input.Pinned
	}
	if patch.IsEmpty() {
		return nil, ResultOutput{}, fmt.Errorf("nothing to update: %w", domain.ErrInvalidInput)
	}

	if _, err := s.ports.Source.Update(ctx, input.SourceID, patch); err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{SourceID: input.SourceID, Message: "Source updated"}, nil
}

func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceIDInput,
) (*mcp.CallToolResult, ResultOutput, error) {
	if err := requireID(input.SourceID); err != nil {
		return nil, ResultOutput{}, err
	}
	if _, err := s.ports.Source.Reindex(ctx, input.SourceID); err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{SourceID: input.SourceID, Message: "Reindex requested"}, nil
}

func (s *Server) handleRemove(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceIDInput,
) (*mcp.CallToolResult, ResultOutput, error) {
	if err := requireID(input.SourceID); err != nil {
		return nil, ResultOutput{}, err
	}
	if err := s.ports.Source.Remove(ctx, input.SourceID); err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{SourceID: input.SourceID, Message: "Source removed"}, nil
}

// summary is the list view of src: no extracted text or links.
func (s *Server) summary(src *domain.Source) SourceOutput {
	if src == nil {
		return SourceOutput{}
	}
	return SourceOutput{
		ID:          src.ID,
		Type:        src.Type.String(),
		Title:       src.DisplayTitle(),
		Pinned:      src.Pinned,
		Status:      src.Status,
		Progress:    src.Progress,
		LastUpdated: src.LastUpdated,
		Preview:     src.Preview,
		Filename:    src.Filename,
		URI:         src.URI,
	}
}

// detail adds the variant payload of src to its summary.
func (s *Server) detail(src *domain.Source) SourceOutput {
	out := s.summary(src)
	if src == nil {
		return out
	}
	payload, ok := domain.Visit[SourceOutput](src, payloadOutput{s})
	if !ok {
		return out
	}
	out.Content = payload.Content
	out.PreviewURL = payload.PreviewURL
	out.Downloads = payload.Downloads
	out.ExtractedText = payload.ExtractedText
	return out
}

// payloadOutput renders the variant fields of a source.
type payloadOutput struct {
	s *Server
}

func (v payloadOutput) VisitText(p domain.TextPayload) SourceOutput {
	return SourceOutput{Content: p.Content}
}

func (v payloadOutput) VisitFile(p domain.FilePayload) SourceOutput {
	out := SourceOutput{
		PreviewURL:    v.s.resolve(p.PreviewURL()),
		ExtractedText: p.ExtractedText,
	}
	for _, target := range p.DownloadTargets() {
		if link := v.s.resolve(target.URL); link != "" {
			out.Downloads = append(out.Downloads, DownloadOutput{Label: target.Label, URL: link})
		}
	}
	return out
}

func (v payloadOutput) VisitURL(domain.URLPayload) SourceOutput {
	return SourceOutput{}
}

// resolve makes raw absolute and drops it when unsafe.
func (s *Server) resolve(raw string) string {
	if raw == "" {
		return ""
	}
	if s.ports.Links == nil {
		return raw
	}
	link, ok := s.ports.Links.Resolve(raw)
	if !ok {
		return ""
	}
	return link
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("source_id is required: %w", domain.ErrInvalidInput)
	}
	return nil
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
