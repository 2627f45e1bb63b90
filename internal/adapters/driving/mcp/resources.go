package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for knowctl resources.
	uriScheme = "knowctl://"

	sourcesPrefix = uriScheme + "sources/"
	textSuffix    = "/text"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing sources.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "List of all knowledge sources",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	// Template for the detail of one source.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: sourcesPrefix + "{sourceId}",
		Name:        "source",
		Description: "Detail of a specific knowledge source",
		MIMEType:    "application/json",
	}, s.handleSourceResource)

	// Template for the readable text of one source.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: sourcesPrefix + "{sourceId}" + textSuffix,
		Name:        "source-text",
		Description: "Text of a source: note content, extracted document text, or link address",
		MIMEType:    "text/plain",
	}, s.handleSourceTextResource)
}

// handleSourcesResource returns a summary of every source.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sources, err := s.ports.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]SourceOutput, len(sources))
	for i := range sources {
		infos[i] = s.summary(&sources[i])
	}

	return jsonResult(req.Params.URI, infos)
}

// handleSourceResource returns the detail of one source.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sourceID := extractSourceID(req.Params.URI)
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	detail, err := s.fetchDetail(ctx, req.Params.URI, sourceID)
	if err != nil {
		return nil, err
	}

	return jsonResult(req.Params.URI, s.detail(detail))
}

// handleSourceTextResource returns the readable text of one source.
func (s *Server) handleSourceTextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sourceID := extractTextSourceID(req.Params.URI)
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	detail, err := s.fetchDetail(ctx, req.Params.URI, sourceID)
	if err != nil {
		return nil, err
	}

	text, ok := domain.Visit[string](detail, readableText{})
	if !ok {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrUnsupportedType)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// fetchDetail loads a source, mapping an unavailable detail to a
// resource-not-found error.
func (s *Server) fetchDetail(ctx context.Context, uri, sourceID string) (*domain.Source, error) {
	detail, err := s.ports.Source.Detail(ctx, sourceID)
	if errors.Is(err, domain.ErrDetailUnavailable) || errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("loading source %s: %w", sourceID, err)
	}
	if detail.ID == "" {
		detail.ID = sourceID
	}
	return detail, nil
}

// readableText picks the text an assistant would read for a source.
type readableText struct{}

func (readableText) VisitText(p domain.TextPayload) string {
	return p.Content
}

func (readableText) VisitFile(p domain.FilePayload) string {
	return p.ExtractedText
}

func (readableText) VisitURL(p domain.URLPayload) string {
	if p.Preview == "" {
		return p.URI
	}
	return p.URI + "\n\n" + p.Preview
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like knowctl://sources/{sourceId}.
func extractSourceID(uri string) string {
	if !strings.HasPrefix(uri, sourcesPrefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, sourcesPrefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractTextSourceID extracts the source ID from a URI like knowctl://sources/{sourceId}/text.
func extractTextSourceID(uri string) string {
	if !strings.HasPrefix(uri, sourcesPrefix) || !strings.HasSuffix(uri, textSuffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, sourcesPrefix), textSuffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
