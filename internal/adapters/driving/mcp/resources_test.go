package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

func TestExtractSourceID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid source URI", "knowctl://sources/src-123", "src-123"},
		{"invalid prefix", "file://sources/src-123", ""},
		{"text URI is not a detail URI", "knowctl://sources/src-123/text", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSourceID(tt.uri))
		})
	}
}

func TestExtractTextSourceID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid text URI", "knowctl://sources/src-456/text", "src-456"},
		{"invalid prefix", "file://sources/src-456/text", ""},
		{"missing text suffix", "knowctl://sources/src-456", ""},
		{"nested path", "knowctl://sources/a/b/text", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTextSourceID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleSourcesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns sources successfully", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{sources: sampleSources()})

		result, err := server.handleSourcesResource(ctx, makeReadResourceRequest("knowctl://sources"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"source_id": "t1"`)
		assert.Contains(t, result.Contents[0].Text, `"filename": "report.docx"`)
	})

	t.Run("empty list", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{})

		result, err := server.handleSourcesResource(ctx, makeReadResourceRequest("knowctl://sources"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{err: errors.New("backend down")})

		_, err := server.handleSourcesResource(ctx, makeReadResourceRequest("knowctl://sources"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing sources")
	})
}

func TestServer_handleSourceResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		source := &mockSourceService{}
		server := newTestServer(t, source)

		_, err := server.handleSourceResource(ctx, makeReadResourceRequest("knowctl://invalid/uri"))

		require.Error(t, err)
		assert.Empty(t, source.detailed)
	})

	t.Run("unavailable detail returns not found", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{})

		_, err := server.handleSourceResource(ctx, makeReadResourceRequest("knowctl://sources/x"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrDetailUnavailable)
	})

	t.Run("returns detail", func(t *testing.T) {
		source := &mockSourceService{detail: &domain.Source{Type: domain.SourceTypeURL, URI: "https://go.dev"}}
		server := newTestServer(t, source)

		result, err := server.handleSourceResource(ctx, makeReadResourceRequest("knowctl://sources/u1"))

		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, source.detailed)
		assert.Contains(t, result.Contents[0].Text, `"source_id": "u1"`)
		assert.Contains(t, result.Contents[0].Text, `"uri": "https://go.dev"`)
	})

	t.Run("transport failure is wrapped", func(t *testing.T) {
		source := &mockSourceService{err: &domain.TransportError{Op: "view", Err: errors.New("refused")}}
		server := newTestServer(t, source)

		_, err := server.handleSourceResource(ctx, makeReadResourceRequest("knowctl://sources/u1"))

		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}

func TestServer_handleSourceTextResource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		detail domain.Source
		want   string
	}{
		{"text", domain.Source{Type: domain.SourceTypeText, Content: "note body"}, "note body"},
		{"file", domain.Source{Type: domain.SourceTypeFile, ExtractedText: "extracted"}, "extracted"},
		{"url", domain.Source{Type: domain.SourceTypeURL, URI: "https://go.dev", Preview: "Go"}, "https://go.dev\n\nGo"},
		{"url without preview", domain.Source{Type: domain.SourceTypeURL, URI: "https://go.dev"}, "https://go.dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := tt.detail
			server := newTestServer(t, &mockSourceService{detail: &detail})

			result, err := server.handleSourceTextResource(ctx, makeReadResourceRequest("knowctl://sources/s1/text"))

			require.NoError(t, err)
			require.Len(t, result.Contents, 1)
			assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
			assert.Equal(t, tt.want, result.Contents[0].Text)
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{detail: &domain.Source{Type: domain.SourceTypeUnknown}})

		_, err := server.handleSourceTextResource(ctx, makeReadResourceRequest("knowctl://sources/s1/text"))

		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("invalid URI", func(t *testing.T) {
		server := newTestServer(t, &mockSourceService{})

		_, err := server.handleSourceTextResource(ctx, makeReadResourceRequest("knowctl://sources/s1"))

		require.Error(t, err)
	})
}
