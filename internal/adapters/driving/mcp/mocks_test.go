package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
)

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	detail  *domain.Source
	err     error

	added    []domain.Draft
	uploads  []string
	updates  map[string][]domain.Patch
	removed  []string
	reindex  []string
	detailed []string
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Add(_ context.Context, draft domain.Draft) (*domain.Source, error) {
	m.added = append(m.added, draft)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Source{ID: "new", Type: draft.Type, Title: draft.Title, URI: draft.URI, Preview: draft.Preview}, nil
}

func (m *mockSourceService) Upload(_ context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error) {
	m.uploads = append(m.uploads, file.Name+"@"+sourceID)
	if m.err != nil {
		return nil, m.err
	}
	id := sourceID
	if id == "" {
		id = "up"
	}
	return &domain.UploadResult{SourceID: id, Filename: file.Name, FileURL: "/knowledge/file/" + id}, nil
}

func (m *mockSourceService) Update(_ context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	if m.updates == nil {
		m.updates = make(map[string][]domain.Patch)
	}
	m.updates[id] = append(m.updates[id], patch)
	return &domain.Source{ID: id}, m.err
}

func (m *mockSourceService) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

func (m *mockSourceService) Reindex(_ context.Context, id string) (*domain.Source, error) {
	m.reindex = append(m.reindex, id)
	return &domain.Source{ID: id}, m.err
}

func (m *mockSourceService) ReindexAll(_ context.Context, ids []string) (int, error) {
	return len(ids), m.err
}

func (m *mockSourceService) Detail(_ context.Context, id string) (*domain.Source, error) {
	m.detailed = append(m.detailed, id)
	if m.err != nil {
		return nil, m.err
	}
	if m.detail == nil {
		return nil, domain.ErrDetailUnavailable
	}
	d := *m.detail
	return &d, nil
}

func (m *mockSourceService) Cached(_ context.Context) ([]domain.Source, time.Time, error) {
	return m.sources, time.Time{}, nil
}

func (m *mockSourceService) Subscribe() (<-chan domain.Change, func()) {
	ch := make(chan domain.Change)
	return ch, func() { close(ch) }
}

func (m *mockSourceService) BaseURL() string {
	return "http://localhost:8000"
}

// mockLinkService resolves relative links against localhost.
type mockLinkService struct{}

func (mockLinkService) Resolve(raw string) (string, bool) {
	if strings.HasPrefix(raw, "/") {
		raw = "http://localhost:8000" + raw
	}
	return raw, domain.IsSafeURL(raw)
}

func (mockLinkService) Open(string) error {
	return nil
}

var (
	_ driving.SourceService = (*mockSourceService)(nil)
	_ driving.LinkService   = mockLinkService{}
)

func newTestServer(t *testing.T, source *mockSourceService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Source: source, Links: mockLinkService{}})
	require.NoError(t, err)
	return server
}
