package sources

import (
	"context"
	"time"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// mockSourceService implements driving.SourceService for testing.
type mockSourceService struct {
	ListFunc       func(ctx context.Context) ([]domain.Source, error)
	AddFunc        func(ctx context.Context, draft domain.Draft) (*domain.Source, error)
	UploadFunc     func(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error)
	UpdateFunc     func(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error)
	RemoveFunc     func(ctx context.Context, id string) error
	ReindexFunc    func(ctx context.Context, id string) (*domain.Source, error)
	ReindexAllFunc func(ctx context.Context, ids []string) (int, error)

	added    []domain.Draft
	uploads  []string
	updates  map[string][]domain.Patch
	removed  []string
	reindex  []string
	listHits int
}

func (m *mockSourceService) List(ctx context.Context) ([]domain.Source, error) {
	m.listHits++
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockSourceService) Add(ctx context.Context, draft domain.Draft) (*domain.Source, error) {
	m.added = append(m.added, draft)
	if m.AddFunc != nil {
		return m.AddFunc(ctx, draft)
	}
	return &domain.Source{ID: "new", Type: draft.Type}, nil
}

func (m *mockSourceService) Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error) {
	m.uploads = append(m.uploads, file.Name+"@"+sourceID)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, file, sourceID)
	}
	id := sourceID
	if id == "" {
		id = "up"
	}
	return &domain.UploadResult{SourceID: id, Filename: file.Name, FileURL: "/knowledge/file/" + id}, nil
}

func (m *mockSourceService) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	if m.updates == nil {
		m.updates = make(map[string][]domain.Patch)
	}
	m.updates[id] = append(m.updates[id], patch)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockSourceService) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *mockSourceService) Reindex(ctx context.Context, id string) (*domain.Source, error) {
	m.reindex = append(m.reindex, id)
	if m.ReindexFunc != nil {
		return m.ReindexFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSourceService) ReindexAll(ctx context.Context, ids []string) (int, error) {
	if m.ReindexAllFunc != nil {
		return m.ReindexAllFunc(ctx, ids)
	}
	return len(ids), nil
}

func (m *mockSourceService) Detail(_ context.Context, id string) (*domain.Source, error) {
	return &domain.Source{ID: id}, nil
}

func (m *mockSourceService) Cached(context.Context) ([]domain.Source, time.Time, error) {
	return nil, time.Time{}, nil
}

func (m *mockSourceService) Subscribe() (<-chan domain.Change, func()) {
	ch := make(chan domain.Change)
	return ch, func() { close(ch) }
}

func (m *mockSourceService) BaseURL() string {
	return "http://localhost:8000"
}
