package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// mockAPI implements driven.KnowledgeAPI for testing.
type mockAPI struct {
	mu sync.Mutex

	ListFunc    func(ctx context.Context) ([]domain.Source, error)
	AddFunc     func(ctx context.Context, draft domain.Draft) (*domain.Source, error)
	UploadFunc  func(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error)
	UpdateFunc  func(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error)
	RemoveFunc  func(ctx context.Context, id string) error
	ReindexFunc func(ctx context.Context, id string) (*domain.Source, error)
	ViewFunc    func(ctx context.Context, id string) (*domain.Source, error)

	reindexed []string
}

func (m *mockAPI) List(ctx context.Context) ([]domain.Source, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.Source{}, nil
}

func (m *mockAPI) Add(ctx context.Context, draft domain.Draft) (*domain.Source, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, draft)
	}
	return &domain.Source{ID: "new", Type: draft.Type}, nil
}

func (m *mockAPI) Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, file, sourceID)
	}
	return &domain.UploadResult{SourceID: "up", Filename: file.Name}, nil
}

func (m *mockAPI) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockAPI) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *mockAPI) Reindex(ctx context.Context, id string) (*domain.Source, error) {
	m.mu.Lock()
	m.reindexed = append(m.reindexed, id)
	m.mu.Unlock()
	if m.ReindexFunc != nil {
		return m.ReindexFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAPI) View(ctx context.Context, id string) (*domain.Source, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, id)
	}
	return &domain.Source{ID: id}, nil
}

func (m *mockAPI) BaseURL() string {
	return "http://backend.test"
}

// drain collects every change currently buffered on ch.
func drain(ch <-chan domain.Change) []domain.Change {
	var out []domain.Change
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		default:
			return out
		}
	}
}
