package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

const (
	defaultReindexConcurrency = 4
	defaultReindexRate        = 5
)

// SourceService is the typed gateway to the knowledge backend.
// It publishes a change after every successful mutation.
type SourceService struct {
	api      driven.KnowledgeAPI
	snapshot driven.SnapshotStore
	feed     *ChangeFeed
	now      func() time.Time

	reindexConcurrency int
	reindexLimiter     *rate.Limiter
}

// SourceServiceOption configures a SourceService.
type SourceServiceOption func(*SourceService)

// WithSnapshotStore persists every successful list for offline use.
func WithSnapshotStore(store driven.SnapshotStore) SourceServiceOption {
	return func(s *SourceService) {
		s.snapshot = store
	}
}

// WithReindexLimits bounds ReindexAll to concurrency parallel requests
// and perSecond requests per second.
func WithReindexLimits(concurrency int, perSecond float64) SourceServiceOption {
	return func(s *SourceService) {
		if concurrency > 0 {
			s.reindexConcurrency = concurrency
		}
		if perSecond > 0 {
			s.reindexLimiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewSourceService creates a new source service.
func NewSourceService(api driven.KnowledgeAPI, feed *ChangeFeed, opts ...SourceServiceOption) *SourceService {
	if feed == nil {
		feed = NewChangeFeed(0)
	}
	s := &SourceService{
		api:                api,
		feed:               feed,
		now:                time.Now,
		reindexConcurrency: defaultReindexConcurrency,
		reindexLimiter:     rate.NewLimiter(rate.Limit(defaultReindexRate), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all sources and refreshes the local snapshot.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	sources, err := s.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	if s.snapshot != nil {
		if err := s.snapshot.Replace(ctx, sources, s.now()); err != nil {
			logger.Warn("Failed to store source snapshot: %v", err)
		}
	}
	return sources, nil
}

// Add creates a text or url source.
func (s *SourceService) Add(ctx context.Context, draft domain.Draft) (*domain.Source, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	created, err := s.api.Add(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("add source: %w", err)
	}
	change := domain.Change{Kind: domain.ChangeAdded, Source: created}
	if created != nil {
		change.SourceID = created.ID
	}
	s.feed.Publish(change)
	return created, nil
}

// Upload sends a local file, creating a file source or attaching it to sourceID.
func (s *SourceService) Upload(
	ctx context.Context, file domain.FileHandle, sourceID string,
) (*domain.UploadResult, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	if file.Path == "" {
		return nil, fmt.Errorf("upload: missing file path: %w", domain.ErrInvalidInput)
	}
	result, err := s.api.Upload(ctx, file, sourceID)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	if result.SourceID == "" {
		result.SourceID = sourceID
	}
	s.feed.Publish(domain.Change{Kind: domain.ChangeUploaded, SourceID: result.SourceID})
	return result, nil
}

// Update applies a partial update to a source.
func (s *SourceService) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	if id == "" {
		return nil, fmt.Errorf("update: missing source id: %w", domain.ErrInvalidInput)
	}
	updated, err := s.api.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update source %s: %w", id, err)
	}
	s.feed.Publish(domain.Change{Kind: domain.ChangeUpdated, SourceID: id, Source: updated})
	return updated, nil
}

// Remove deletes a source.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	if s.api == nil {
		return domain.ErrNotImplemented
	}
	if id == "" {
		return fmt.Errorf("remove: missing source id: %w", domain.ErrInvalidInput)
	}
	if err := s.api.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove source %s: %w", id, err)
	}
	s.feed.Publish(domain.Change{Kind: domain.ChangeRemoved, SourceID: id})
	return nil
}

// Reindex requests a rebuild of a source's index entries.
func (s *SourceService) Reindex(ctx context.Context, id string) (*domain.Source, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	if id == "" {
		return nil, fmt.Errorf("reindex: missing source id: %w", domain.ErrInvalidInput)
	}
	reindexed, err := s.api.Reindex(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reindex source %s: %w", id, err)
	}
	s.feed.Publish(domain.Change{Kind: domain.ChangeReindexed, SourceID: id, Source: reindexed})
	return reindexed, nil
}

// ReindexAll reindexes every ID with bounded concurrency and a request
// rate limit. Each success publishes its own change. All failures are
// joined into the returned error.
func (s *SourceService) ReindexAll(ctx context.Context, ids []string) (int, error) {
	if s.api == nil {
		return 0, domain.ErrNotImplemented
	}
	logger.Section("Reindex all")
	logger.Info("Reindexing %d sources", len(ids))

	results := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reindexConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := s.reindexLimiter.Wait(gctx); err != nil {
				results[i] = fmt.Errorf("reindex source %s: %w", id, err)
				return nil
			}
			if _, err := s.Reindex(gctx, id); err != nil {
				logger.Debug("Reindex %s failed: %v", id, err)
				results[i] = err
			}
			return nil
		})
	}
	//nolint:errcheck // workers record failures in results and never return errors
	_ = g.Wait()

	succeeded := 0
	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		succeeded++
	}

	logger.Info("Reindex complete: %d succeeded, %d failed", succeeded, len(errs))
	return succeeded, errors.Join(errs...)
}

// Detail fetches the full view of a source.
func (s *SourceService) Detail(ctx context.Context, id string) (*domain.Source, error) {
	if s.api == nil {
		return nil, domain.ErrNotImplemented
	}
	if id == "" {
		return nil, fmt.Errorf("detail: missing source id: %w", domain.ErrInvalidInput)
	}
	detail, err := s.api.View(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("view source %s: %w", id, err)
	}
	return detail, nil
}

// Cached returns the last snapshot persisted by List.
func (s *SourceService) Cached(ctx context.Context) ([]domain.Source, time.Time, error) {
	if s.snapshot == nil {
		return nil, time.Time{}, domain.ErrNotImplemented
	}
	sources, fetchedAt, err := s.snapshot.List(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot: %w", err)
	}
	return sources, fetchedAt, nil
}

// Subscribe registers for change notifications.
func (s *SourceService) Subscribe() (<-chan domain.Change, func()) {
	return s.feed.Subscribe()
}

// BaseURL is the server address relative links resolve against.
func (s *SourceService) BaseURL() string {
	if s.api == nil {
		return ""
	}
	return s.api.BaseURL()
}

func validateDraft(draft domain.Draft) error {
	switch draft.Type {
	case domain.SourceTypeText:
		if draft.Content == "" {
			return fmt.Errorf("add: text source needs content: %w", domain.ErrInvalidInput)
		}
	case domain.SourceTypeURL:
		if draft.URI == "" {
			return fmt.Errorf("add: url source needs a uri: %w", domain.ErrInvalidInput)
		}
	case domain.SourceTypeFile:
		return fmt.Errorf("add: file sources are created by upload: %w", domain.ErrUnsupportedType)
	default:
		return fmt.Errorf("add: %w", domain.ErrUnsupportedType)
	}
	return nil
}
