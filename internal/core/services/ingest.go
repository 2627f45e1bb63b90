package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
	"github.com/custodia-labs/knowctl/internal/core/ports/driving"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// defaultSettleWindow suppresses repeat uploads of a file that is still being written.
const defaultSettleWindow = 2 * time.Second

// IngestEvent reports what happened to one file seen in a drop folder.
type IngestEvent struct {
	Path    string
	Skipped bool
	Result  *domain.UploadResult
	Err     error
}

// IngestService uploads files dropped into a watched folder.
// Images are skipped by the same admission rule the editor applies.
type IngestService struct {
	sources driving.SourceService
	watcher driven.FolderWatcher
	settle  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewIngestService creates a drop-folder ingester.
func NewIngestService(sources driving.SourceService, watcher driven.FolderWatcher) *IngestService {
	return &IngestService{
		sources:  sources,
		watcher:  watcher,
		settle:   defaultSettleWindow,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

// Run watches dir until ctx is done, uploading each admitted file.
// report, if non-nil, receives one event per file handled.
func (s *IngestService) Run(ctx context.Context, dir string, report func(IngestEvent)) error {
	if s.sources == nil || s.watcher == nil {
		return domain.ErrNotImplemented
	}
	paths, err := s.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("Watching %s for new files", dir)

	for path := range paths {
		if !s.shouldHandle(path) {
			continue
		}
		event := s.ingest(ctx, path)
		if report != nil {
			report(event)
		}
	}
	return ctx.Err()
}

// ingest uploads a single path.
func (s *IngestService) ingest(ctx context.Context, path string) IngestEvent {
	admission := domain.AdmitFiles([]domain.FileHandle{domain.NewFileHandle(path)})
	if admission.File == nil {
		logger.Debug("Skipping image %s", path)
		return IngestEvent{Path: path, Skipped: true}
	}
	result, err := s.sources.Upload(ctx, *admission.File, "")
	if err != nil {
		logger.Warn("Upload of %s failed: %v", path, err)
		return IngestEvent{Path: path, Err: err}
	}
	logger.Debug("Uploaded %s as %s", path, result.SourceID)
	return IngestEvent{Path: path, Result: result}
}

// shouldHandle drops events for a path seen within the settle window.
func (s *IngestService) shouldHandle(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.lastSeen[path]; ok && now.Sub(last) < s.settle {
		return false
	}
	s.lastSeen[path] = now
	return true
}
