package driven

import (
	"context"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// KnowledgeAPI is the remote source of truth for sources.
// Failures are *domain.TransportError or *domain.ServerError.
type KnowledgeAPI interface {
	// List returns every source. Unrecognised response shapes yield an empty list.
	List(ctx context.Context) ([]domain.Source, error)

	// Add creates a text or url source. The returned source carries at least the new ID.
	Add(ctx context.Context, draft domain.Draft) (*domain.Source, error)

	// Upload sends a file. An empty sourceID creates a new file source;
	// otherwise the file is attached to that source.
	// A refused file yields *domain.UploadRejectedError.
	Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error)

	// Update applies a partial update. The returned source is nil when the
	// backend only acknowledged the change.
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error)

	// Remove deletes a source.
	Remove(ctx context.Context, id string) error

	// Reindex asks the backend to rebuild a source's index entries.
	Reindex(ctx context.Context, id string) (*domain.Source, error)

	// View fetches the full detail envelope of a source.
	View(ctx context.Context, id string) (*domain.Source, error)

	// BaseURL is the server address relative links resolve against.
	BaseURL() string
}
