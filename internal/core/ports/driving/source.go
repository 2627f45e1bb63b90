package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// SourceService manages sources on the knowledge backend.
// Every successful mutation publishes exactly one domain.Change to
// subscribers; failed calls publish nothing.
type SourceService interface {
	// List returns all sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Add creates a text or url source.
	Add(ctx context.Context, draft domain.Draft) (*domain.Source, error)

	// Upload sends a local file. An empty sourceID creates a new file
	// source; otherwise the file replaces that source's stored file.
	Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error)

	// Update applies a partial update to a source.
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error)

	// Remove deletes a source.
	Remove(ctx context.Context, id string) error

	// Reindex requests a rebuild of a source's index entries.
	Reindex(ctx context.Context, id string) (*domain.Source, error)

	// ReindexAll reindexes every listed ID with bounded concurrency.
	// Returns how many succeeded and every failure joined.
	ReindexAll(ctx context.Context, ids []string) (int, error)

	// Detail fetches the full view of a source.
	Detail(ctx context.Context, id string) (*domain.Source, error)

	// Cached returns the last list persisted locally and when it was fetched.
	Cached(ctx context.Context) ([]domain.Source, time.Time, error)

	// Subscribe registers for change notifications. The returned func
	// unsubscribes and closes the channel.
	Subscribe() (<-chan domain.Change, func())

	// BaseURL is the server address relative links resolve against.
	BaseURL() string
}
