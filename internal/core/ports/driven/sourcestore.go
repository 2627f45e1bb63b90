package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// SnapshotStore persists the last source list fetched from the backend.
type SnapshotStore interface {
	// Replace swaps the stored snapshot for sources.
	Replace(ctx context.Context, sources []domain.Source, fetchedAt time.Time) error

	// List returns the stored snapshot and when it was fetched.
	// An empty store returns a nil slice and the zero time.
	List(ctx context.Context) ([]domain.Source, time.Time, error)

	// Get retrieves one stored source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)
}
