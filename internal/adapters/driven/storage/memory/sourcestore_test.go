package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

func TestNewSnapshotStore_Empty(t *testing.T) {
	store := NewSnapshotStore()

	sources, fetchedAt, err := store.List(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sources)
	assert.True(t, fetchedAt.IsZero())
}

func TestSnapshotStore_ReplaceAndGet(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	now := time.Now()

	input := []domain.Source{
		{ID: "s1", Type: domain.SourceTypeText, Title: "one"},
		{ID: "s2", Type: domain.SourceTypeURL, URI: "https://x"},
	}
	require.NoError(t, store.Replace(ctx, input, now))

	// Mutating the caller's slice must not leak into the store.
	input[0].Title = "mutated"

	sources, fetchedAt, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, fetchedAt)
	require.Len(t, sources, 2)
	assert.Equal(t, "one", sources[0].Title)

	src, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "https://x", src.URI)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotStore_ConcurrentAccess(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Replace(ctx, []domain.Source{{ID: "s"}}, time.Now())
		}()
		go func() {
			defer wg.Done()
			_, _, _ = store.List(ctx)
		}()
	}
	wg.Wait()

	sources, _, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}
