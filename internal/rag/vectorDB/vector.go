package vectorDB

import (
	"context"
	"errors"

	"github.com/akolanti/docuchat/internal/domain/commonModels"
)

var ErrIndexUnavailable = errors.New("vector index unavailable")

// Index is the persistent vector store. Commit must be duplicate tolerant:
// re-committing the same logical segment (same storage name and segment
// index) overwrites the existing entry instead of creating a second one, so a
// redelivered job can safely repeat its writes.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Commit(ctx context.Context, segments []commonModels.EnrichedSegment, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]commonModels.SearchHit, error)
}
