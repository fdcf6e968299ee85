package embedding

import (
	"context"
	"errors"
)

var ErrEmbeddingFailed = errors.New("embedding service call failed")

type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
}
