package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/rag/embedding"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	openAi *openai.Client
	logger *logger_i.Logger
}

// NewClient builds the embedding client. baseURL is optional and lets the
// same client talk to OpenAI-compatible gateways.
func NewClient(apiKey string, baseURL string) (embedding.Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing api key", embedding.ErrEmbeddingFailed)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)

	logger := logger_i.NewLogger("openai_embedding")
	logger.Info("OpenAI embedding client created", "model", config.EmbeddingModel)
	return &client{openAi: &c, logger: logger}, nil
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embedWithRetry(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbedding embeds chunks in batches of EmbeddingBatchSize, preserving
// input order. The whole call fails if any batch fails.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	var allVectors [][]float32

	for i := 0; i < len(chunks); i += config.EmbeddingBatchSize {
		end := i + config.EmbeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		vectors, err := c.embedWithRetry(ctx, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allVectors = append(allVectors, vectors...)
	}

	return allVectors, nil
}

// embedWithRetry retries rate-limited calls with exponential backoff; every
// other failure is permanent for this attempt and surfaces as
// ErrEmbeddingFailed.
func (c *client) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := c.openAi.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: config.EmbeddingModel,
		})
		if err != nil {
			if isRateLimitError(err) {
				c.logger.Warn("Embedding rate limit hit, backing off", "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
