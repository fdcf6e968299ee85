package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/internal/metrics"
	"github.com/akolanti/docuchat/internal/rag/embedding"
	"github.com/akolanti/docuchat/internal/rag/ingest"
	"github.com/akolanti/docuchat/internal/rag/llm"
	"github.com/akolanti/docuchat/internal/rag/vectorDB"
	"github.com/akolanti/docuchat/pkg/logger_i"
)

var (
	ErrInvalidQuery    = errors.New("query is required and must be a non-empty string")
	ErrRetrievalFailed = errors.New("failed to retrieve relevant context")
)

// Service is the only surface the worker and the handlers see; the vector
// index, embedder and LLM stay private to this package's implementation.
type Service interface {
	// IngestDocument runs split, enrich and commit for one job. Any error
	// means the delivery must not be acknowledged.
	IngestDocument(ctx context.Context, job jobModel.IngestionJob) error
	// Answer resolves one user query against the index and returns the
	// generated answer with the hits it was grounded on.
	Answer(ctx context.Context, query string) (string, []commonModels.SearchHit, error)
}

type service struct {
	index       vectorDB.Index
	llmProvider llm.Provider
	embedder    embedding.Embedder
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(index vectorDB.Index, llmProvider llm.Provider, em embedding.Embedder) Service {
	return &service{
		index:       index,
		llmProvider: llmProvider,
		embedder:    em,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.IngestionJob) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	log := s.logger.With("storageName", job.StorageName)
	log.Debug("Processing document", "path", job.StoredPath)

	pages, err := ingest.ExtractPages(job.StoredPath)
	if err != nil {
		return err
	}

	segments := ingest.SplitDocument(pages, config.ChunkSize, config.ChunkOverlap)
	enriched := ingest.EnrichSegments(segments, job)
	if len(enriched) == 0 {
		log.Info("Document produced no segments, nothing to commit")
		return nil
	}
	log.Debug("Document split", "segments", len(enriched))

	// embed and commit in batches; a retried job re-submits the same
	// logical segments so partially committed attempts converge
	for i := 0; i < len(enriched); i += config.EmbeddingBatchSize {
		end := i + config.EmbeddingBatchSize
		if end > len(enriched) {
			end = len(enriched)
		}
		batch := enriched[i:end]

		vectors, err := s.executeBatchEmbeddingStep(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if err := s.executeCommitStep(ctx, batch, vectors); err != nil {
			return fmt.Errorf("committing batch failed: %w", err)
		}
	}

	metrics.AddSegmentsCommitted(len(enriched))
	log.Info("Stored segments for document", "segments", len(enriched))
	return nil
}

func (s *service) Answer(ctx context.Context, query string) (string, []commonModels.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, ErrInvalidQuery
	}

	answerCtx, cancel := context.WithTimeout(ctx, config.AnswerTimeout)
	defer cancel()

	queryVector, err := s.executeEmbeddingStep(answerCtx, query)
	if err != nil {
		s.logger.Error("Query embedding failed", "error", err)
		return "", nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	hits, err := s.executeVectorSearchStep(answerCtx, queryVector)
	if err != nil {
		s.logger.Error("Vector search failed", "error", err)
		return "", nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	// zero hits is not a failure: generation runs with an empty context and
	// the model flags the answer as not document grounded
	answer, err := s.executeLLMStep(answerCtx, query, buildContext(hits))
	if err != nil {
		s.logger.Error("Answer generation failed", "error", err)
		return "", nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	return answer, hits, nil
}

// buildContext labels each retrieved segment by rank, best match first.
func buildContext(hits []commonModels.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		parts = append(parts, fmt.Sprintf("Source %d:\n%s", i+1, hit.Segment.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (s *service) executeEmbeddingStep(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, query)
}

func (s *service) executeBatchEmbeddingStep(ctx context.Context, batch []commonModels.EnrichedSegment) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("batch_embedding", time.Since(start)) }()

	texts := make([]string, 0, len(batch))
	for _, seg := range batch {
		texts = append(texts, seg.Content)
	}
	return s.embedder.BatchEmbedding(ctx, texts)
}

func (s *service) executeCommitStep(ctx context.Context, batch []commonModels.EnrichedSegment, vectors [][]float32) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_commit", time.Since(start)) }()

	return s.index.Commit(ctx, batch, vectors)
}

func (s *service) executeVectorSearchStep(ctx context.Context, queryVector []float32) ([]commonModels.SearchHit, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.index.Search(ctx, queryVector, config.TopK)
}

func (s *service) executeLLMStep(ctx context.Context, query string, contextBlock string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, query, contextBlock)
}
