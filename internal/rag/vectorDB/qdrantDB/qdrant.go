package qdrantDB

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/internal/rag/vectorDB"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

var dimension = uint64(config.EmbeddingOutputDimensionality)

// segmentNamespace seeds the deterministic point IDs. Never change it: the
// identity of every committed segment depends on it.
var segmentNamespace = uuid.MustParse("a7c8f3de-41b2-4c5a-9e6d-2f8b01d47a93")

type ClientHolder struct {
	qObj       *qdrant.Client
	collection string
	logger     *logger_i.Logger
}

// New connects to Qdrant, verifies health with backoff, and asserts the
// collection. The connection is owned by ctx and reused for the process
// lifetime.
func New(ctx context.Context) (*ClientHolder, error) {
	logger := logger_i.NewLogger("Qdrant")

	host := config.Env("QDRANT_HOST", config.QdrantHost)
	port, err := strconv.Atoi(config.Env("QDRANT_PORT", strconv.Itoa(config.QdrantGrpcPort)))
	if err != nil {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    config.QdrantKeepAliveTime,
				Timeout: config.QdrantKeepAliveTimeout,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vectorDB.ErrIndexUnavailable, err)
	}

	db := &ClientHolder{
		qObj:       client,
		collection: config.CollectionName,
		logger:     logger,
	}

	if err := db.healthCheckWithRetry(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", vectorDB.ErrIndexUnavailable, err)
	}
	if err := db.EnsureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Qdrant connected", "host", host, "collection", db.collection)
	go db.closeOnDone(ctx)
	return db, nil
}

func (db *ClientHolder) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = config.QdrantConnectionTimeout

	return backoff.Retry(func() error {
		_, err := db.qObj.HealthCheck(ctx)
		return err
	}, backoff.WithContext(b, ctx))
}

func (db *ClientHolder) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	db.logger.Info("Shutting down Qdrant client")
	if err := db.qObj.Close(); err != nil {
		db.logger.Error("Could not close Qdrant client", "error", err)
	}
}

// EnsureCollection creates the collection and payload indexes if missing.
// Idempotent, safe to call on every startup.
func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	exists, err := db.qObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", vectorDB.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	err = db.qObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", vectorDB.ErrIndexUnavailable, err)
	}

	return db.createPayloadIndexes(ctx)
}

// Without these indexes metadata filtering degrades badly on large
// collections.
func (db *ClientHolder) createPayloadIndexes(ctx context.Context) error {
	keyword := []string{"storage_name", "original_name"}
	for _, field := range keyword {
		_, err := db.qObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: db.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("%w: index for %s: %v", vectorDB.ErrIndexUnavailable, field, err)
		}
	}

	_, err := db.qObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: db.collection,
		FieldName:      "segment_index",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("%w: index for segment_index: %v", vectorDB.ErrIndexUnavailable, err)
	}
	return nil
}

// SegmentPointID derives the point ID from the segment's stable logical key.
// A retried job re-submits the same IDs, so Qdrant overwrites instead of
// duplicating.
func SegmentPointID(storageName string, segmentIndex int) string {
	return uuid.NewSHA1(segmentNamespace, []byte(storageName+"#"+strconv.Itoa(segmentIndex))).String()
}

// Commit upserts the segments with their vectors. Empty input is a no-op.
func (db *ClientHolder) Commit(ctx context.Context, segments []commonModels.EnrichedSegment, vectors [][]float32) error {
	if len(segments) == 0 {
		return nil
	}
	if len(segments) != len(vectors) {
		return fmt.Errorf("mismatch: got %d segments but %d vectors", len(segments), len(vectors))
	}

	for i := 0; i < len(segments); i += config.UpsertBatchSize {
		end := i + config.UpsertBatchSize
		if end > len(segments) {
			end = len(segments)
		}

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			seg := segments[j]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(SegmentPointID(seg.StorageName, seg.SegmentIndex)),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"content":       seg.Content,
					"storage_name":  seg.StorageName,
					"original_name": seg.OriginalName,
					"uploaded_at":   seg.UploadedAt,
					"segment_index": seg.SegmentIndex,
					"page_num":      seg.PageNumber,
				}),
			})
		}

		_, err := db.qObj.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: db.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("%w: upsert failed: %v", vectorDB.ErrIndexUnavailable, err)
		}
	}

	return nil
}

// Search returns at most k hits ordered by descending relevance.
func (db *ClientHolder) Search(ctx context.Context, vector []float32, k int) ([]commonModels.SearchHit, error) {
	result, err := db.qObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", vectorDB.ErrIndexUnavailable, err)
	}

	hits := make([]commonModels.SearchHit, 0, len(result))
	for _, hit := range result {
		payload := hit.Payload
		hits = append(hits, commonModels.SearchHit{
			Score: hit.Score,
			Segment: commonModels.EnrichedSegment{
				TextSegment: commonModels.TextSegment{
					Content:      payload["content"].GetStringValue(),
					SegmentIndex: int(payload["segment_index"].GetIntegerValue()),
					PageNumber:   int(payload["page_num"].GetIntegerValue()),
				},
				StorageName:  payload["storage_name"].GetStringValue(),
				OriginalName: payload["original_name"].GetStringValue(),
				UploadedAt:   payload["uploaded_at"].GetStringValue(),
			},
		})
	}
	return hits, nil
}
