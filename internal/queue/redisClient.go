package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// New connects both queue roles and asserts the stream's consumer group.
// The clients are owned by ctx: cancelling it closes them.
func New(ctx context.Context) (*TaskQueue, error) {
	logger := logger_i.NewLogger("TaskQueue")
	addr := config.Env("REDIS_ADDR", config.RedisAddr)

	producer := newRedisClient(addr)
	consumer := newRedisClient(addr)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := producer.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	if err := consumer.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	q := &TaskQueue{
		producer:     producer,
		consumer:     consumer,
		stream:       config.QueueStream,
		group:        config.QueueGroup,
		consumerName: config.QueueConsumerPrefix + "-" + uuid.New().String(),
		logger:       logger,
	}
	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}

	logger.Info("Task queue connected", "addr", addr, "stream", q.stream)
	go q.closeOnDone(ctx)
	return q, nil
}

func newRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:                  addr,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
}

func (q *TaskQueue) ensureGroup(ctx context.Context) error {
	err := q.consumer.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return nil
}

func (q *TaskQueue) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	q.logger.Info("Closing task queue clients")
	if err := q.producer.Close(); err != nil {
		q.logger.Error("Error closing producer client", "error", err)
	}
	if err := q.consumer.Close(); err != nil {
		q.logger.Error("Error closing consumer client", "error", err)
	}
}

// Only for _test.go files
func NewTestQueue(producer, consumer *redis.Client) (*TaskQueue, error) {
	q := &TaskQueue{
		producer:     producer,
		consumer:     consumer,
		stream:       config.QueueStream,
		group:        config.QueueGroup,
		consumerName: "test-consumer",
		logger:       logger_i.NewLogger("test queue"),
	}
	return q, q.ensureGroup(context.Background())
}

// Only for _test.go files
func NewTestDelivery(job jobModel.IngestionJob, id string, count int64, ack func(ctx context.Context) error) Delivery {
	return Delivery{Job: job, MessageID: id, DeliveryCount: count, ack: ack}
}
