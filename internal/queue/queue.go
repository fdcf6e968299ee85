package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/internal/metrics"
	"github.com/akolanti/docuchat/pkg/logger_i"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

var ErrChannelUnavailable = errors.New("task queue channel unavailable")

const jobField = "job"

// Delivery is one dequeued job paired with its acknowledgment handle. The
// message stays in the pending list, and will be redelivered, until Ack is
// called - at-least-once semantics.
type Delivery struct {
	Job           jobModel.IngestionJob
	MessageID     string
	DeliveryCount int64
	ack           func(ctx context.Context) error
}

func (d Delivery) Ack(ctx context.Context) error {
	return d.ack(ctx)
}

// Handler receives every decoded delivery. The queue never acknowledges on the
// handler's behalf.
type Handler func(ctx context.Context, d Delivery)

// TaskQueue is a durable work queue on a Redis Stream with a consumer group.
// Producer and consumer roles use separate clients so publishing never blocks
// behind a long consumer read.
type TaskQueue struct {
	producer     *redis.Client
	consumer     *redis.Client
	stream       string
	group        string
	consumerName string
	logger       *logger_i.Logger
}

// Enqueue publishes one ingestion job. The stream entry is persisted by Redis
// and survives broker restarts.
func (q *TaskQueue) Enqueue(ctx context.Context, job jobModel.IngestionJob) error {
	if q == nil || q.producer == nil {
		return ErrChannelUnavailable
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = q.producer.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: config.QueueMaxLen,
		Approx: true,
		Values: map[string]interface{}{jobField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	metrics.IncrementJobsInQueue()
	q.logger.Debug("Enqueued ingestion job", "storageName", job.StorageName)
	return nil
}

// Consume blocks, pushing deliveries to handle until ctx is cancelled. New
// entries arrive through blocking group reads; entries another consumer left
// pending (a crashed worker) are reclaimed once their idle time passes
// QueueClaimMinIdle. On connection loss the loop backs off and resumes, and
// the broker redelivers whatever was never acknowledged.
func (q *TaskQueue) Consume(ctx context.Context, handle Handler) {
	q.logger.Info("Waiting for ingestion jobs", "stream", q.stream, "group", q.group, "consumer", q.consumerName)

	claimTicker := time.NewTicker(config.QueueClaimInterval)
	defer claimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Queue consumption stopped")
			return
		case <-claimTicker.C:
			q.reclaimPending(ctx, handle)
		default:
		}

		if err := q.readBatch(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("Queue read failed, reconnecting with backoff", "error", err)
			q.waitForRecovery(ctx)
		}
	}
}

func (q *TaskQueue) readBatch(ctx context.Context, handle Handler) error {
	streams, err := q.consumer.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumerName,
		Streams:  []string{q.stream, ">"},
		Count:    config.QueueReadBatch,
		Block:    config.QueueReadBlock,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil //idle block expired
	}
	if err != nil {
		return err
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			q.dispatch(ctx, m, 1, handle)
		}
	}
	return nil
}

func (q *TaskQueue) reclaimPending(ctx context.Context, handle Handler) {
	msgs, _, err := q.consumer.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumerName,
		MinIdle:  config.QueueClaimMinIdle,
		Start:    "0-0",
		Count:    config.QueueReadBatch,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		q.logger.Error("Failed reclaiming pending entries", "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	q.logger.Info("Reclaimed pending deliveries", "count", len(msgs))
	counts := q.pendingCounts(ctx, msgs)
	for _, m := range msgs {
		metrics.IncrementRedeliveries()
		q.dispatch(ctx, m, counts[m.ID], handle)
	}
}

// pendingCounts looks up per-message delivery counters from the pending
// entries list; a reclaimed entry has been delivered at least twice. The
// lookup is bounded to the claimed batch's ID range (XAUTOCLAIM returns
// entries in ID order), so counters are found even when other consumers hold
// many older pending entries.
func (q *TaskQueue) pendingCounts(ctx context.Context, msgs []redis.XMessage) map[string]int64 {
	counts := make(map[string]int64, len(msgs))
	for _, m := range msgs {
		counts[m.ID] = 2
	}

	pending, err := q.consumer.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  msgs[0].ID,
		End:    msgs[len(msgs)-1].ID,
		Count:  int64(len(msgs)),
	}).Result()
	if err != nil {
		q.logger.Debug("Could not read pending counters", "error", err)
		return counts
	}
	for _, p := range pending {
		if _, ok := counts[p.ID]; ok {
			counts[p.ID] = p.RetryCount
		}
	}
	return counts
}

func (q *TaskQueue) dispatch(ctx context.Context, m redis.XMessage, deliveryCount int64, handle Handler) {
	raw, ok := m.Values[jobField].(string)
	if !ok {
		//not decodable at all; leave unacknowledged so the failure stays visible
		q.logger.Error("Stream entry has no job payload, leaving unacknowledged", "messageId", m.ID)
		return
	}

	var job jobModel.IngestionJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Error("Malformed job payload, leaving unacknowledged", "messageId", m.ID, "error", err)
		return
	}

	handle(ctx, Delivery{
		Job:           job,
		MessageID:     m.ID,
		DeliveryCount: deliveryCount,
		ack: func(ackCtx context.Context) error {
			if err := q.consumer.XAck(ackCtx, q.stream, q.group, m.ID).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
			}
			metrics.DecrementJobsInQueue()
			return nil
		},
	})
}

func (q *TaskQueue) waitForRecovery(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 //keep trying until the context is cancelled

	_ = backoff.Retry(func() error {
		return q.consumer.Ping(ctx).Err()
	}, backoff.WithContext(b, ctx))
}
