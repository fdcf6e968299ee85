package queue

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisQueue(t *testing.T) (*TaskQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	producer := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	consumer := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = producer.Close()
		_ = consumer.Close()
	})

	q, err := NewTestQueue(producer, consumer)
	require.NoError(t, err)
	return q, consumer
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	pending, err := client.XPending(context.Background(), config.QueueStream, config.QueueGroup).Result()
	require.NoError(t, err)
	return pending.Count
}

func TestEnqueueConsumeAck(t *testing.T) {
	q, client := newMiniredisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := jobModel.IngestionJob{
		StoredPath:   "uploads/171234-doc.pdf",
		StorageName:  "171234-doc.pdf",
		OriginalName: "doc.pdf",
		Size:         1024,
		UploadedAt:   "2026-08-30T10:00:00Z",
	}
	require.NoError(t, q.Enqueue(ctx, job))

	deliveries := make(chan Delivery, 1)
	go q.Consume(ctx, func(ctx context.Context, d Delivery) {
		deliveries <- d
	})

	select {
	case d := <-deliveries:
		assert.Equal(t, job, d.Job)
		assert.Equal(t, int64(1), d.DeliveryCount)
		assert.Equal(t, int64(1), pendingCount(t, client), "delivery must stay pending until acknowledged")

		require.NoError(t, d.Ack(ctx))
		assert.Equal(t, int64(0), pendingCount(t, client), "acknowledged delivery must leave the pending list")
	case <-time.After(3 * time.Second):
		t.Fatal("No delivery received")
	}
}

func TestUnackedDeliveryStaysPending(t *testing.T) {
	q, client := newMiniredisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Enqueue(ctx, jobModel.IngestionJob{StoredPath: "uploads/x.pdf", StorageName: "x.pdf"}))

	received := make(chan struct{}, 1)
	go q.Consume(ctx, func(ctx context.Context, d Delivery) {
		//simulate a crash: never ack
		received <- struct{}{}
	})

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("No delivery received")
	}
	cancel()

	assert.Equal(t, int64(1), pendingCount(t, client), "unacknowledged delivery must remain pending for redelivery")
}

func TestMalformedPayloadNotDispatched(t *testing.T) {
	q, client := newMiniredisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	//two broken entries straight onto the stream, then one valid job
	_, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: config.QueueStream,
		Values: map[string]interface{}{"job": "{not valid json"},
	}).Result()
	require.NoError(t, err)
	_, err = client.XAdd(ctx, &redis.XAddArgs{
		Stream: config.QueueStream,
		Values: map[string]interface{}{"unrelated": "payload"},
	}).Result()
	require.NoError(t, err)

	valid := jobModel.IngestionJob{StoredPath: "uploads/ok.pdf", StorageName: "ok.pdf"}
	require.NoError(t, q.Enqueue(ctx, valid))

	deliveries := make(chan Delivery, 3)
	go q.Consume(ctx, func(ctx context.Context, d Delivery) {
		deliveries <- d
	})

	select {
	case d := <-deliveries:
		assert.Equal(t, valid, d.Job, "only the decodable job may reach the handler")
	case <-time.After(3 * time.Second):
		t.Fatal("Valid job was never delivered")
	}

	select {
	case d := <-deliveries:
		t.Fatalf("Unexpected extra delivery: %+v", d.Job)
	case <-time.After(200 * time.Millisecond):
	}

	//broken entries were read but never acknowledged, so the failure stays visible
	assert.Equal(t, int64(3), pendingCount(t, client))
}

func TestPendingCountsForLaterEntries(t *testing.T) {
	q, client := newMiniredisQueue(t)
	ctx := context.Background()

	//five pending entries held by another consumer
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, jobModel.IngestionJob{StoredPath: "uploads/x.pdf", StorageName: "x.pdf"}))
	}
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    config.QueueGroup,
		Consumer: "crashed-consumer",
		Streams:  []string{config.QueueStream, ">"},
		Count:    5,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams[0].Messages, 5)

	//counters must be found even for entries that are not first in the list
	lastTwo := streams[0].Messages[3:]
	counts := q.pendingCounts(ctx, lastTwo)

	require.Len(t, counts, 2)
	for _, m := range lastTwo {
		assert.Equal(t, int64(1), counts[m.ID], "delivery counter must come from the pending list, not the fallback")
	}
}

func TestEnqueueWithoutConnection(t *testing.T) {
	var q *TaskQueue
	err := q.Enqueue(context.Background(), jobModel.IngestionJob{StoredPath: "x"})
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}
