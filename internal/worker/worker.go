package worker

import (
	"context"
	"sync"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/metrics"
	"github.com/akolanti/docuchat/internal/queue"
	"github.com/akolanti/docuchat/internal/rag"
	"github.com/akolanti/docuchat/pkg/logger_i"
)

type taskQueue interface {
	Consume(ctx context.Context, handle queue.Handler)
}

// Consumer owns queue consumption and drives split, enrich and commit for
// every delivery. Distinct messages run concurrently up to MaxWorkerCount;
// redeliveries of a message already in flight in this process are skipped
// (and stay pending, so the broker tries again later).
type Consumer struct {
	queue      taskQueue
	ragService rag.Service
	logger     *logger_i.Logger

	sem      chan struct{}
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

func NewConsumer(q taskQueue, ragService rag.Service) *Consumer {
	return &Consumer{
		queue:      q,
		ragService: ragService,
		logger:     logger_i.NewLogger("IngestionWorker"),
		sem:        make(chan struct{}, config.MaxWorkerCount),
		inFlight:   make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("Ingestion worker started", "concurrency", config.MaxWorkerCount)
	c.queue.Consume(ctx, c.dispatch)
}

// Wait blocks until all in-flight jobs have finished.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) dispatch(ctx context.Context, d queue.Delivery) {
	if !c.markInFlight(d.MessageID) {
		c.logger.Warn("Delivery already in flight, skipping duplicate", "messageId", d.MessageID)
		return
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		c.clearInFlight(d.MessageID)
		return
	}

	c.wg.Add(1)
	metrics.IncrementActiveWorkerCount()
	go func() {
		defer func() {
			<-c.sem
			c.clearInFlight(d.MessageID)
			metrics.DecrementActiveWorkerCount()
			c.wg.Done()
		}()
		c.executeJob(ctx, d)
	}()
}

func (c *Consumer) markInFlight(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.inFlight[messageID]; exists {
		return false
	}
	c.inFlight[messageID] = struct{}{}
	return true
}

func (c *Consumer) clearInFlight(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, messageID)
}
