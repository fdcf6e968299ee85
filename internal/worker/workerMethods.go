package worker

import (
	"context"
	"os"
	"time"

	"github.com/akolanti/docuchat/internal/config"
	"github.com/akolanti/docuchat/internal/metrics"
	"github.com/akolanti/docuchat/internal/queue"
)

// executeJob processes one delivery end to end. The only recovery action on
// failure is not acknowledging: the broker redelivers and the deterministic
// segment identity makes the repeat commit converge.
func (c *Consumer) executeJob(ctx context.Context, d queue.Delivery) {
	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.CaptureIngestOutcome(outcome)
		metrics.CaptureJobMetrics(outcome, time.Since(start))
	}()

	log := c.logger.With("messageId", d.MessageID, "storageName", d.Job.StorageName)
	log.Debug("Processing ingestion delivery", "deliveryCount", d.DeliveryCount)

	if d.DeliveryCount > config.RedeliveryWarnThreshold {
		// no dead-letter path exists; a poison message keeps coming back
		log.Warn("Delivery count is high, possible poison message", "deliveryCount", d.DeliveryCount)
	}

	jobCtx, cancel := context.WithTimeout(ctx, config.JobTimeout)
	defer cancel()

	if err := d.Job.Validate(); err != nil {
		log.Error("Rejecting malformed job, leaving unacknowledged", "error", err)
		outcome = "invalid"
		return
	}

	if err := c.ragService.IngestDocument(jobCtx, d.Job); err != nil {
		log.Error("Ingestion failed, leaving unacknowledged", "error", err)
		return
	}

	if err := d.Ack(jobCtx); err != nil {
		// committed but unacked: the redelivery will re-commit the same
		// logical segments and ack then
		log.Error("Acknowledgment failed after commit", "error", err)
		outcome = "ack_failed"
		return
	}

	c.removeStoredFile(d.Job.StoredPath)
	outcome = "success"
	log.Info("Ingestion delivery completed")
}

func (c *Consumer) removeStoredFile(path string) {
	if err := os.Remove(path); err != nil {
		c.logger.Error("Error removing stored file", "path", path, "error", err)
	}
}
