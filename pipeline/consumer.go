package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Consumer drains the backlog queue: it pulls pending batches in order and
// feeds each to the batch processor.
type Consumer struct {
	backlog   BacklogGateway
	processor BatchRunner
	logger    *logrus.Logger
}

// NewConsumer creates a backlog consumer.
func NewConsumer(backlog BacklogGateway, processor BatchRunner, logger *logrus.Logger) *Consumer {
	return &Consumer{backlog: backlog, processor: processor, logger: logger}
}

// Drain processes up to n pending batches, lowest batch number first,
// strictly sequentially. A processor failure aborts the drain immediately
// and leaves the failed batch pending, so the next scheduled run retries it
// first. Marking a batch processed happens only after its batch succeeded.
func (c *Consumer) Drain(ctx context.Context, n int) error {
	batches, err := c.backlog.TakePending(ctx, n)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		c.logger.Info("No backlog batches to process")
		return nil
	}

	for _, batch := range batches {
		if err := c.processor.ProcessBatch(ctx, batch.IDs); err != nil {
			return fmt.Errorf("backlog batch %d: %w", batch.BatchNumber, err)
		}

		if err := c.backlog.MarkProcessed(ctx, batch); err != nil {
			return err
		}

		c.logger.WithFields(logrus.Fields{
			"batch_number": batch.BatchNumber,
			"ids":          len(batch.IDs),
		}).Info("Processed backlog batch")
	}
	return nil
}
