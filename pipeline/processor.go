package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/sirupsen/logrus"
)

// Processor turns a list of candidate IDs into stored stories: it dedups
// against the store, fetches the remainder concurrently, filters, and
// persists the survivors in one batched write.
type Processor struct {
	fetcher ItemFetcher
	stories StoryGateway
	logger  *logrus.Logger
	window  time.Duration
	now     func() time.Time
}

// NewProcessor creates a batch processor.
func NewProcessor(fetcher ItemFetcher, stories StoryGateway, window time.Duration, logger *logrus.Logger) *Processor {
	return &Processor{
		fetcher: fetcher,
		stories: stories,
		logger:  logger,
		window:  window,
		now:     time.Now,
	}
}

// ProcessBatch ingests the given candidate IDs. Re-processing a batch whose
// IDs are already stored is a cheap no-op: the existence check
// short-circuits before any item fetch. Per-item fetch failures degrade to
// skips; only store errors fail the batch.
func (p *Processor) ProcessBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	existing, err := p.stories.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}

	newIDs := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !existing[id] {
			newIDs = append(newIDs, id)
		}
	}
	if len(newIDs) == 0 {
		p.logger.Debug("No new stories in this batch")
		return nil
	}

	items := p.fetchAll(ctx, newIDs)

	horizon := p.now().Add(-p.window)
	stories := make([]*store.Story, 0, len(items))
	for _, item := range items {
		if hn.IsValidStory(item, horizon) {
			stories = append(stories, store.StoryFromItem(item))
		}
	}

	if len(stories) == 0 {
		p.logger.WithField("candidates", len(newIDs)).Debug("No valid stories found in this batch")
		return nil
	}

	if err := p.stories.PutStories(ctx, stories); err != nil {
		return err
	}
	monitoring.RecordBatchProcessed(len(stories))

	p.logger.WithFields(logrus.Fields{
		"candidates": len(newIDs),
		"stored":     len(stories),
	}).Info("Saved stories from batch")
	return nil
}

// fetchAll fans out one goroutine per new ID, bounded by the batch width,
// and joins before returning. A failed fetch yields a nil slot, which the
// validity filter rejects.
func (p *Processor) fetchAll(ctx context.Context, ids []int64) []*hn.Item {
	items := make([]*hn.Item, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(slot int, itemID int64) {
			defer wg.Done()
			start := time.Now()
			item, err := p.fetcher.FetchItem(ctx, itemID)
			if err != nil {
				monitoring.RecordItemFetch("failed", time.Since(start).Seconds())
				p.logger.WithFields(logrus.Fields{
					"item_id": itemID,
					"error":   err.Error(),
				}).Warn("Skipping unavailable item")
				return
			}
			monitoring.RecordItemFetch("success", time.Since(start).Seconds())
			items[slot] = item
		}(i, id)
	}

	wg.Wait()
	return items
}
