package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when a flow is requested while another run
// holds the pipeline.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// StoryResetter is the reset slice of the story store.
type StoryResetter interface {
	DeleteAll(ctx context.Context) error
}

// Orchestrator sequences the cold-start and steady-state flows. It holds no
// state between runs beyond the mutex serializing them; everything else
// lives in the two stores.
type Orchestrator struct {
	fetcher  ItemFetcher
	cutoff   *CutoffFinder
	syncer   *Syncer
	consumer *Consumer
	pruner   *Pruner
	stories  StoryResetter
	backlog  BacklogGateway
	cfg      Config
	logger   *logrus.Logger
	runMu    sync.Mutex
	now      func() time.Time
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(fetcher ItemFetcher, cutoff *CutoffFinder, syncer *Syncer, consumer *Consumer, pruner *Pruner, stories StoryResetter, backlog BacklogGateway, cfg Config, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:  fetcher,
		cutoff:   cutoff,
		syncer:   syncer,
		consumer: consumer,
		pruner:   pruner,
		stories:  stories,
		backlog:  backlog,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RunFullReload clears both stores and runs the cold-start flow: find the
// retention cutoff, generate backlog batches down to it, and enqueue them.
// No stories are written; steady-state runs drain the seeded backlog
// incrementally.
func (o *Orchestrator) RunFullReload(ctx context.Context) error {
	if !o.runMu.TryLock() {
		return ErrRunInProgress
	}
	defer o.runMu.Unlock()

	start := o.now()
	o.logger.Info("Starting full reload (cold start)")

	err := o.runFullReload(ctx)
	status := "success"
	if err != nil {
		status = "failed"
	}
	monitoring.RecordPipelineRun("cold_start", status, time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) runFullReload(ctx context.Context) error {
	if err := o.stories.DeleteAll(ctx); err != nil {
		return fmt.Errorf("full reload: %w", err)
	}
	if err := o.backlog.Clear(ctx); err != nil {
		return fmt.Errorf("full reload: %w", err)
	}

	maxID, err := o.fetcher.FetchMaxID(ctx)
	if err != nil {
		return fmt.Errorf("full reload: %w", err)
	}
	o.logger.WithField("max_item_id", maxID).Info("Starting cutoff search")

	cutoffID, err := o.cutoff.FindCutoffID(ctx, maxID)
	if err != nil {
		return fmt.Errorf("full reload: %w", err)
	}

	batches := GenerateBatches(maxID, cutoffID, o.cfg.BatchSize)
	o.logger.WithFields(logrus.Fields{
		"cutoff_id": cutoffID,
		"batches":   len(batches),
	}).Info("Generated backlog batches")

	if err := o.backlog.Enqueue(ctx, batches); err != nil {
		return fmt.Errorf("full reload: %w", err)
	}

	o.logger.Info("Backlog batches saved successfully")
	return nil
}

// RunScheduled executes the steady-state flow: incremental sync, bounded
// backlog drain, retention prune. Each step runs to completion before the
// next; the first failure aborts the run. An aborted run self-heals on the
// next invocation because every step is idempotent or resumable.
func (o *Orchestrator) RunScheduled(ctx context.Context) error {
	if !o.runMu.TryLock() {
		return ErrRunInProgress
	}
	defer o.runMu.Unlock()

	start := o.now()
	o.logger.Info("Starting scheduled update")

	err := o.runScheduled(ctx)
	status := "success"
	if err != nil {
		status = "failed"
	}
	monitoring.RecordPipelineRun("steady_state", status, time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) runScheduled(ctx context.Context) error {
	if err := o.syncer.SyncNewStories(ctx); err != nil {
		if errors.Is(err, ErrEmptyStore) {
			// Precondition failure, not a fault: nothing to sync against.
			o.logger.Error("Story store is empty; skipping scheduled run, trigger a full reload")
			return nil
		}
		return fmt.Errorf("scheduled update: %w", err)
	}

	if err := o.consumer.Drain(ctx, o.cfg.BacklogBudget); err != nil {
		return fmt.Errorf("scheduled update: %w", err)
	}

	horizon := o.now().Add(-o.cfg.RetentionWindow)
	if err := o.pruner.PruneOlderThan(ctx, horizon); err != nil {
		return fmt.Errorf("scheduled update: %w", err)
	}

	o.logger.Info("Scheduled update completed")
	return nil
}
