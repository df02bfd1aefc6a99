package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	fetcher *fakeFetcher
	stories *fakeStoryGateway
	backlog *fakeBacklog
	runner  *fakeBatchRunner
	pruner  *fakeStoryPruner
	orch    *Orchestrator
}

func newOrchestratorFixture(fetcher *fakeFetcher, now time.Time) *orchestratorFixture {
	cfg := Config{
		BatchSize:         10,
		BacklogBudget:     2,
		RetentionWindow:   30 * 24 * time.Hour,
		InitialJump:       1000,
		ProbeFailureLimit: 10,
	}
	logger := testLogger()
	stories := newFakeStoryGateway()
	backlog := &fakeBacklog{}
	runner := &fakeBatchRunner{}
	storyPruner := &fakeStoryPruner{}

	cutoff := NewCutoffFinder(fetcher, cfg, logger)
	cutoff.now = func() time.Time { return now }

	orch := NewOrchestrator(
		fetcher,
		cutoff,
		NewSyncer(fetcher, stories, runner, cfg.BatchSize, logger),
		NewConsumer(backlog, runner, logger),
		NewPruner(storyPruner, logger),
		stories,
		backlog,
		cfg,
		logger,
	)
	orch.now = func() time.Time { return now }

	return &orchestratorFixture{
		fetcher: fetcher,
		stories: stories,
		backlog: backlog,
		runner:  runner,
		pruner:  storyPruner,
		orch:    orch,
	}
}

func TestRunFullReload(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	const boundary, maxID = 3275, 5000

	fx := newOrchestratorFixture(timelineFetcher(now, 30*24*time.Hour, boundary, maxID), now)

	err := fx.orch.RunFullReload(context.Background())

	require.NoError(t, err)
	assert.True(t, fx.stories.deleteAll)
	assert.True(t, fx.backlog.cleared)

	batches := fx.backlog.batches
	require.NotEmpty(t, batches)
	// Batches run from the newest ID down to the cutoff, which lands within
	// one batch width of the retention boundary.
	assert.Equal(t, int64(maxID), batches[0].IDs[0])
	last := batches[len(batches)-1].IDs
	cutoffID := last[len(last)-1]
	assert.GreaterOrEqual(t, cutoffID, int64(boundary))
	assert.LessOrEqual(t, cutoffID-boundary, int64(10))

	// Cold start only seeds the backlog; no stories are written.
	assert.Empty(t, fx.stories.storedStories())
}

func TestRunFullReloadResetFailure(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(timelineFetcher(now, 30*24*time.Hour, 100, 500), now)
	fx.stories.deleteErr = errors.New("reset failed")

	err := fx.orch.RunFullReload(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset failed")
	assert.Empty(t, fx.backlog.batches)
}

func TestRunScheduled(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(&fakeFetcher{maxID: 105}, now)
	fx.stories.maxStored = 100
	fx.stories.found = true
	require.NoError(t, fx.backlog.Enqueue(context.Background(), [][]int64{{50, 49}, {48, 47}, {46, 45}}))

	err := fx.orch.RunScheduled(context.Background())

	require.NoError(t, err)
	processed := fx.runner.processed()
	// One sync chunk, then the backlog budget worth of batches.
	require.Len(t, processed, 3)
	assert.Equal(t, []int64{101, 102, 103, 104, 105}, processed[0])
	assert.Equal(t, []int64{50, 49}, processed[1])
	assert.Equal(t, []int64{48, 47}, processed[2])
	assert.Equal(t, 1, fx.backlog.pendingCount())
	assert.Equal(t, now.Add(-30*24*time.Hour), fx.pruner.horizon)
}

func TestRunScheduledEmptyStoreIsNotAnError(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(&fakeFetcher{maxID: 105}, now)
	fx.stories.found = false

	err := fx.orch.RunScheduled(context.Background())

	require.NoError(t, err)
	assert.Empty(t, fx.runner.processed())
	// The run stops before the drain and prune steps.
	assert.True(t, fx.pruner.horizon.IsZero())
}

func TestRunScheduledSyncFailure(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(&fakeFetcher{maxErr: errors.New("maxitem unavailable")}, now)
	fx.stories.found = true

	err := fx.orch.RunScheduled(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxitem unavailable")
}

func TestRunScheduledDrainFailure(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(&fakeFetcher{maxID: 100}, now)
	// Sync is a no-op, so the only processed batches come from the drain.
	fx.stories.maxStored = 100
	fx.stories.found = true
	require.NoError(t, fx.backlog.Enqueue(context.Background(), [][]int64{{50, 49}}))
	fx.runner.err = errors.New("processing failed")

	err := fx.orch.RunScheduled(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing failed")
	assert.True(t, fx.pruner.horizon.IsZero())
}

func TestRunsAreSerialized(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	fx := newOrchestratorFixture(&fakeFetcher{maxID: 100}, now)

	fx.orch.runMu.Lock()
	defer fx.orch.runMu.Unlock()

	assert.ErrorIs(t, fx.orch.RunFullReload(context.Background()), ErrRunInProgress)
	assert.ErrorIs(t, fx.orch.RunScheduled(context.Background()), ErrRunInProgress)
}
