package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncNewStories(t *testing.T) {
	fetcher := &fakeFetcher{maxID: 105}
	gateway := newFakeStoryGateway()
	gateway.maxStored = 100
	gateway.found = true
	runner := &fakeBatchRunner{}

	syncer := NewSyncer(fetcher, gateway, runner, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	require.NoError(t, err)
	batches := runner.processed()
	require.Len(t, batches, 1)
	assert.Equal(t, []int64{101, 102, 103, 104, 105}, batches[0])
}

func TestSyncNewStoriesChunksLargeRanges(t *testing.T) {
	fetcher := &fakeFetcher{maxID: 1000}
	gateway := newFakeStoryGateway()
	gateway.maxStored = 100
	gateway.found = true
	runner := &fakeBatchRunner{}

	syncer := NewSyncer(fetcher, gateway, runner, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	require.NoError(t, err)
	batches := runner.processed()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 400)
	assert.Equal(t, int64(101), batches[0][0])
	assert.Equal(t, int64(500), batches[0][399])
	assert.Len(t, batches[1], 400)
	assert.Equal(t, int64(501), batches[1][0])
	assert.Len(t, batches[2], 100)
	assert.Equal(t, int64(1000), batches[2][99])
}

func TestSyncNewStoriesEmptyStore(t *testing.T) {
	fetcher := &fakeFetcher{maxID: 1000}
	gateway := newFakeStoryGateway()
	gateway.found = false
	runner := &fakeBatchRunner{}

	syncer := NewSyncer(fetcher, gateway, runner, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	assert.ErrorIs(t, err, ErrEmptyStore)
	assert.Empty(t, runner.processed())
}

func TestSyncNewStoriesNoNewIDs(t *testing.T) {
	fetcher := &fakeFetcher{maxID: 100}
	gateway := newFakeStoryGateway()
	gateway.maxStored = 100
	gateway.found = true
	runner := &fakeBatchRunner{}

	syncer := NewSyncer(fetcher, gateway, runner, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	require.NoError(t, err)
	assert.Empty(t, runner.processed())
}

func TestSyncNewStoriesMaxIDError(t *testing.T) {
	fetcher := &fakeFetcher{maxErr: errors.New("maxitem unavailable")}
	gateway := newFakeStoryGateway()
	gateway.found = true

	syncer := NewSyncer(fetcher, gateway, &fakeBatchRunner{}, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxitem unavailable")
}

func TestSyncNewStoriesStopsOnBatchFailure(t *testing.T) {
	fetcher := &fakeFetcher{maxID: 1000}
	gateway := newFakeStoryGateway()
	gateway.maxStored = 100
	gateway.found = true
	runner := &fakeBatchRunner{failOn: 2, err: errors.New("batch exploded")}

	syncer := NewSyncer(fetcher, gateway, runner, 400, testLogger())
	err := syncer.SyncNewStories(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch exploded")
	// The failing batch is the last one attempted.
	assert.Len(t, runner.processed(), 2)
}
