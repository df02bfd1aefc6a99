package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(fetcher ItemFetcher, stories StoryGateway, now time.Time) *Processor {
	processor := NewProcessor(fetcher, stories, 30*24*time.Hour, testLogger())
	processor.now = func() time.Time { return now }
	return processor
}

func TestProcessBatchStoresValidStories(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	inside := now.Add(-time.Hour).Unix()

	fetcher := &fakeFetcher{
		itemFn: func(id int64) (*hn.Item, error) {
			switch id {
			case 1:
				return &hn.Item{ID: 1, Type: hn.TypeStory, Title: "valid", Score: 50, Descendants: 20, Time: inside}, nil
			case 2:
				return &hn.Item{ID: 2, Type: hn.TypeComment, Time: inside}, nil
			case 3:
				return nil, errors.New("fetch failed")
			case 4:
				return nil, nil // never assigned
			default:
				return &hn.Item{ID: id, Type: hn.TypeStory, Score: 1, Descendants: 1, Time: inside}, nil
			}
		},
	}
	gateway := newFakeStoryGateway()
	processor := newTestProcessor(fetcher, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{1, 2, 3, 4, 5})

	require.NoError(t, err)
	stored := gateway.storedStories()
	require.Len(t, stored, 1)
	assert.Equal(t, int64(1), stored[0].ID)
	assert.Equal(t, "valid", stored[0].Title)
	assert.Equal(t, 20, stored[0].CommentCount)
}

func TestProcessBatchSkipsExistingIDs(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	inside := now.Add(-time.Hour).Unix()

	fetcher := &fakeFetcher{
		itemFn: func(id int64) (*hn.Item, error) {
			return &hn.Item{ID: id, Type: hn.TypeStory, Score: 50, Descendants: 20, Time: inside}, nil
		},
	}
	gateway := newFakeStoryGateway()
	gateway.existing[1] = true
	gateway.existing[2] = true
	processor := newTestProcessor(fetcher, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{1, 2, 3})

	require.NoError(t, err)
	// Only the unseen ID is fetched.
	assert.Equal(t, 1, fetcher.fetchCount())
	stored := gateway.storedStories()
	require.Len(t, stored, 1)
	assert.Equal(t, int64(3), stored[0].ID)
}

func TestProcessBatchAllExistingIsNoOp(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fetcher := &fakeFetcher{
		itemFn: func(id int64) (*hn.Item, error) {
			t.Error("no fetch expected when every ID is already stored")
			return nil, nil
		},
	}
	gateway := newFakeStoryGateway()
	gateway.existing[10] = true
	gateway.existing[11] = true
	processor := newTestProcessor(fetcher, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{10, 11})

	require.NoError(t, err)
	assert.Empty(t, gateway.storedStories())
}

func TestProcessBatchEmptyInput(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	gateway := newFakeStoryGateway()
	processor := newTestProcessor(&fakeFetcher{}, gateway, now)

	require.NoError(t, processor.ProcessBatch(context.Background(), nil))
	assert.Empty(t, gateway.storedStories())
}

func TestProcessBatchPropagatesStoreErrors(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	inside := now.Add(-time.Hour).Unix()

	fetcher := &fakeFetcher{
		itemFn: func(id int64) (*hn.Item, error) {
			return &hn.Item{ID: id, Type: hn.TypeStory, Score: 50, Descendants: 20, Time: inside}, nil
		},
	}
	gateway := newFakeStoryGateway()
	gateway.putErr = errors.New("commit failed")
	processor := newTestProcessor(fetcher, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{1})
	assert.EqualError(t, err, "commit failed")
}

func TestProcessBatchPropagatesExistenceCheckErrors(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	gateway := newFakeStoryGateway()
	gateway.existErr = errors.New("lookup failed")
	processor := newTestProcessor(&fakeFetcher{}, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{1})
	assert.EqualError(t, err, "lookup failed")
}

func TestProcessBatchRejectsStoriesOutsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	outside := now.Add(-31 * 24 * time.Hour).Unix()

	fetcher := &fakeFetcher{
		itemFn: func(id int64) (*hn.Item, error) {
			return &hn.Item{ID: id, Type: hn.TypeStory, Score: 500, Descendants: 300, Time: outside}, nil
		},
	}
	gateway := newFakeStoryGateway()
	processor := newTestProcessor(fetcher, gateway, now)

	err := processor.ProcessBatch(context.Background(), []int64{1, 2})

	require.NoError(t, err)
	assert.Empty(t, gateway.storedStories())
}
