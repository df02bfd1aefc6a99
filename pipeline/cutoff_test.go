package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timelineFetcher builds an item universe where every ID at or above the
// boundary was created inside the retention window.
func timelineFetcher(now time.Time, window time.Duration, boundary, maxID int64) *fakeFetcher {
	horizon := now.Add(-window)
	return &fakeFetcher{
		maxID: maxID,
		itemFn: func(id int64) (*hn.Item, error) {
			if id > maxID {
				return nil, nil
			}
			created := horizon.Unix() - 3600
			if id >= boundary {
				created = horizon.Unix() + 3600
			}
			return &hn.Item{ID: id, Type: hn.TypeStory, Time: created}, nil
		},
	}
}

func newTestCutoffFinder(fetcher ItemFetcher, now time.Time) *CutoffFinder {
	cfg := Config{
		BatchSize:         10,
		RetentionWindow:   30 * 24 * time.Hour,
		InitialJump:       1000,
		ProbeFailureLimit: 10,
	}
	finder := NewCutoffFinder(fetcher, cfg, testLogger())
	finder.now = func() time.Time { return now }
	return finder
}

func TestFindCutoffID(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	const boundary, maxID = 3275, 5000

	fetcher := timelineFetcher(now, 30*24*time.Hour, boundary, maxID)
	finder := newTestCutoffFinder(fetcher, now)

	cutoff, err := finder.FindCutoffID(context.Background(), maxID)

	require.NoError(t, err)
	// The cutoff only needs to land within one batch width of the boundary,
	// on the inside of the window.
	assert.GreaterOrEqual(t, cutoff, int64(boundary))
	assert.LessOrEqual(t, cutoff-boundary, int64(10))
}

func TestFindCutoffIDEntireSpaceInsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// Boundary below ID 1: every assigned ID is inside the window.
	fetcher := timelineFetcher(now, 30*24*time.Hour, 0, 500)
	finder := newTestCutoffFinder(fetcher, now)

	cutoff, err := finder.FindCutoffID(context.Background(), 500)

	require.NoError(t, err)
	assert.Equal(t, int64(1), cutoff)
}

func TestFindCutoffIDRecoversFromTransientErrors(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	const boundary, maxID = 3275, 5000

	base := timelineFetcher(now, 30*24*time.Hour, boundary, maxID)
	var failures int32
	flaky := &fakeFetcher{
		maxID: maxID,
		itemFn: func(id int64) (*hn.Item, error) {
			// The first two probes fail, then the source recovers.
			if atomic.AddInt32(&failures, 1) <= 2 {
				return nil, errors.New("transient upstream error")
			}
			return base.itemFn(id)
		},
	}
	finder := newTestCutoffFinder(flaky, now)

	cutoff, err := finder.FindCutoffID(context.Background(), maxID)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, cutoff, int64(boundary))
	assert.LessOrEqual(t, cutoff-boundary, int64(10))
}

func TestFindCutoffIDAbortsAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	broken := &fakeFetcher{
		maxID: 5000,
		itemFn: func(id int64) (*hn.Item, error) {
			return nil, errors.New("upstream down")
		},
	}
	finder := newTestCutoffFinder(broken, now)

	_, err := finder.FindCutoffID(context.Background(), 5000)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive probe failures")
	// Exactly the failure limit worth of probes, then abort.
	assert.Equal(t, 10, broken.fetchCount())
}

func TestFindCutoffIDTreatsAbsentItemsAsOutside(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	const boundary, maxID = 4200, 5000

	horizon := now.Add(-30 * 24 * time.Hour)
	fetcher := &fakeFetcher{
		maxID: maxID,
		itemFn: func(id int64) (*hn.Item, error) {
			// IDs below the boundary were never assigned (deleted space).
			if id < boundary {
				return nil, nil
			}
			return &hn.Item{ID: id, Type: hn.TypeStory, Time: horizon.Unix() + 3600}, nil
		},
	}
	finder := newTestCutoffFinder(fetcher, now)

	cutoff, err := finder.FindCutoffID(context.Background(), maxID)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, cutoff, int64(boundary))
	assert.LessOrEqual(t, cutoff-boundary, int64(10))
}
