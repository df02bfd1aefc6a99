package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CutoffFinder locates the boundary ID separating items inside the
// retention window from those before it, probing item timestamps with an
// exponential backward search followed by binary refinement.
type CutoffFinder struct {
	fetcher      ItemFetcher
	logger       *logrus.Logger
	window       time.Duration
	initialJump  int64
	batchSize    int64
	failureLimit int
	now          func() time.Time
}

// NewCutoffFinder creates a cutoff finder.
func NewCutoffFinder(fetcher ItemFetcher, cfg Config, logger *logrus.Logger) *CutoffFinder {
	return &CutoffFinder{
		fetcher:      fetcher,
		logger:       logger,
		window:       cfg.RetentionWindow,
		initialJump:  cfg.InitialJump,
		batchSize:    int64(cfg.BatchSize),
		failureLimit: cfg.ProbeFailureLimit,
		now:          time.Now,
	}
}

// FindCutoffID returns an ID within one batch width of the true retention
// boundary below maxID. Exact single-ID precision is not needed; the
// result only seeds batch partitioning.
func (f *CutoffFinder) FindCutoffID(ctx context.Context, maxID int64) (int64, error) {
	horizon := f.now().Add(-f.window)

	low, high, err := f.coarseSearch(ctx, maxID, horizon)
	if err != nil {
		return 0, err
	}

	return f.refine(ctx, low, high, horizon)
}

// coarseSearch walks backward from maxID in constant-size jumps until it
// probes an ID outside the window, or runs out of ID space. A transient
// probe error is retried in place; the failure counter resets on any
// successful probe and aborts the search once it hits the limit.
func (f *CutoffFinder) coarseSearch(ctx context.Context, maxID int64, horizon time.Time) (low, high int64, err error) {
	high = maxID
	low = maxOf(1, maxID-f.initialJump)
	failures := 0

	for {
		inside, probeErr := f.probeWithin(ctx, low, horizon)
		if probeErr != nil {
			failures++
			f.logger.WithFields(logrus.Fields{
				"item_id":  low,
				"failures": failures,
				"limit":    f.failureLimit,
			}).Error("Probe error during coarse cutoff search")
			if failures >= f.failureLimit {
				return 0, 0, fmt.Errorf("cutoff search aborted after %d consecutive probe failures: %w", failures, probeErr)
			}
			continue
		}
		failures = 0

		if !inside {
			return low, high, nil
		}

		high = low
		next := maxOf(1, low-f.initialJump)
		if next == low {
			// Bottom of the ID space is still inside the window; everything
			// from ID 1 qualifies.
			return low, high, nil
		}
		low = next
	}
}

// refine narrows [low, high] with binary search until the span fits within
// one batch width, then returns high (the inside-the-window bound).
// Transient probe errors leave the bounds untouched so the same midpoint is
// retried, but only up to the consecutive-failure limit.
func (f *CutoffFinder) refine(ctx context.Context, low, high int64, horizon time.Time) (int64, error) {
	failures := 0

	for high-low > f.batchSize {
		mid := (high + low) / 2

		inside, err := f.probeWithin(ctx, mid, horizon)
		if err != nil {
			failures++
			f.logger.WithFields(logrus.Fields{
				"item_id":  mid,
				"failures": failures,
				"limit":    f.failureLimit,
			}).Error("Probe error during cutoff refinement, retrying")
			if failures >= f.failureLimit {
				return 0, fmt.Errorf("cutoff refinement stuck at id %d after %d probe failures: %w", mid, failures, err)
			}
			continue
		}
		failures = 0

		if inside {
			high = mid
		} else {
			low = mid
		}
	}

	f.logger.WithField("cutoff_id", high).Info("Found cutoff ID")
	return high, nil
}

// probeWithin reports whether the item at id was created inside the
// retention window. Any item kind works as a probe, since IDs are assigned
// in creation order; absent items count as outside.
func (f *CutoffFinder) probeWithin(ctx context.Context, id int64, horizon time.Time) (bool, error) {
	item, err := f.fetcher.FetchItem(ctx, id)
	if err != nil {
		return false, err
	}
	return item != nil && item.Time >= horizon.Unix(), nil
}

func maxOf(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
