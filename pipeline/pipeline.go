/*
Package pipeline implements the ingestion and backlog-discovery pipeline of
the mirror: incremental sync of newly assigned IDs, cold-start cutoff
search and backlog seeding, bounded backlog draining, and retention
pruning.

The pipeline assumes at most one run active at a time; the Orchestrator
serializes the scheduled and manual flows behind a mutex. All state lives
in the story store and backlog queue, so an interrupted run resumes safely
on the next invocation.
*/
package pipeline

import (
	"context"
	"time"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/store"
)

// Config holds the tuning knobs of the pipeline.
type Config struct {
	// BatchSize is the ID chunk width used by the syncer, the backlog
	// generator, and the cutoff refinement tolerance.
	BatchSize int
	// BacklogBudget is how many pending backlog batches a single scheduled
	// run may drain.
	BacklogBudget int
	// RetentionWindow is the sliding window of stories the mirror keeps.
	RetentionWindow time.Duration
	// InitialJump is the coarse backward step of the cutoff search.
	InitialJump int64
	// ProbeFailureLimit bounds consecutive failed probe rounds before the
	// cutoff search aborts.
	ProbeFailureLimit int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:         400,
		BacklogBudget:     30,
		RetentionWindow:   30 * 24 * time.Hour,
		InitialJump:       100000,
		ProbeFailureLimit: 10,
	}
}

// ItemFetcher is the slice of the Hacker News client the pipeline consumes.
type ItemFetcher interface {
	FetchItem(ctx context.Context, id int64) (*hn.Item, error)
	FetchMaxID(ctx context.Context) (int64, error)
}

// StoryGateway is the slice of the story store the batch processor and
// syncer consume.
type StoryGateway interface {
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	PutStories(ctx context.Context, stories []*store.Story) error
	MaxStoredID(ctx context.Context) (int64, bool, error)
}

// BacklogGateway is the slice of the backlog store the consumer and
// orchestrator consume.
type BacklogGateway interface {
	Enqueue(ctx context.Context, batches [][]int64) error
	TakePending(ctx context.Context, n int) ([]*store.BacklogBatch, error)
	MarkProcessed(ctx context.Context, batch *store.BacklogBatch) error
	Clear(ctx context.Context) error
}
