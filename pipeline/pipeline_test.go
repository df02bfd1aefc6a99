package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/sirupsen/logrus"
)

// Shared fakes for the pipeline tests. The pipeline talks to narrow
// interfaces, so hand-rolled fakes stay small and keep call recording
// explicit.

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakeFetcher serves items from a function, recording every fetched ID.
type fakeFetcher struct {
	mu     sync.Mutex
	maxID  int64
	maxErr error
	itemFn func(id int64) (*hn.Item, error)
	calls  []int64
}

func (f *fakeFetcher) FetchItem(ctx context.Context, id int64) (*hn.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	return f.itemFn(id)
}

func (f *fakeFetcher) FetchMaxID(ctx context.Context) (int64, error) {
	return f.maxID, f.maxErr
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeStoryGateway is an in-memory stand-in for the story store.
type fakeStoryGateway struct {
	mu        sync.Mutex
	existing  map[int64]bool
	puts      [][]*store.Story
	maxStored int64
	found     bool
	existErr  error
	putErr    error
	maxErr    error
	deleteAll bool
	deleteErr error
}

func newFakeStoryGateway() *fakeStoryGateway {
	return &fakeStoryGateway{existing: make(map[int64]bool)}
}

func (g *fakeStoryGateway) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	if g.existErr != nil {
		return nil, g.existErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[int64]bool)
	for _, id := range ids {
		if g.existing[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (g *fakeStoryGateway) PutStories(ctx context.Context, stories []*store.Story) error {
	if g.putErr != nil {
		return g.putErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.puts = append(g.puts, stories)
	for _, s := range stories {
		g.existing[s.ID] = true
	}
	return nil
}

func (g *fakeStoryGateway) MaxStoredID(ctx context.Context) (int64, bool, error) {
	return g.maxStored, g.found, g.maxErr
}

func (g *fakeStoryGateway) DeleteAll(ctx context.Context) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteAll = true
	g.existing = make(map[int64]bool)
	return nil
}

func (g *fakeStoryGateway) storedStories() []*store.Story {
	g.mu.Lock()
	defer g.mu.Unlock()
	var all []*store.Story
	for _, batch := range g.puts {
		all = append(all, batch...)
	}
	return all
}

// fakeBacklog is an in-memory stand-in for the backlog store.
type fakeBacklog struct {
	mu       sync.Mutex
	batches  []*store.BacklogBatch
	cleared  bool
	takeErr  error
	markErr  error
	enqErr   error
	clearErr error
}

func (b *fakeBacklog) Enqueue(ctx context.Context, batches [][]int64) error {
	if b.enqErr != nil {
		return b.enqErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ids := range batches {
		b.batches = append(b.batches, &store.BacklogBatch{
			IDs:         ids,
			Status:      store.StatusPending,
			BatchNumber: i,
		})
	}
	return nil
}

func (b *fakeBacklog) TakePending(ctx context.Context, n int) ([]*store.BacklogBatch, error) {
	if b.takeErr != nil {
		return nil, b.takeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var pending []*store.BacklogBatch
	for _, batch := range b.batches {
		if batch.Status == store.StatusPending {
			pending = append(pending, batch)
			if len(pending) == n {
				break
			}
		}
	}
	return pending, nil
}

func (b *fakeBacklog) MarkProcessed(ctx context.Context, batch *store.BacklogBatch) error {
	if b.markErr != nil {
		return b.markErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	batch.Status = store.StatusProcessed
	batch.ProcessedAt = time.Now()
	return nil
}

func (b *fakeBacklog) Clear(ctx context.Context) error {
	if b.clearErr != nil {
		return b.clearErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared = true
	b.batches = nil
	return nil
}

func (b *fakeBacklog) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, batch := range b.batches {
		if batch.Status == store.StatusPending {
			count++
		}
	}
	return count
}

// fakeBatchRunner records the batches it was asked to process.
type fakeBatchRunner struct {
	mu      sync.Mutex
	batches [][]int64
	err     error
	failOn  int // fail on the nth call (1-based), 0 disables
}

func (r *fakeBatchRunner) ProcessBatch(ctx context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, ids)
	if r.failOn > 0 && len(r.batches) == r.failOn {
		return r.err
	}
	if r.failOn == 0 && r.err != nil {
		return r.err
	}
	return nil
}

func (r *fakeBatchRunner) processed() [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}
