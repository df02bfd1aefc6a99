package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/sirupsen/logrus"
)

// EnqueueChunkSize bounds how many backlog batches are written per commit.
// Each batch document carries up to a full ID chunk, so backlog commits use
// a smaller chunk than story writes.
const EnqueueChunkSize = 100

// Backlog batch statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// BacklogBatch is a persisted unit of deferred ingestion work: an ordered
// list of candidate IDs plus its consumption state. BatchNumber is the
// generation sequence index; consumption always proceeds in ascending
// BatchNumber order.
type BacklogBatch struct {
	Key         *datastore.Key `datastore:"__key__" json:"-"`
	IDs         []int64        `datastore:"batch_ids,noindex" json:"batch_ids"`
	Status      string         `datastore:"status" json:"status"`
	BatchNumber int            `datastore:"batch_number" json:"batch_number"`
	CreatedAt   time.Time      `datastore:"created_at,noindex" json:"created_at"`
	ProcessedAt time.Time      `datastore:"processed_at,noindex" json:"processed_at,omitempty"`
}

// BacklogStore is the gateway to the durable backlog queue.
type BacklogStore struct {
	client DatastoreClient
	logger *logrus.Logger
	now    func() time.Time
}

// NewBacklogStore creates a backlog gateway.
func NewBacklogStore(client DatastoreClient, logger *logrus.Logger) *BacklogStore {
	return &BacklogStore{client: client, logger: logger, now: time.Now}
}

// Enqueue persists the generated ID lists as pending batches. The batch
// number is the position in the generation sequence, so batches closest to
// the external max ID are consumed first. Writes are chunked to respect the
// commit limit.
func (b *BacklogStore) Enqueue(ctx context.Context, batches [][]int64) error {
	createdAt := b.now()

	for start := 0; start < len(batches); start += EnqueueChunkSize {
		end := start + EnqueueChunkSize
		if end > len(batches) {
			end = len(batches)
		}

		chunk := batches[start:end]
		keys := make([]*datastore.Key, len(chunk))
		entities := make([]*BacklogBatch, len(chunk))
		for i, ids := range chunk {
			keys[i] = datastore.IncompleteKey(BacklogKind, nil)
			entities[i] = &BacklogBatch{
				IDs:         ids,
				Status:      StatusPending,
				BatchNumber: start + i,
				CreatedAt:   createdAt,
			}
		}

		began := time.Now()
		_, err := b.client.PutMulti(ctx, keys, entities)
		monitoring.RecordDatastoreOperation("put_multi", operationStatus(err), time.Since(began).Seconds())
		if err != nil {
			return fmt.Errorf("enqueue backlog chunk at %d: %w", start, err)
		}

		b.logger.WithFields(logrus.Fields{
			"from": start,
			"to":   end,
		}).Info("Saved backlog batch chunk")
	}
	return nil
}

// TakePending returns up to n pending batches in ascending batch number
// order.
func (b *BacklogStore) TakePending(ctx context.Context, n int) ([]*BacklogBatch, error) {
	q := datastore.NewQuery(BacklogKind).
		FilterField("status", "=", StatusPending).
		Order("batch_number").
		Limit(n)

	var batches []*BacklogBatch
	if _, err := b.client.GetAll(ctx, q, &batches); err != nil {
		return nil, fmt.Errorf("take pending backlog batches: %w", err)
	}
	return batches, nil
}

// MarkProcessed transitions a batch to processed and stamps the processing
// time. Per-batch rather than batched: each update follows a network-bound
// processing pass.
func (b *BacklogStore) MarkProcessed(ctx context.Context, batch *BacklogBatch) error {
	batch.Status = StatusProcessed
	batch.ProcessedAt = b.now()

	if _, err := b.client.PutMulti(ctx, []*datastore.Key{batch.Key}, []*BacklogBatch{batch}); err != nil {
		return fmt.Errorf("mark batch %d processed: %w", batch.BatchNumber, err)
	}
	return nil
}

// Clear removes every backlog batch. Used by the full reset.
func (b *BacklogStore) Clear(ctx context.Context) error {
	keys, err := b.client.GetAll(ctx, datastore.NewQuery(BacklogKind).KeysOnly(), nil)
	if err != nil {
		return fmt.Errorf("query backlog keys: %w", err)
	}

	for start := 0; start < len(keys); start += WriteChunkSize {
		end := start + WriteChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := b.client.DeleteMulti(ctx, keys[start:end]); err != nil {
			return fmt.Errorf("clear backlog chunk at %d: %w", start, err)
		}
	}

	b.logger.WithField("deleted", len(keys)).Info("Cleared backlog queue")
	return nil
}

// Progress reports total and pending batch counts for the stats endpoint.
func (b *BacklogStore) Progress(ctx context.Context) (total, pending int, err error) {
	totalKeys, err := b.client.GetAll(ctx, datastore.NewQuery(BacklogKind).KeysOnly(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("count backlog batches: %w", err)
	}

	pendingKeys, err := b.client.GetAll(ctx, datastore.NewQuery(BacklogKind).
		FilterField("status", "=", StatusPending).KeysOnly(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("count pending backlog batches: %w", err)
	}

	return len(totalKeys), len(pendingKeys), nil
}
