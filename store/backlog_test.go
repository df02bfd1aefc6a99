package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func makeBacklogKeys(n int) []*datastore.Key {
	keys := make([]*datastore.Key, n)
	for i := range keys {
		keys[i] = datastore.IDKey(BacklogKind, int64(i+1), nil)
	}
	return keys
}

func TestEnqueueChunksAndNumbersBatches(t *testing.T) {
	client := new(MockDatastoreClient)
	var written []*BacklogBatch
	client.On("PutMulti", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = append(written, args.Get(2).([]*BacklogBatch)...)
		}).
		Return(nil, nil)
	backlogStore := NewBacklogStore(client, quietLogger())

	batches := make([][]int64, 250)
	for i := range batches {
		batches[i] = []int64{int64(1000 - i)}
	}

	require.NoError(t, backlogStore.Enqueue(context.Background(), batches))

	client.AssertNumberOfCalls(t, "PutMulti", 3)
	require.Len(t, written, 250)
	// Batch numbers follow the generation order across chunk boundaries.
	assert.Equal(t, 0, written[0].BatchNumber)
	assert.Equal(t, 100, written[100].BatchNumber)
	assert.Equal(t, 249, written[249].BatchNumber)
	for _, batch := range written {
		assert.Equal(t, StatusPending, batch.Status)
		assert.False(t, batch.CreatedAt.IsZero())
	}
}

func TestEnqueueWriteFailure(t *testing.T) {
	client := new(MockDatastoreClient)
	client.On("PutMulti", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("commit failed"))
	backlogStore := NewBacklogStore(client, quietLogger())

	err := backlogStore.Enqueue(context.Background(), [][]int64{{1, 2}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit failed")
}

func TestTakePending(t *testing.T) {
	client := new(MockDatastoreClient)
	client.On("GetAll", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(2).(*[]*BacklogBatch)
			*dst = append(*dst,
				&BacklogBatch{BatchNumber: 0, Status: StatusPending, IDs: []int64{100, 99}},
				&BacklogBatch{BatchNumber: 1, Status: StatusPending, IDs: []int64{98, 97}},
			)
		}).
		Return(nil, nil)
	backlogStore := NewBacklogStore(client, quietLogger())

	batches, err := backlogStore.TakePending(context.Background(), 30)

	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 0, batches[0].BatchNumber)
	assert.Equal(t, []int64{98, 97}, batches[1].IDs)
}

func TestMarkProcessed(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	client := new(MockDatastoreClient)
	client.On("PutMulti", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	backlogStore := NewBacklogStore(client, quietLogger())
	backlogStore.now = func() time.Time { return now }

	batch := &BacklogBatch{
		Key:         datastore.IDKey(BacklogKind, 5, nil),
		BatchNumber: 5,
		Status:      StatusPending,
	}

	require.NoError(t, backlogStore.MarkProcessed(context.Background(), batch))
	assert.Equal(t, StatusProcessed, batch.Status)
	assert.Equal(t, now, batch.ProcessedAt)
}

func TestMarkProcessedWriteFailure(t *testing.T) {
	client := new(MockDatastoreClient)
	client.On("PutMulti", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("commit failed"))
	backlogStore := NewBacklogStore(client, quietLogger())

	batch := &BacklogBatch{Key: datastore.IDKey(BacklogKind, 5, nil)}
	err := backlogStore.MarkProcessed(context.Background(), batch)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit failed")
}

func TestClearChunksDeletes(t *testing.T) {
	client := new(MockDatastoreClient)
	var chunkSizes []int
	client.On("GetAll", mock.Anything, mock.Anything, mock.Anything).Return(makeBacklogKeys(750), nil)
	client.On("DeleteMulti", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			chunkSizes = append(chunkSizes, len(args.Get(1).([]*datastore.Key)))
		}).
		Return(nil)
	backlogStore := NewBacklogStore(client, quietLogger())

	require.NoError(t, backlogStore.Clear(context.Background()))
	assert.Equal(t, []int{500, 250}, chunkSizes)
}

func TestProgress(t *testing.T) {
	client := new(MockDatastoreClient)
	client.On("GetAll", mock.Anything, mock.Anything, mock.Anything).Return(makeBacklogKeys(10), nil).Once()
	client.On("GetAll", mock.Anything, mock.Anything, mock.Anything).Return(makeBacklogKeys(4), nil).Once()
	backlogStore := NewBacklogStore(client, quietLogger())

	total, pending, err := backlogStore.Progress(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, 4, pending)
}

func TestProgressQueryFailure(t *testing.T) {
	client := new(MockDatastoreClient)
	client.On("GetAll", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("query failed"))
	backlogStore := NewBacklogStore(client, quietLogger())

	_, _, err := backlogStore.Progress(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}
