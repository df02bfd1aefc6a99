/*
Package store provides the Google Cloud Datastore gateways owned by the
mirror: the story collection and the backlog batch queue.

All writes go through chunked PutMulti/DeleteMulti calls sized to
Datastore's per-commit mutation limit; callers never have to chunk
themselves.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/sirupsen/logrus"
)

// Datastore kind names.
const (
	StoryKind   = "Story"
	BacklogKind = "BacklogBatch"
)

// WriteChunkSize is the maximum number of mutations per Datastore commit.
const WriteChunkSize = 500

// statsPageSize is the page size for the per-day projection scan.
const statsPageSize = 1000

// DatastoreClient defines the Datastore operations the gateways need,
// satisfied by *datastore.Client and mockable in tests.
type DatastoreClient interface {
	GetMulti(ctx context.Context, keys []*datastore.Key, dst interface{}) error
	PutMulti(ctx context.Context, keys []*datastore.Key, src interface{}) ([]*datastore.Key, error)
	DeleteMulti(ctx context.Context, keys []*datastore.Key) error
	GetAll(ctx context.Context, q *datastore.Query, dst interface{}) ([]*datastore.Key, error)
}

// Story is the persisted shape of a mirrored Hacker News story.
type Story struct {
	ID           int64  `datastore:"id" json:"id"`
	Title        string `datastore:"title,noindex" json:"title"`
	URL          string `datastore:"url,noindex" json:"url,omitempty"`
	Score        int    `datastore:"score,noindex" json:"score"`
	CommentCount int    `datastore:"comment_count,noindex" json:"commentCount"`
	By           string `datastore:"by,noindex" json:"by"`
	Timestamp    int64  `datastore:"timestamp" json:"timestamp"`
	Date         string `datastore:"date" json:"date"`
}

// StoryFromItem converts a validated API item into its stored form. The
// derived calendar date (UTC) feeds the per-day stats aggregation.
func StoryFromItem(item *hn.Item) *Story {
	return &Story{
		ID:           item.ID,
		Title:        item.Title,
		URL:          item.URL,
		Score:        item.Score,
		CommentCount: item.Descendants,
		By:           item.By,
		Timestamp:    item.Time,
		Date:         time.Unix(item.Time, 0).UTC().Format("2006-01-02"),
	}
}

// StoryStore is the gateway to the mirrored story collection.
type StoryStore struct {
	client DatastoreClient
	logger *logrus.Logger
}

// NewStoryStore creates a story gateway.
func NewStoryStore(client DatastoreClient, logger *logrus.Logger) *StoryStore {
	return &StoryStore{client: client, logger: logger}
}

func storyKey(id int64) *datastore.Key {
	return datastore.IDKey(StoryKind, id, nil)
}

// ExistingIDs returns the subset of the given IDs already present in the
// store, resolved in a single batched lookup.
func (s *StoryStore) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	if len(ids) == 0 {
		return map[int64]bool{}, nil
	}

	keys := make([]*datastore.Key, len(ids))
	for i, id := range ids {
		keys[i] = storyKey(id)
	}

	existing := make(map[int64]bool)
	dst := make([]Story, len(ids))
	err := s.client.GetMulti(ctx, keys, dst)
	if err == nil {
		for _, id := range ids {
			existing[id] = true
		}
		return existing, nil
	}

	var merr datastore.MultiError
	if !errors.As(err, &merr) {
		return nil, fmt.Errorf("existence lookup: %w", err)
	}
	for i, itemErr := range merr {
		switch {
		case itemErr == nil:
			existing[ids[i]] = true
		case errors.Is(itemErr, datastore.ErrNoSuchEntity):
			// absent, not an error
		default:
			return nil, fmt.Errorf("existence lookup for id %d: %w", ids[i], itemErr)
		}
	}
	return existing, nil
}

// PutStories upserts stories keyed by their IDs, chunked to the commit
// limit. Re-writing an already-stored story is a harmless overwrite.
func (s *StoryStore) PutStories(ctx context.Context, stories []*Story) error {
	for start := 0; start < len(stories); start += WriteChunkSize {
		end := start + WriteChunkSize
		if end > len(stories) {
			end = len(stories)
		}

		chunk := stories[start:end]
		keys := make([]*datastore.Key, len(chunk))
		for i, story := range chunk {
			keys[i] = storyKey(story.ID)
		}

		began := time.Now()
		_, err := s.client.PutMulti(ctx, keys, chunk)
		monitoring.RecordDatastoreOperation("put_multi", operationStatus(err), time.Since(began).Seconds())
		if err != nil {
			return fmt.Errorf("put stories chunk at %d: %w", start, err)
		}
	}
	return nil
}

// MaxStoredID returns the highest stored story ID, or (0, false) when the
// store is empty.
func (s *StoryStore) MaxStoredID(ctx context.Context) (int64, bool, error) {
	q := datastore.NewQuery(StoryKind).Order("-id").Limit(1)
	var stories []*Story
	if _, err := s.client.GetAll(ctx, q, &stories); err != nil {
		return 0, false, fmt.Errorf("max stored id: %w", err)
	}
	if len(stories) == 0 {
		return 0, false, nil
	}
	return stories[0].ID, true, nil
}

// QueryNewerThan returns all stories created at or after the horizon,
// newest first.
func (s *StoryStore) QueryNewerThan(ctx context.Context, horizon time.Time) ([]*Story, error) {
	q := datastore.NewQuery(StoryKind).
		FilterField("timestamp", ">=", horizon.Unix()).
		Order("-timestamp")

	var stories []*Story
	if _, err := s.client.GetAll(ctx, q, &stories); err != nil {
		return nil, fmt.Errorf("query stories newer than %s: %w", horizon.Format(time.RFC3339), err)
	}
	if stories == nil {
		stories = []*Story{}
	}
	return stories, nil
}

// DeleteOlderThan deletes every story with a timestamp before the horizon
// and reports how many were removed.
func (s *StoryStore) DeleteOlderThan(ctx context.Context, horizon time.Time) (int, error) {
	q := datastore.NewQuery(StoryKind).
		FilterField("timestamp", "<", horizon.Unix()).
		KeysOnly()

	keys, err := s.client.GetAll(ctx, q, nil)
	if err != nil {
		return 0, fmt.Errorf("query old stories: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.deleteKeys(ctx, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// DeleteAll removes every stored story. Used by the full reset before a
// cold start.
func (s *StoryStore) DeleteAll(ctx context.Context) error {
	keys, err := s.client.GetAll(ctx, datastore.NewQuery(StoryKind).KeysOnly(), nil)
	if err != nil {
		return fmt.Errorf("query all stories: %w", err)
	}
	if err := s.deleteKeys(ctx, keys); err != nil {
		return err
	}
	s.logger.WithField("deleted", len(keys)).Info("Cleared all stories")
	return nil
}

// CountStories returns the number of stored stories.
func (s *StoryStore) CountStories(ctx context.Context) (int, error) {
	keys, err := s.client.GetAll(ctx, datastore.NewQuery(StoryKind).KeysOnly(), nil)
	if err != nil {
		return 0, fmt.Errorf("count stories: %w", err)
	}
	return len(keys), nil
}

// CountByDate returns story counts grouped by calendar date, scanned page
// by page over a date-only projection to bound memory.
func (s *StoryStore) CountByDate(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	offset := 0

	for {
		q := datastore.NewQuery(StoryKind).
			Project("date").
			Order("date").
			Limit(statsPageSize).
			Offset(offset)

		var page []Story
		if _, err := s.client.GetAll(ctx, q, &page); err != nil {
			return nil, fmt.Errorf("count by date at offset %d: %w", offset, err)
		}

		for _, story := range page {
			if story.Date != "" {
				counts[story.Date]++
			}
		}

		if len(page) < statsPageSize {
			return counts, nil
		}
		offset += len(page)
	}
}

// deleteKeys deletes keys in chunks sized to the commit limit.
func (s *StoryStore) deleteKeys(ctx context.Context, keys []*datastore.Key) error {
	for start := 0; start < len(keys); start += WriteChunkSize {
		end := start + WriteChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		began := time.Now()
		err := s.client.DeleteMulti(ctx, keys[start:end])
		monitoring.RecordDatastoreOperation("delete_multi", operationStatus(err), time.Since(began).Seconds())
		if err != nil {
			return fmt.Errorf("delete chunk at %d: %w", start, err)
		}
	}
	return nil
}

func operationStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
