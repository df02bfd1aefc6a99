/*
Package handlers provides HTTP handlers with dependency injection support.

This package defines the Handler struct that contains all service dependencies,
eliminating global variables and enabling better testability and separation of concerns.
*/
package handlers

import (
	"context"
	"time"

	"github.com/cleanhn/hn-mirror-backend/cache"
	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/cleanhn/hn-mirror-backend/types"
	"github.com/sirupsen/logrus"
)

// StoryReaderInterface defines read operations on the story mirror
type StoryReaderInterface interface {
	QueryNewerThan(ctx context.Context, horizon time.Time) ([]*store.Story, error)
	CountStories(ctx context.Context) (int, error)
	CountByDate(ctx context.Context) (map[string]int, error)
}

// BacklogReaderInterface defines read operations on the backlog
type BacklogReaderInterface interface {
	Progress(ctx context.Context) (total, pending int, err error)
}

// CommentFetcherInterface defines live comment retrieval from the HN API
type CommentFetcherInterface interface {
	FetchTopComments(ctx context.Context, storyID int64, limit int) ([]*hn.Item, error)
}

// ReloadProcessorInterface defines the interface for async reload processing
type ReloadProcessorInterface interface {
	SubmitJob(requestID string) (string, error)
	GetJobStatus(jobID string) (*types.ReloadJobStatus, bool)
	HasActiveJob() bool
}

// CacheManagerInterface defines the interface for cache operations
type CacheManagerInterface interface {
	GetStories(days int) ([]*store.Story, bool)
	SetStories(days int, stories []*store.Story) error
	GetStats() (interface{}, bool)
	SetStats(stats interface{}) error
	Invalidate() error
}

// Handler contains all service dependencies for HTTP handlers
type Handler struct {
	Stories         StoryReaderInterface
	Backlog         BacklogReaderInterface
	Comments        CommentFetcherInterface
	CacheManager    CacheManagerInterface
	ReloadProcessor ReloadProcessorInterface
	Logger          *logrus.Logger
	RetentionWindow time.Duration
	CommentsLimit   int
}

// NewHandler creates a new handler instance with injected dependencies
func NewHandler(
	stories *store.StoryStore,
	backlog *store.BacklogStore,
	hnClient *hn.Client,
	reloadProcessor *ReloadProcessor,
	cacheManager *cache.CacheManager,
	retentionWindow time.Duration,
	commentsLimit int,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		Stories:         stories,
		Backlog:         backlog,
		Comments:        hnClient,
		CacheManager:    cacheManager,
		ReloadProcessor: reloadProcessor,
		Logger:          logger,
		RetentionWindow: retentionWindow,
		CommentsLimit:   commentsLimit,
	}
}
