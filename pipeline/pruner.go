package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// StoryPruner is the deletion slice of the story store.
type StoryPruner interface {
	DeleteOlderThan(ctx context.Context, horizon time.Time) (int, error)
}

// Pruner removes stories that have aged out of the retention window.
type Pruner struct {
	stories StoryPruner
	logger  *logrus.Logger
}

// NewPruner creates a retention pruner.
func NewPruner(stories StoryPruner, logger *logrus.Logger) *Pruner {
	return &Pruner{stories: stories, logger: logger}
}

// PruneOlderThan deletes every stored story with a timestamp before the
// horizon. No-op if none match.
func (p *Pruner) PruneOlderThan(ctx context.Context, horizon time.Time) error {
	removed, err := p.stories.DeleteOlderThan(ctx, horizon)
	if err != nil {
		return err
	}
	if removed > 0 {
		p.logger.WithField("removed", removed).Info("Removed old stories")
	}
	return nil
}
