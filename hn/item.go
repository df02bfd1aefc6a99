/*
Package hn provides the Hacker News API client and item model for the mirror backend.

The official API exposes items (stories, comments, jobs, polls) by sequential
integer ID, plus a maxitem endpoint returning the highest assigned ID. Items
are decoded into a single tagged struct; only the "story" variant carries the
fields the ingestion pipeline stores.
*/
package hn

import (
	"time"
)

// Item kinds returned by the Hacker News API.
const (
	TypeStory   = "story"
	TypeComment = "comment"
	TypeJob     = "job"
)

// Item represents a raw item from the Hacker News API. Fields that only
// apply to some kinds (URL, Score, Descendants, Kids) are zero-valued for
// the others; URL is genuinely optional even for stories (Ask HN posts).
type Item struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	By          string  `json:"by"`
	Time        int64   `json:"time"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	Descendants int     `json:"descendants"`
	Kids        []int64 `json:"kids"`
	Deleted     bool    `json:"deleted"`
	Dead        bool    `json:"dead"`
}

// IsValidStory decides whether a fetched item qualifies for the mirror.
// Rules, in order: the item must exist and be a story; it must have a
// positive score and at least one comment; it must clear at least one
// popularity threshold (score >= 10 or comments >= 10); and it must have
// been created at or after the retention horizon. Deterministic, no side
// effects.
func IsValidStory(item *Item, horizon time.Time) bool {
	if item == nil || item.Type != TypeStory {
		return false
	}

	if item.Score <= 0 || item.Descendants <= 0 {
		return false
	}

	if item.Score < 10 && item.Descendants < 10 {
		return false
	}

	return item.Time >= horizon.Unix()
}
