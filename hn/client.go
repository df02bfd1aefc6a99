package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Hacker News Firebase API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// Client fetches items from the Hacker News API with bounded retries and
// an outbound rate limit shared across all calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
	maxRetries int
	backoff    time.Duration
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL           string
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	Timeout           time.Duration
}

// NewClient creates a Hacker News API client. Zero-valued options fall back
// to the defaults the pipeline was tuned for (3 attempts, 300ms linear
// backoff).
func NewClient(opts ClientOptions, logger *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 300 * time.Millisecond
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 50
	}
	if opts.RequestBurst <= 0 {
		opts.RequestBurst = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestBurst),
		logger:     logger,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
	}
}

// FetchItem fetches a single item by ID. A (nil, nil) return means the API
// has no item at that ID. A non-nil error means all retry attempts were
// exhausted; callers decide whether that is a skip or an abort.
func (c *Client) FetchItem(ctx context.Context, id int64) (*Item, error) {
	body, err := c.getWithRetry(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}

	var item *Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return item, nil
}

// FetchMaxID returns the current maximum item ID assigned by the source.
func (c *Client) FetchMaxID(ctx context.Context) (int64, error) {
	body, err := c.getWithRetry(ctx, c.baseURL+"/maxitem.json")
	if err != nil {
		return 0, fmt.Errorf("fetch maxitem: %w", err)
	}

	var maxID int64
	if err := json.Unmarshal(body, &maxID); err != nil {
		return 0, fmt.Errorf("decode maxitem: %w", err)
	}
	return maxID, nil
}

// FetchTopComments fetches up to limit top-level comments of a story,
// skipping deleted and dead ones. Individual comment fetch failures are
// logged and skipped.
func (c *Client) FetchTopComments(ctx context.Context, storyID int64, limit int) ([]*Item, error) {
	story, err := c.FetchItem(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil || len(story.Kids) == 0 {
		return []*Item{}, nil
	}

	kids := story.Kids
	if len(kids) > limit {
		kids = kids[:limit]
	}

	comments := make([]*Item, 0, len(kids))
	for _, kid := range kids {
		comment, err := c.FetchItem(ctx, kid)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"story_id":   storyID,
				"comment_id": kid,
				"error":      err.Error(),
			}).Warn("Failed to fetch comment")
			continue
		}
		if comment == nil || comment.Deleted || comment.Dead {
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// getWithRetry performs a GET with up to maxRetries attempts and a linearly
// increasing backoff delay between them.
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < c.maxRetries {
			delay := c.backoff * time.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
