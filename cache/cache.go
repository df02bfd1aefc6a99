/*
Package cache provides caching functionality for mirrored stories.

This package implements an in-memory cache with TTL support to reduce
redundant Datastore queries on the read endpoints. Cached entries are
invalidated whenever the pipeline rewrites the mirror.
*/
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/sirupsen/logrus"
)

// CacheItem represents a cached value with expiration
type CacheItem struct {
	Data      interface{} `json:"data"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache interface defines caching operations
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// InMemoryCache implements an in-memory cache with TTL support
type InMemoryCache struct {
	items map[string]*CacheItem
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(defaultTTL time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		items: make(map[string]*CacheItem),
		ttl:   defaultTTL,
	}

	// Start cleanup goroutine
	go cache.startCleanup()

	return cache
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		return nil, false
	}

	return item.Data, true
}

// Set stores a value in cache
func (c *InMemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes an item from cache
func (c *InMemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all items from cache
func (c *InMemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheItem)
	return nil
}

// startCleanup periodically removes expired items
func (c *InMemoryCache) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes expired items
func (c *InMemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// CacheManager manages caching for the story read endpoints
type CacheManager struct {
	cache      Cache
	logger     *logrus.Logger
	storiesTTL time.Duration
	statsTTL   time.Duration
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cache Cache, logger *logrus.Logger, storiesTTL, statsTTL time.Duration) *CacheManager {
	return &CacheManager{
		cache:      cache,
		logger:     logger,
		storiesTTL: storiesTTL,
		statsTTL:   statsTTL,
	}
}

// GetStories retrieves cached stories for a query window
func (cm *CacheManager) GetStories(days int) ([]*store.Story, bool) {
	key := fmt.Sprintf("stories:%d", days)
	value, found := cm.cache.Get(key)
	if !found {
		cm.logger.WithField("days", days).Debug("Cache miss for stories")
		return nil, false
	}

	stories, ok := value.([]*store.Story)
	if !ok {
		return nil, false
	}

	cm.logger.WithFields(logrus.Fields{
		"days":          days,
		"stories_count": len(stories),
	}).Debug("Cache hit for stories")

	return stories, true
}

// SetStories caches stories for a query window
func (cm *CacheManager) SetStories(days int, stories []*store.Story) error {
	key := fmt.Sprintf("stories:%d", days)
	if err := cm.cache.Set(key, stories, cm.storiesTTL); err != nil {
		cm.logger.WithFields(logrus.Fields{
			"days":  days,
			"error": err.Error(),
		}).Error("Failed to cache stories")
		return err
	}

	cm.logger.WithFields(logrus.Fields{
		"days":          days,
		"stories_count": len(stories),
	}).Debug("Cached stories successfully")

	return nil
}

// GetStats retrieves the cached stats response
func (cm *CacheManager) GetStats() (interface{}, bool) {
	value, found := cm.cache.Get("stats")
	if !found {
		cm.logger.Debug("Cache miss for stats")
		return nil, false
	}

	cm.logger.Debug("Cache hit for stats")
	return value, true
}

// SetStats caches the stats response
func (cm *CacheManager) SetStats(stats interface{}) error {
	if err := cm.cache.Set("stats", stats, cm.statsTTL); err != nil {
		cm.logger.WithError(err).Error("Failed to cache stats")
		return err
	}

	cm.logger.Debug("Cached stats successfully")
	return nil
}

// Invalidate clears all cached read responses.
// Called after pipeline runs so readers never see stale mirror data.
func (cm *CacheManager) Invalidate() error {
	if err := cm.cache.Clear(); err != nil {
		cm.logger.WithError(err).Error("Failed to invalidate cache")
		return err
	}

	cm.logger.Debug("Cache invalidated after mirror update")
	return nil
}
