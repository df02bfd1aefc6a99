package cache

import (
	"testing"
	"time"

	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestInMemoryCacheSetAndGet(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	require.NoError(t, cache.Set("key", "value", time.Minute))

	value, found := cache.Get("key")
	assert.True(t, found)
	assert.Equal(t, "value", value)
}

func TestInMemoryCacheMiss(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	_, found := cache.Get("absent")
	assert.False(t, found)
}

func TestInMemoryCacheExpiry(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	require.NoError(t, cache.Set("key", "value", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found := cache.Get("key")
	assert.False(t, found)
}

func TestInMemoryCacheZeroTTLUsesDefault(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	require.NoError(t, cache.Set("key", "value", 0))

	_, found := cache.Get("key")
	assert.True(t, found)
}

func TestInMemoryCacheDelete(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	require.NoError(t, cache.Set("key", "value", time.Minute))
	require.NoError(t, cache.Delete("key"))

	_, found := cache.Get("key")
	assert.False(t, found)
}

func TestInMemoryCacheClear(t *testing.T) {
	cache := NewInMemoryCache(time.Minute)

	require.NoError(t, cache.Set("a", 1, time.Minute))
	require.NoError(t, cache.Set("b", 2, time.Minute))
	require.NoError(t, cache.Clear())

	_, foundA := cache.Get("a")
	_, foundB := cache.Get("b")
	assert.False(t, foundA)
	assert.False(t, foundB)
}

func TestCacheManagerStoriesRoundTrip(t *testing.T) {
	manager := NewCacheManager(NewInMemoryCache(time.Minute), testLogger(), time.Minute, time.Minute)

	stories := []*store.Story{{ID: 1, Title: "first"}, {ID: 2, Title: "second"}}
	require.NoError(t, manager.SetStories(7, stories))

	cached, found := manager.GetStories(7)
	require.True(t, found)
	assert.Equal(t, stories, cached)

	// A different window is a distinct cache entry.
	_, found = manager.GetStories(30)
	assert.False(t, found)
}

func TestCacheManagerStatsRoundTrip(t *testing.T) {
	manager := NewCacheManager(NewInMemoryCache(time.Minute), testLogger(), time.Minute, time.Minute)

	type statsPayload struct{ Total int }
	require.NoError(t, manager.SetStats(&statsPayload{Total: 99}))

	cached, found := manager.GetStats()
	require.True(t, found)
	assert.Equal(t, &statsPayload{Total: 99}, cached)
}

func TestCacheManagerInvalidate(t *testing.T) {
	manager := NewCacheManager(NewInMemoryCache(time.Minute), testLogger(), time.Minute, time.Minute)

	require.NoError(t, manager.SetStories(7, []*store.Story{{ID: 1}}))
	require.NoError(t, manager.SetStats("stats"))

	require.NoError(t, manager.Invalidate())

	_, storiesFound := manager.GetStories(7)
	_, statsFound := manager.GetStats()
	assert.False(t, storiesFound)
	assert.False(t, statsFound)
}
