/*
Package container provides dependency injection capabilities for the HN mirror backend.

This package implements a simple dependency injection container that helps manage
service dependencies and reduces tight coupling between components.
*/
package container

import (
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/cleanhn/hn-mirror-backend/cache"
	"github.com/cleanhn/hn-mirror-backend/handlers"
	"github.com/cleanhn/hn-mirror-backend/handlers/health"
	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/pipeline"
	"github.com/cleanhn/hn-mirror-backend/store"
	"github.com/sirupsen/logrus"
)

// Settings carries the tuning needed to assemble the pipeline and handlers
type Settings struct {
	Pipeline              pipeline.Config
	CommentsLimit         int
	ReloadWorkers         int
	ReloadQueueSize       int
	ReloadBackpressure    bool
	ReloadRejectThreshold float64
	ReloadWaitTimeout     time.Duration
}

// Container holds all service dependencies
type Container struct {
	mu              sync.RWMutex
	services        map[string]interface{}
	factories       map[string]func() (interface{}, error)
	singletons      map[string]interface{}
	logger          *logrus.Logger
	datastoreClient *datastore.Client
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		services:   make(map[string]interface{}),
		factories:  make(map[string]func() (interface{}, error)),
		singletons: make(map[string]interface{}),
	}
}

// Register registers a service instance
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterFactory registers a factory function for lazy service creation
func (c *Container) RegisterFactory(name string, factory func() (interface{}, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// RegisterSingleton registers a singleton service
func (c *Container) RegisterSingleton(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = service
}

// Get retrieves a service by name
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Check if service is already registered
	if service, exists := c.services[name]; exists {
		return service, nil
	}

	// Check if it's a singleton
	if singleton, exists := c.singletons[name]; exists {
		return singleton, nil
	}

	// Check if there's a factory for this service
	if factory, exists := c.factories[name]; exists {
		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %v", name, err)
		}
		return service, nil
	}

	return nil, fmt.Errorf("service %s not found", name)
}

// GetLogger retrieves the logger service
func (c *Container) GetLogger() (*logrus.Logger, error) {
	service, err := c.Get("logger")
	if err != nil {
		return nil, err
	}
	logger, ok := service.(*logrus.Logger)
	if !ok {
		return nil, fmt.Errorf("logger service is not of expected type")
	}
	return logger, nil
}

// GetDatastoreClient retrieves the datastore client service
func (c *Container) GetDatastoreClient() (*datastore.Client, error) {
	service, err := c.Get("datastore")
	if err != nil {
		return nil, err
	}
	client, ok := service.(*datastore.Client)
	if !ok {
		return nil, fmt.Errorf("datastore service is not of expected type")
	}
	return client, nil
}

// GetOrchestrator retrieves the pipeline orchestrator service
func (c *Container) GetOrchestrator() (*pipeline.Orchestrator, error) {
	service, err := c.Get("orchestrator")
	if err != nil {
		return nil, err
	}
	orchestrator, ok := service.(*pipeline.Orchestrator)
	if !ok {
		return nil, fmt.Errorf("orchestrator service is not of expected type")
	}
	return orchestrator, nil
}

// GetCacheManager retrieves the cache manager service
func (c *Container) GetCacheManager() (*cache.CacheManager, error) {
	service, err := c.Get("cache")
	if err != nil {
		return nil, err
	}
	cacheManager, ok := service.(*cache.CacheManager)
	if !ok {
		return nil, fmt.Errorf("cache service is not of expected type")
	}
	return cacheManager, nil
}

// GetHandler retrieves the handler service
func (c *Container) GetHandler() (*handlers.Handler, error) {
	service, err := c.Get("handler")
	if err != nil {
		return nil, err
	}
	handler, ok := service.(*handlers.Handler)
	if !ok {
		return nil, fmt.Errorf("handler service is not of expected type")
	}
	return handler, nil
}

// GetHealthHandler retrieves the health handler service
func (c *Container) GetHealthHandler() (*health.Handler, error) {
	service, err := c.Get("health_handler")
	if err != nil {
		return nil, err
	}
	handler, ok := service.(*health.Handler)
	if !ok {
		return nil, fmt.Errorf("health handler service is not of expected type")
	}
	return handler, nil
}

// InitializeServices initializes all core services with proper dependencies
func (c *Container) InitializeServices(datastoreClient *datastore.Client, hnClient *hn.Client, cacheManager *cache.CacheManager, settings Settings, logger *logrus.Logger) error {
	// Register core services
	c.RegisterSingleton("logger", logger)
	c.RegisterSingleton("datastore", datastoreClient)
	c.RegisterSingleton("cache", cacheManager)
	c.RegisterSingleton("hn_client", hnClient)

	c.mu.Lock()
	c.logger = logger
	c.datastoreClient = datastoreClient
	c.mu.Unlock()

	// Assemble the stores and the ingestion pipeline
	storyStore := store.NewStoryStore(datastoreClient, logger)
	backlogStore := store.NewBacklogStore(datastoreClient, logger)
	c.RegisterSingleton("story_store", storyStore)
	c.RegisterSingleton("backlog_store", backlogStore)

	processor := pipeline.NewProcessor(hnClient, storyStore, settings.Pipeline.RetentionWindow, logger)
	cutoffFinder := pipeline.NewCutoffFinder(hnClient, settings.Pipeline, logger)
	syncer := pipeline.NewSyncer(hnClient, storyStore, processor, settings.Pipeline.BatchSize, logger)
	consumer := pipeline.NewConsumer(backlogStore, processor, logger)
	pruner := pipeline.NewPruner(storyStore, logger)

	orchestrator := pipeline.NewOrchestrator(
		hnClient,
		cutoffFinder,
		syncer,
		consumer,
		pruner,
		storyStore,
		backlogStore,
		settings.Pipeline,
		logger,
	)
	c.RegisterSingleton("orchestrator", orchestrator)

	// Reload jobs run the orchestrator in the background
	reloadProcessor := handlers.NewReloadProcessor(
		settings.ReloadWorkers,
		settings.ReloadQueueSize,
		settings.ReloadBackpressure,
		settings.ReloadRejectThreshold,
		settings.ReloadWaitTimeout,
		logger,
		orchestrator,
		backlogStore,
		cacheManager,
	)
	c.RegisterSingleton("reload_processor", reloadProcessor)

	// Register handler factories that depend on other services
	c.RegisterFactory("handler", func() (interface{}, error) {
		return handlers.NewHandler(
			storyStore,
			backlogStore,
			hnClient,
			reloadProcessor,
			cacheManager,
			settings.Pipeline.RetentionWindow,
			settings.CommentsLimit,
			logger,
		), nil
	})
	c.RegisterFactory("health_handler", func() (interface{}, error) {
		return health.NewHandler(datastoreClient, logger), nil
	})

	return nil
}

// Close gracefully closes all service connections
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.datastoreClient != nil {
		if err := c.datastoreClient.Close(); err != nil {
			return fmt.Errorf("failed to close datastore client: %v", err)
		}
	}

	return nil
}
