/*
Package config provides configuration management for the HN mirror backend.

This package separates configuration concerns from business logic and provides
a centralized way to manage application configuration including the Datastore
connection, the Hacker News API client, pipeline tuning, and caching.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/cleanhn/hn-mirror-backend/cache"
	"github.com/cleanhn/hn-mirror-backend/container"
	"github.com/cleanhn/hn-mirror-backend/hn"
	"github.com/cleanhn/hn-mirror-backend/middleware"
	"github.com/cleanhn/hn-mirror-backend/pipeline"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	ProjectID  string
	HNBaseURL  string
	LogLevel   string
	ServerPort string
	// Rate limiting configuration
	RateLimitRequestsPerMinute float64
	RateLimitBurst             int
	// Enhanced CORS configuration
	CORSConfig CORSConfig
	// Cleanup intervals
	ClientCleanupInterval time.Duration
	// Ingestion pipeline settings
	PipelineConfig PipelineConfig
}

// PipelineConfig holds pipeline and fetch tuning
type PipelineConfig struct {
	// Batch and backlog sizing
	BatchSize     int `json:"batch_size"`
	BacklogBudget int `json:"backlog_budget"`
	// Retention horizon for mirrored stories
	RetentionWindow time.Duration `json:"retention_window"`
	// Cutoff search tuning
	InitialJump       int64 `json:"initial_jump"`
	ProbeFailureLimit int   `json:"probe_failure_limit"`
	// HN API client settings
	FetchRetries    int           `json:"fetch_retries"`
	FetchBackoff    time.Duration `json:"fetch_backoff"`
	FetchRatePerSec float64       `json:"fetch_rate_per_sec"`
	FetchBurst      int           `json:"fetch_burst"`
	FetchTimeout    time.Duration `json:"fetch_timeout"`
	// Scheduled run cadence
	SyncInterval time.Duration `json:"sync_interval"`
	// Read endpoint settings
	CommentsLimit   int           `json:"comments_limit"`
	StoriesCacheTTL time.Duration `json:"stories_cache_ttl"`
	StatsCacheTTL   time.Duration `json:"stats_cache_ttl"`
	// Reload job processor settings
	ReloadWorkers         int           `json:"reload_workers"`
	ReloadQueueSize       int           `json:"reload_queue_size"`
	ReloadBackpressure    bool          `json:"reload_backpressure"`
	ReloadRejectThreshold float64       `json:"reload_reject_threshold"`
	ReloadWaitTimeout     time.Duration `json:"reload_wait_timeout"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	// Environment-specific settings
	Environment string
	// Allowed origins based on environment
	DevelopmentOrigins []string
	StagingOrigins     []string
	ProductionOrigins  []string
	// Additional CORS settings
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	// Dynamic origin validation
	AllowSubdomains bool
	AllowedDomains  []string
}

// Services holds all service dependencies
type Services struct {
	Container *container.Container
	Logger    *logrus.Logger
}

// AppConfig holds both configuration and services
type AppConfig struct {
	Config   *Config
	Services *Services
}

// NewConfig creates a new configuration instance
func NewConfig() *Config {
	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		ProjectID:  getEnv("PROJECT_ID", ""),
		HNBaseURL:  getEnv("HN_BASE_URL", hn.DefaultBaseURL),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		// Rate limiting defaults (30 requests per minute, burst of 10)
		RateLimitRequestsPerMinute: getEnvFloat("RATE_LIMIT_RPM", 30.0),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 10),
		// Enhanced CORS configuration
		CORSConfig: CORSConfig{
			Environment: environment,
			DevelopmentOrigins: getEnvSlice("DEV_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:3001",
				"http://localhost:8080",
			}),
			StagingOrigins: getEnvSlice("STAGING_CORS_ORIGINS", []string{
				"https://staging.cleanhn.com",
			}),
			ProductionOrigins: getEnvSlice("PROD_CORS_ORIGINS", []string{
				"https://cleanhn.com",
				"https://www.cleanhn.com",
			}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{
				"GET", "POST", "OPTIONS",
			}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{
				"Content-Type", "Authorization", "X-Requested-With",
				"X-Request-ID", "Accept", "Origin", "Cache-Control",
			}),
			ExposedHeaders: getEnvSlice("CORS_EXPOSED_HEADERS", []string{
				"X-Request-ID", "X-Cache",
			}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400), // 24 hours
			AllowSubdomains:  getEnvBool("CORS_ALLOW_SUBDOMAINS", false),
			AllowedDomains:   getEnvSlice("CORS_ALLOWED_DOMAINS", []string{}),
		},
		// Cleanup intervals
		ClientCleanupInterval: getEnvDuration("CLIENT_CLEANUP_INTERVAL", 1*time.Minute),
		// Ingestion pipeline settings
		PipelineConfig: PipelineConfig{
			BatchSize:         getEnvInt("BATCH_SIZE", 400),
			BacklogBudget:     getEnvInt("BACKLOG_BUDGET", 30),
			RetentionWindow:   getEnvDuration("RETENTION_WINDOW", 30*24*time.Hour),
			InitialJump:       int64(getEnvInt("CUTOFF_INITIAL_JUMP", 100000)),
			ProbeFailureLimit: getEnvInt("CUTOFF_PROBE_FAILURE_LIMIT", 10),
			FetchRetries:      getEnvInt("FETCH_RETRIES", 3),
			FetchBackoff:      getEnvDuration("FETCH_BACKOFF", 300*time.Millisecond),
			FetchRatePerSec:   getEnvFloat("FETCH_RATE_PER_SEC", 50.0),
			FetchBurst:        getEnvInt("FETCH_BURST", 100),
			FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			SyncInterval:      getEnvDuration("SYNC_INTERVAL", 30*time.Minute),
			CommentsLimit:     getEnvInt("COMMENTS_LIMIT", 5),
			StoriesCacheTTL:   getEnvDuration("STORIES_CACHE_TTL", 5*time.Minute),
			StatsCacheTTL:     getEnvDuration("STATS_CACHE_TTL", 1*time.Minute),
			// Full reloads are serialized, so a single worker is enough
			ReloadWorkers:         getEnvInt("RELOAD_WORKERS", 1),
			ReloadQueueSize:       getEnvInt("RELOAD_QUEUE_SIZE", 4),
			ReloadBackpressure:    getEnvBool("RELOAD_BACKPRESSURE", true),
			ReloadRejectThreshold: getEnvFloat("RELOAD_REJECT_THRESHOLD", 0.8),
			ReloadWaitTimeout:     getEnvDuration("RELOAD_WAIT_TIMEOUT", 5*time.Second),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable is required")
	}
	if c.PipelineConfig.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.PipelineConfig.BacklogBudget <= 0 {
		return fmt.Errorf("BACKLOG_BUDGET must be positive")
	}
	if c.PipelineConfig.RetentionWindow <= 0 {
		return fmt.Errorf("RETENTION_WINDOW must be positive")
	}
	return nil
}

// PipelineSettings converts the configured tuning into pipeline.Config
func (c *Config) PipelineSettings() pipeline.Config {
	return pipeline.Config{
		BatchSize:         c.PipelineConfig.BatchSize,
		BacklogBudget:     c.PipelineConfig.BacklogBudget,
		RetentionWindow:   c.PipelineConfig.RetentionWindow,
		InitialJump:       c.PipelineConfig.InitialJump,
		ProbeFailureLimit: c.PipelineConfig.ProbeFailureLimit,
	}
}

// NewServices creates and initializes all service dependencies using DI container
func NewServices(config *Config) (*Services, error) {
	logger := middleware.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize Datastore client
	datastoreClient, err := datastore.NewClient(context.Background(), config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %v", err)
	}
	logger.WithField("project_id", config.ProjectID).Info("Datastore client initialized successfully")

	// Initialize the Hacker News API client
	hnClient := hn.NewClient(hn.ClientOptions{
		BaseURL:           config.HNBaseURL,
		MaxRetries:        config.PipelineConfig.FetchRetries,
		RetryBackoff:      config.PipelineConfig.FetchBackoff,
		RequestsPerSecond: config.PipelineConfig.FetchRatePerSec,
		RequestBurst:      config.PipelineConfig.FetchBurst,
		Timeout:           config.PipelineConfig.FetchTimeout,
	}, logger)
	logger.WithField("base_url", config.HNBaseURL).Info("Hacker News client initialized successfully")

	// Initialize cache
	inMemoryCache := cache.NewInMemoryCache(30 * time.Minute)
	cacheManager := cache.NewCacheManager(
		inMemoryCache,
		logger,
		config.PipelineConfig.StoriesCacheTTL,
		config.PipelineConfig.StatsCacheTTL,
	)
	logger.Info("Cache manager initialized successfully")

	// Initialize dependency injection container
	diContainer := container.NewContainer()
	settings := container.Settings{
		Pipeline:              config.PipelineSettings(),
		CommentsLimit:         config.PipelineConfig.CommentsLimit,
		ReloadWorkers:         config.PipelineConfig.ReloadWorkers,
		ReloadQueueSize:       config.PipelineConfig.ReloadQueueSize,
		ReloadBackpressure:    config.PipelineConfig.ReloadBackpressure,
		ReloadRejectThreshold: config.PipelineConfig.ReloadRejectThreshold,
		ReloadWaitTimeout:     config.PipelineConfig.ReloadWaitTimeout,
	}
	if err := diContainer.InitializeServices(datastoreClient, hnClient, cacheManager, settings, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize dependency container: %v", err)
	}

	return &Services{
		Container: diContainer,
		Logger:    logger,
	}, nil
}

// NewAppConfig creates a new application configuration with all dependencies
func NewAppConfig() (*AppConfig, error) {
	config := NewConfig()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	services, err := NewServices(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %v", err)
	}

	return &AppConfig{
		Config:   config,
		Services: services,
	}, nil
}

// Close gracefully closes all service connections
func (s *Services) Close() error {
	if s.Container != nil {
		return s.Container.Close()
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as time.Duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSlice gets an environment variable as a string slice with a default value
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
