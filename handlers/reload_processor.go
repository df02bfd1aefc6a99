package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleanhn/hn-mirror-backend/monitoring"
	"github.com/cleanhn/hn-mirror-backend/types"
	"github.com/sirupsen/logrus"
)

// ReloadRunner runs a full mirror reload
type ReloadRunner interface {
	RunFullReload(ctx context.Context) error
}

// ReloadJob represents a background full reload of the mirror
type ReloadJob struct {
	ID        string
	RequestID string
	CreatedAt time.Time
}

// ReloadJobResult represents the result of a reload job
type ReloadJobResult struct {
	JobID       string
	Error       error
	BatchCount  int
	ProcessedAt time.Time
	Duration    time.Duration
}

// ReloadProcessor handles background full reloads of the story mirror
type ReloadProcessor struct {
	jobs        chan ReloadJob
	results     chan ReloadJobResult
	quit        chan bool
	wg          sync.WaitGroup
	jobStatus   map[string]*types.ReloadJobStatus
	statusMutex sync.RWMutex
	logger      *logrus.Logger
	runner      ReloadRunner
	backlog     BacklogReaderInterface
	cache       CacheManagerInterface
	// Backpressure configuration
	backpressureEnabled bool
	rejectThreshold     float64
	waitTimeout         time.Duration
	queueSize           int
}

// NewReloadProcessor creates a new reload processor with the given parameters
func NewReloadProcessor(workers, queueSize int, backpressureEnabled bool, rejectThreshold float64, waitTimeout time.Duration, logger *logrus.Logger, runner ReloadRunner, backlog BacklogReaderInterface, cache CacheManagerInterface) *ReloadProcessor {
	processor := &ReloadProcessor{
		jobs:                make(chan ReloadJob, queueSize),
		results:             make(chan ReloadJobResult, queueSize),
		quit:                make(chan bool),
		jobStatus:           make(map[string]*types.ReloadJobStatus),
		logger:              logger,
		runner:              runner,
		backlog:             backlog,
		cache:               cache,
		backpressureEnabled: backpressureEnabled,
		rejectThreshold:     rejectThreshold,
		waitTimeout:         waitTimeout,
		queueSize:           queueSize,
	}

	// Update active workers metric
	monitoring.UpdateActiveWorkers(workers)

	// Start workers
	for i := 0; i < workers; i++ {
		processor.wg.Add(1)
		go processor.worker(i)
	}

	// Start result processor
	processor.wg.Add(1)
	go processor.resultProcessor()

	// Start cleanup goroutine
	go processor.cleanupOldJobs()

	return processor
}

// SubmitJob submits a new reload job for async processing with backpressure
func (rp *ReloadProcessor) SubmitJob(requestID string) (string, error) {
	jobID := fmt.Sprintf("reload_%d_%s", time.Now().UnixNano(), requestID)

	job := ReloadJob{
		ID:        jobID,
		RequestID: requestID,
		CreatedAt: time.Now(),
	}

	// Initialize job status
	rp.statusMutex.Lock()
	rp.jobStatus[jobID] = &types.ReloadJobStatus{
		JobID:     jobID,
		Status:    "pending",
		CreatedAt: job.CreatedAt,
	}
	rp.statusMutex.Unlock()

	// Apply backpressure if enabled
	if rp.backpressureEnabled {
		currentLoad := float64(len(rp.jobs)) / float64(rp.queueSize)
		if currentLoad >= rp.rejectThreshold {
			rp.logger.WithFields(logrus.Fields{
				"current_load":     fmt.Sprintf("%.2f", currentLoad),
				"reject_threshold": fmt.Sprintf("%.2f", rp.rejectThreshold),
				"queue_size":       len(rp.jobs),
				"max_queue_size":   rp.queueSize,
			}).Warn("Rejecting reload job due to backpressure - queue near capacity")
			return "", fmt.Errorf("reload processor queue under backpressure (load: %.2f%%)", currentLoad*100)
		}
	}

	select {
	case rp.jobs <- job:
		rp.logger.WithFields(logrus.Fields{
			"job_id":     jobID,
			"request_id": requestID,
		}).Info("Reload job submitted for async processing")
		return jobID, nil
	case <-time.After(rp.waitTimeout):
		rp.logger.WithFields(logrus.Fields{
			"wait_timeout":   rp.waitTimeout.String(),
			"queue_size":     len(rp.jobs),
			"max_queue_size": rp.queueSize,
		}).Warn("Reload job submission timed out due to queue pressure")
		return "", fmt.Errorf("reload processor queue timeout after %v", rp.waitTimeout)
	}
}

// GetJobStatus retrieves the status of a job
func (rp *ReloadProcessor) GetJobStatus(jobID string) (*types.ReloadJobStatus, bool) {
	rp.statusMutex.RLock()
	defer rp.statusMutex.RUnlock()

	status, exists := rp.jobStatus[jobID]
	return status, exists
}

// HasActiveJob reports whether a reload is currently queued or running.
// Reloads are serialized, so a second one would only redo the same reset.
func (rp *ReloadProcessor) HasActiveJob() bool {
	rp.statusMutex.RLock()
	defer rp.statusMutex.RUnlock()

	for _, jobStatus := range rp.jobStatus {
		if jobStatus.Status == "pending" || jobStatus.Status == "processing" {
			return true
		}
	}
	return false
}

// worker processes reload jobs in the background
func (rp *ReloadProcessor) worker(workerID int) {
	defer rp.wg.Done()

	rp.logger.WithField("worker_id", workerID).Info("Reload worker started")

	for {
		select {
		case job := <-rp.jobs:
			rp.processJob(workerID, job)
		case <-rp.quit:
			rp.logger.WithField("worker_id", workerID).Info("Reload worker stopping")
			return
		}
	}
}

// processJob runs a single full reload
func (rp *ReloadProcessor) processJob(workerID int, job ReloadJob) {
	startTime := time.Now()

	rp.markStarted(job.ID, startTime)

	rp.logger.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"job_id":     job.ID,
		"request_id": job.RequestID,
	}).Info("Processing reload job")

	err := rp.runner.RunFullReload(context.Background())
	if err != nil {
		rp.results <- ReloadJobResult{
			JobID:       job.ID,
			Error:       err,
			ProcessedAt: time.Now(),
			Duration:    time.Since(startTime),
		}
		return
	}

	// A fresh backlog replaces the mirror contents, so cached reads are stale
	if rp.cache != nil {
		if cacheErr := rp.cache.Invalidate(); cacheErr != nil {
			rp.logger.WithFields(logrus.Fields{
				"worker_id": workerID,
				"job_id":    job.ID,
				"error":     cacheErr.Error(),
			}).Warn("Failed to invalidate cache after reload")
		}
	}

	batchCount := 0
	if rp.backlog != nil {
		if total, pending, progErr := rp.backlog.Progress(context.Background()); progErr == nil {
			batchCount = total
			monitoring.UpdateBacklogPending(pending)
		}
	}

	rp.results <- ReloadJobResult{
		JobID:       job.ID,
		Error:       nil,
		BatchCount:  batchCount,
		ProcessedAt: time.Now(),
		Duration:    time.Since(startTime),
	}

	rp.logger.WithFields(logrus.Fields{
		"worker_id":   workerID,
		"job_id":      job.ID,
		"batch_count": batchCount,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Reload job completed successfully")
}

// resultProcessor processes job results
func (rp *ReloadProcessor) resultProcessor() {
	defer rp.wg.Done()

	for {
		select {
		case result := <-rp.results:
			status := "completed"
			errorMsg := ""

			if result.Error != nil {
				status = "failed"
				errorMsg = result.Error.Error()
			}

			rp.updateJobStatus(result.JobID, status, errorMsg, result.BatchCount, result.Duration.Milliseconds())

			rp.logger.WithFields(logrus.Fields{
				"job_id":      result.JobID,
				"status":      status,
				"batch_count": result.BatchCount,
				"duration_ms": result.Duration.Milliseconds(),
			}).Info("Reload job result processed")
		case <-rp.quit:
			return
		}
	}
}

// markStarted transitions a job to the processing state
func (rp *ReloadProcessor) markStarted(jobID string, startTime time.Time) {
	rp.statusMutex.Lock()
	defer rp.statusMutex.Unlock()

	if jobStatus, exists := rp.jobStatus[jobID]; exists {
		jobStatus.Status = "processing"
		jobStatus.StartedAt = &startTime
	}
}

// updateJobStatus updates the terminal status of a job
func (rp *ReloadProcessor) updateJobStatus(jobID, status, errorMsg string, batchCount int, durationMs int64) {
	rp.statusMutex.Lock()
	defer rp.statusMutex.Unlock()

	if jobStatus, exists := rp.jobStatus[jobID]; exists {
		jobStatus.Status = status
		jobStatus.Error = errorMsg
		jobStatus.BatchCount = batchCount
		jobStatus.DurationMs = durationMs
		now := time.Now()
		jobStatus.CompletedAt = &now
	}
}

// cleanupOldJobs removes old job statuses
func (rp *ReloadProcessor) cleanupOldJobs() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rp.statusMutex.Lock()
		cutoff := time.Now().Add(-24 * time.Hour)
		removed := 0

		for jobID, jobStatus := range rp.jobStatus {
			if jobStatus.CreatedAt.Before(cutoff) {
				delete(rp.jobStatus, jobID)
				removed++
			}
		}

		rp.statusMutex.Unlock()

		if removed > 0 {
			rp.logger.WithField("removed_count", removed).Info("Cleaned up old reload job statuses")
		}
	}
}

// Stop gracefully shuts down the reload processor
func (rp *ReloadProcessor) Stop() {
	rp.logger.Info("Stopping reload processor")
	close(rp.quit)
	rp.wg.Wait()
	rp.logger.Info("Reload processor stopped")
}
