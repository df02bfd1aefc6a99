// Package types contains shared types used across the HN mirror backend
package types

import (
	"time"
)

// ReloadJobStatus represents the status of an async full reload job
type ReloadJobStatus struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"` // pending, processing, completed, failed
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	BatchCount  int        `json:"batch_count,omitempty"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
}
