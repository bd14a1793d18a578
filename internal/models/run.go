package models

import (
	"fmt"
	"time"
)

// Sync run status values.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// SyncRun is a persisted record of one sync invocation.
//
// Implements [Model]. Counters reflect confirmed outcomes only; a run in
// progress has status "running" and stale counters until its final update.
type SyncRun struct {
	id               string
	sequence         int
	sourceScope      string
	dedupMode        string
	workers          int
	status           string
	itemsTotal       int
	itemsSucceeded   int
	itemsFailed      int
	itemsSkipped     int
	bytesTransferred int64
	errorMessage     string
	startedAt        time.Time
	completedAt      time.Time
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewSyncRun creates a queued SyncRun for the given scope and settings.
func NewSyncRun(sourceScope, dedupMode string, workers int) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sourceScope: sourceScope,
		dedupMode:   dedupMode,
		workers:     workers,
		status:      RunStatusQueued,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (r *SyncRun) ID() string { return r.id }
func (r *SyncRun) Sequence() int { return r.sequence }
func (r *SyncRun) SourceScope() string { return r.sourceScope }
func (r *SyncRun) DedupMode() string { return r.dedupMode }
func (r *SyncRun) Workers() int { return r.workers }
func (r *SyncRun) Status() string { return r.status }
func (r *SyncRun) ItemsTotal() int { return r.itemsTotal }
func (r *SyncRun) ItemsSucceeded() int { return r.itemsSucceeded }
func (r *SyncRun) ItemsFailed() int { return r.itemsFailed }
func (r *SyncRun) ItemsSkipped() int { return r.itemsSkipped }
func (r *SyncRun) BytesTransferred() int64 { return r.bytesTransferred }
func (r *SyncRun) ErrorMessage() string { return r.errorMessage }
func (r *SyncRun) StartedAt() time.Time { return r.startedAt }
func (r *SyncRun) CompletedAt() time.Time { return r.completedAt }
func (r *SyncRun) CreatedAt() time.Time { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time { return r.updatedAt }
func (r *SyncRun) DeletedAt() *time.Time { return r.deletedAt }

func (r *SyncRun) SetID(id string) { r.id = id }
func (r *SyncRun) SetSequence(seq int) { r.sequence = seq }
func (r *SyncRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *SyncRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time) { r.createdAt = t }

// Start marks the run as running.
func (r *SyncRun) Start(total int) {
	r.status = RunStatusRunning
	r.itemsTotal = total
	r.startedAt = time.Now()
}

// Complete records final counters and the terminal status.
func (r *SyncRun) Complete(succeeded, failed, skipped int, bytes int64, cancelled bool) {
	r.itemsSucceeded = succeeded
	r.itemsFailed = failed
	r.itemsSkipped = skipped
	r.bytesTransferred = bytes
	r.completedAt = time.Now()
	if cancelled {
		r.status = RunStatusCancelled
	} else {
		r.status = RunStatusCompleted
	}
}

// Fail marks the run as failed with a short cause string.
func (r *SyncRun) Fail(cause string) {
	r.status = RunStatusFailed
	r.errorMessage = cause
	r.completedAt = time.Now()
}

// Validate checks the run's data before persistence.
func (r *SyncRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("sync run ID is required")
	}
	if r.sourceScope == "" {
		return fmt.Errorf("sync run source scope is required")
	}
	switch r.status {
	case RunStatusQueued, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
	default:
		return fmt.Errorf("invalid sync run status: %s", r.status)
	}
	if r.workers <= 0 {
		return fmt.Errorf("sync run worker count must be positive")
	}
	return nil
}

// Hydrate restores a SyncRun from persisted column values.
// Only repositories should call this.
func (r *SyncRun) Hydrate(
	id string, sequence int,
	sourceScope, dedupMode string, workers int, status string,
	total, succeeded, failed, skipped int, bytes int64,
	errorMessage string,
	startedAt, completedAt, createdAt, updatedAt time.Time,
	deletedAt *time.Time,
) {
	r.id = id
	r.sequence = sequence
	r.sourceScope = sourceScope
	r.dedupMode = dedupMode
	r.workers = workers
	r.status = status
	r.itemsTotal = total
	r.itemsSucceeded = succeeded
	r.itemsFailed = failed
	r.itemsSkipped = skipped
	r.bytesTransferred = bytes
	r.errorMessage = errorMessage
	r.startedAt = startedAt
	r.completedAt = completedAt
	r.createdAt = createdAt
	r.updatedAt = updatedAt
	r.deletedAt = deletedAt
}
