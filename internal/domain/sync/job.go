package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncJob Entity
// ---------------------------------------------------------------------------

// SyncJob represents one unit of sync work for a tenant. Jobs are persisted so
// the scheduler's in-flight check and the cleanup loop can reason about them;
// the queue only ever sees the job id inside the payload.
//
// Best-effort invariant: at most one pending/processing job per
// (tenant, syncType). The check is not transactional, see the scheduler.
type SyncJob struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SyncType    SyncType
	Direction   SyncDirection
	Status      JobStatus
	ScheduleID  *uuid.UUID
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSyncJob creates a pending job for a tenant and sync type.
func NewSyncJob(tenantID uuid.UUID, syncType SyncType, direction SyncDirection, scheduleID *uuid.UUID) (*SyncJob, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}

	now := time.Now()
	return &SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SyncType:   syncType,
		Direction:  direction,
		Status:     JobStatusPending,
		ScheduleID: scheduleID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start marks the job as processing.
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.Error = ""
	j.UpdatedAt = now
}

// Complete marks the job as completed.
func (j *SyncJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail marks the job as failed with the given reason.
func (j *SyncJob) Fail(reason string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = reason
	j.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// SyncJobRepository Interface
// ---------------------------------------------------------------------------

// SyncJobRepository persists sync jobs.
type SyncJobRepository interface {
	// Save creates or updates a job.
	Save(ctx context.Context, job *SyncJob) error

	// FindByID finds a job by id.
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindByTenant lists recent jobs for a tenant, newest first.
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]SyncJob, error)

	// ExistsActive reports whether a pending or processing job exists for the
	// given tenant and sync type.
	ExistsActive(ctx context.Context, tenantID uuid.UUID, syncType SyncType) (bool, error)

	// DeleteTerminalBefore deletes jobs in the given status completed before
	// the cutoff and returns how many rows were removed.
	DeleteTerminalBefore(ctx context.Context, status JobStatus, cutoff time.Time) (int64, error)
}
