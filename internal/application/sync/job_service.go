package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/tenant"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ConnectionSecrets is the plaintext credential set sealed into a tenant
// connection. Source connections carry username/password, sink connections
// client id/secret.
type ConnectionSecrets struct {
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
}

// SealConnectionSecrets encodes and seals a credential set for persistence.
func SealConnectionSecrets(box tenant.CredentialBox, secrets ConnectionSecrets) ([]byte, error) {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return nil, fmt.Errorf("encode connection secrets: %w", err)
	}
	return box.Seal(plaintext)
}

// openConnection unseals a connection's credentials into the payload form.
func openConnection(box tenant.CredentialBox, conn tenant.Connection) (syncdomain.Credentials, error) {
	plaintext, err := box.Open(conn.SealedCredentials)
	if err != nil {
		return syncdomain.Credentials{}, fmt.Errorf("open connection credentials: %w", err)
	}
	var secrets ConnectionSecrets
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return syncdomain.Credentials{}, fmt.Errorf("decode connection secrets: %w", err)
	}
	return syncdomain.Credentials{
		BaseURL:      conn.BaseURL,
		ClientID:     secrets.ClientID,
		ClientSecret: secrets.ClientSecret,
		Username:     secrets.Username,
		Password:     secrets.Password,
	}, nil
}

// ---------------------------------------------------------------------------
// JobService
// ---------------------------------------------------------------------------

// JobService creates sync jobs and enqueues their payloads. It serves both
// the scheduler (as its dispatcher) and the manual trigger entry point, and
// owns credential unsealing: sealed bytes never cross the queue boundary.
type JobService struct {
	jobs    syncdomain.SyncJobRepository
	tenants tenant.Repository
	queue   syncdomain.Queue
	box     tenant.CredentialBox
	logger  *zap.Logger
}

// NewJobService creates a new job service
func NewJobService(
	jobs syncdomain.SyncJobRepository,
	tenants tenant.Repository,
	queue syncdomain.Queue,
	box tenant.CredentialBox,
	logger *zap.Logger,
) *JobService {
	return &JobService{
		jobs:    jobs,
		tenants: tenants,
		queue:   queue,
		box:     box,
		logger:  logger,
	}
}

// Dispatch creates a persistent job for a tenant and enqueues its payload
// with unsealed credentials. A queue-level duplicate fails the job row and
// returns ErrDuplicateJob.
func (s *JobService) Dispatch(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType, direction syncdomain.SyncDirection, scheduleID *uuid.UUID, priority int) (*syncdomain.SyncJob, error) {
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, syncdomain.NewValidationError("tenant is inactive", tenant.ErrTenantInactive)
	}

	source, err := openConnection(s.box, t.Source)
	if err != nil {
		return nil, err
	}
	sink, err := openConnection(s.box, t.Sink)
	if err != nil {
		return nil, err
	}

	job, err := syncdomain.NewSyncJob(tenantID, syncType, direction, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	payload := &syncdomain.JobPayload{
		JobID:      job.ID,
		TenantID:   tenantID,
		SyncType:   syncType,
		Direction:  direction,
		ScheduleID: scheduleID,
		Priority:   priority,
		Source:     source,
		Sink:       sink,
	}

	if err := s.queue.Enqueue(ctx, payload); err != nil {
		// The job row exists but nothing will pick it up; close it out so
		// the in-flight check does not block the next occurrence.
		job.Fail("enqueue failed: " + err.Error())
		if saveErr := s.jobs.Save(ctx, job); saveErr != nil {
			s.logger.Error("Failed to mark unenqueued job failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, err
	}

	s.logger.Info("Sync job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("sync_type", string(syncType)),
		zap.Int("priority", priority),
	)
	return job, nil
}

// TriggerManual dispatches an on-demand sync. The in-flight check mirrors the
// scheduler's; the queue's job-id dedup backstops the race between the two
// paths.
func (s *JobService) TriggerManual(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType, direction syncdomain.SyncDirection, priority int) (*syncdomain.SyncJob, error) {
	active, err := s.jobs.ExistsActive(ctx, tenantID, syncType)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, syncdomain.ErrDuplicateJob
	}
	return s.Dispatch(ctx, tenantID, syncType, direction, nil, priority)
}

// GetJob returns one job by id.
func (s *JobService) GetJob(ctx context.Context, jobID uuid.UUID) (*syncdomain.SyncJob, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// ListJobs returns a tenant's recent jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, tenantID uuid.UUID, limit int) ([]syncdomain.SyncJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.jobs.FindByTenant(ctx, tenantID, limit)
}
