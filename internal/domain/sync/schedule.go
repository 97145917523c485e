package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncSchedule Entity
// ---------------------------------------------------------------------------

// SyncSchedule describes a recurring sync for a tenant. Unique per
// (tenant, syncType, direction).
type SyncSchedule struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	SyncType       SyncType
	Direction      SyncDirection
	CronExpression string
	Priority       int
	Enabled        bool
	LastRunAt      *time.Time
	NextRunAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSyncSchedule creates an enabled schedule.
func NewSyncSchedule(tenantID uuid.UUID, syncType SyncType, direction SyncDirection, cronExpr string, priority int) (*SyncSchedule, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	if cronExpr == "" {
		return nil, ErrInvalidCronExpression
	}

	now := time.Now()
	return &SyncSchedule{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SyncType:       syncType,
		Direction:      direction,
		CronExpression: cronExpr,
		Priority:       priority,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Enable enables the schedule.
func (s *SyncSchedule) Enable() {
	s.Enabled = true
	s.UpdatedAt = time.Now()
}

// Disable disables the schedule. NextRunAt is left in place so re-enabling
// resumes without recomputation.
func (s *SyncSchedule) Disable() {
	s.Enabled = false
	s.UpdatedAt = time.Now()
}

// MarkRun stamps the last run and the computed next run.
func (s *SyncSchedule) MarkRun(ranAt, nextRunAt time.Time) {
	s.LastRunAt = &ranAt
	s.NextRunAt = &nextRunAt
	s.UpdatedAt = time.Now()
}

// AdvanceNextRun moves only the next-run pointer; used when a due schedule is
// skipped because a job is already in flight.
func (s *SyncSchedule) AdvanceNextRun(nextRunAt time.Time) {
	s.NextRunAt = &nextRunAt
	s.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// SyncScheduleRepository Interface
// ---------------------------------------------------------------------------

// SyncScheduleRepository persists sync schedules.
type SyncScheduleRepository interface {
	// Save creates or updates a schedule.
	Save(ctx context.Context, schedule *SyncSchedule) error

	// FindByID finds a schedule by id.
	FindByID(ctx context.Context, id uuid.UUID) (*SyncSchedule, error)

	// FindByTenant lists all schedules for a tenant.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]SyncSchedule, error)

	// FindByTenantTypeDirection finds the unique schedule for the triple.
	FindByTenantTypeDirection(ctx context.Context, tenantID uuid.UUID, syncType SyncType, direction SyncDirection) (*SyncSchedule, error)

	// FindDue returns enabled schedules of active tenants whose nextRunAt is
	// null or not after now, ordered by priority descending then nextRunAt
	// ascending, capped at limit.
	FindDue(ctx context.Context, now time.Time, limit int) ([]SyncSchedule, error)

	// Delete removes a schedule.
	Delete(ctx context.Context, id uuid.UUID) error
}
