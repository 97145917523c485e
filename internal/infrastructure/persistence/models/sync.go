package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for the SyncJob domain entity.
type SyncJobModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID          `gorm:"type:uuid;not null;index:idx_sync_jobs_tenant_type,priority:1"`
	SyncType    sync.SyncType      `gorm:"type:varchar(20);not null;index:idx_sync_jobs_tenant_type,priority:2"`
	Direction   sync.SyncDirection `gorm:"type:varchar(20);not null"`
	Status      sync.JobStatus     `gorm:"type:varchar(20);not null;index"`
	ScheduleID  *uuid.UUID         `gorm:"type:uuid;index"`
	Error       string             `gorm:"type:text"`
	StartedAt   *time.Time
	CompletedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob entity.
func (m *SyncJobModel) ToDomain() *sync.SyncJob {
	return &sync.SyncJob{
		ID:          m.ID,
		TenantID:    m.TenantID,
		SyncType:    m.SyncType,
		Direction:   m.Direction,
		Status:      m.Status,
		ScheduleID:  m.ScheduleID,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncJob entity.
func (m *SyncJobModel) FromDomain(j *sync.SyncJob) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.SyncType = j.SyncType
	m.Direction = j.Direction
	m.Status = j.Status
	m.ScheduleID = j.ScheduleID
	m.Error = j.Error
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// SyncJobModelFromDomain creates a new persistence model from a domain SyncJob entity.
func SyncJobModelFromDomain(j *sync.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}

// SyncScheduleModel is the persistence model for the SyncSchedule domain entity.
type SyncScheduleModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_sync_schedules_tenant_type_dir,priority:1"`
	SyncType       sync.SyncType      `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_schedules_tenant_type_dir,priority:2"`
	Direction      sync.SyncDirection `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_schedules_tenant_type_dir,priority:3"`
	CronExpression string             `gorm:"type:varchar(100);not null"`
	Priority       int                `gorm:"not null;default:0"`
	Enabled        bool               `gorm:"not null;index"`
	LastRunAt      *time.Time
	NextRunAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncScheduleModel) TableName() string {
	return "sync_schedules"
}

// ToDomain converts the persistence model to a domain SyncSchedule entity.
func (m *SyncScheduleModel) ToDomain() *sync.SyncSchedule {
	return &sync.SyncSchedule{
		ID:             m.ID,
		TenantID:       m.TenantID,
		SyncType:       m.SyncType,
		Direction:      m.Direction,
		CronExpression: m.CronExpression,
		Priority:       m.Priority,
		Enabled:        m.Enabled,
		LastRunAt:      m.LastRunAt,
		NextRunAt:      m.NextRunAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncSchedule entity.
func (m *SyncScheduleModel) FromDomain(s *sync.SyncSchedule) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.SyncType = s.SyncType
	m.Direction = s.Direction
	m.CronExpression = s.CronExpression
	m.Priority = s.Priority
	m.Enabled = s.Enabled
	m.LastRunAt = s.LastRunAt
	m.NextRunAt = s.NextRunAt
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// SyncScheduleModelFromDomain creates a new persistence model from a domain SyncSchedule entity.
func SyncScheduleModelFromDomain(s *sync.SyncSchedule) *SyncScheduleModel {
	m := &SyncScheduleModel{}
	m.FromDomain(s)
	return m
}

// SyncStateModel is the persistence model for the SyncState watermark. The
// composite primary key keeps exactly one row per (tenant, syncType).
type SyncStateModel struct {
	TenantID             uuid.UUID     `gorm:"type:uuid;primary_key"`
	SyncType             sync.SyncType `gorm:"type:varchar(20);primary_key"`
	LastSyncAt           *time.Time
	LastSuccessfulSyncAt *time.Time
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncStateModel) TableName() string {
	return "sync_states"
}

// ToDomain converts the persistence model to a domain SyncState.
func (m *SyncStateModel) ToDomain() *sync.SyncState {
	return &sync.SyncState{
		TenantID:             m.TenantID,
		SyncType:             m.SyncType,
		LastSyncAt:           m.LastSyncAt,
		LastSuccessfulSyncAt: m.LastSuccessfulSyncAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncState.
func (m *SyncStateModel) FromDomain(s *sync.SyncState) {
	m.TenantID = s.TenantID
	m.SyncType = s.SyncType
	m.LastSyncAt = s.LastSyncAt
	m.LastSuccessfulSyncAt = s.LastSuccessfulSyncAt
	m.UpdatedAt = s.UpdatedAt
}

// SyncStateModelFromDomain creates a new persistence model from a domain SyncState.
func SyncStateModelFromDomain(s *sync.SyncState) *SyncStateModel {
	m := &SyncStateModel{}
	m.FromDomain(s)
	return m
}
