package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catalogsync/backend/internal/domain/sync"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements sync.SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save creates or updates a job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *sync.SyncJob) error {
	model := models.SyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists recent jobs for a tenant, newest first
func (r *GormSyncJobRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]sync.SyncJob, error) {
	var jobModels []models.SyncJobModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]sync.SyncJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

// ExistsActive reports whether a pending or processing job exists for the
// given tenant and sync type
func (r *GormSyncJobRepository) ExistsActive(ctx context.Context, tenantID uuid.UUID, syncType sync.SyncType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("tenant_id = ? AND sync_type = ? AND status IN ?",
			tenantID, syncType, []sync.JobStatus{sync.JobStatusPending, sync.JobStatusProcessing}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteTerminalBefore deletes jobs in the given status completed before the
// cutoff and returns the number of rows removed
func (r *GormSyncJobRepository) DeleteTerminalBefore(ctx context.Context, status sync.JobStatus, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", status, cutoff).
		Delete(&models.SyncJobModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormSyncJobRepository implements sync.SyncJobRepository
var _ sync.SyncJobRepository = (*GormSyncJobRepository)(nil)
