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

// GormSyncScheduleRepository implements sync.SyncScheduleRepository using GORM
type GormSyncScheduleRepository struct {
	db *gorm.DB
}

// NewGormSyncScheduleRepository creates a new GormSyncScheduleRepository
func NewGormSyncScheduleRepository(db *gorm.DB) *GormSyncScheduleRepository {
	return &GormSyncScheduleRepository{db: db}
}

// Save creates or updates a schedule
func (r *GormSyncScheduleRepository) Save(ctx context.Context, schedule *sync.SyncSchedule) error {
	model := models.SyncScheduleModelFromDomain(schedule)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a schedule by its ID
func (r *GormSyncScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncSchedule, error) {
	var model models.SyncScheduleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrScheduleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists all schedules for a tenant
func (r *GormSyncScheduleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]sync.SyncSchedule, error) {
	var scheduleModels []models.SyncScheduleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("sync_type ASC").
		Find(&scheduleModels).Error; err != nil {
		return nil, err
	}
	return toDomainSchedules(scheduleModels), nil
}

// FindByTenantTypeDirection finds the unique schedule for the triple
func (r *GormSyncScheduleRepository) FindByTenantTypeDirection(ctx context.Context, tenantID uuid.UUID, syncType sync.SyncType, direction sync.SyncDirection) (*sync.SyncSchedule, error) {
	var model models.SyncScheduleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sync_type = ? AND direction = ?", tenantID, syncType, direction).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrScheduleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns enabled schedules of active tenants that are due at now,
// ordered by priority descending then next run ascending. A null next_run_at
// counts as due so fresh schedules fire on the first cycle.
func (r *GormSyncScheduleRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]sync.SyncSchedule, error) {
	var scheduleModels []models.SyncScheduleModel
	query := r.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = sync_schedules.tenant_id AND tenants.active = ?", true).
		Where("sync_schedules.enabled = ?", true).
		Where("sync_schedules.next_run_at IS NULL OR sync_schedules.next_run_at <= ?", now).
		Order("sync_schedules.priority DESC, sync_schedules.next_run_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&scheduleModels).Error; err != nil {
		return nil, err
	}
	return toDomainSchedules(scheduleModels), nil
}

// Delete removes a schedule
func (r *GormSyncScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SyncScheduleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrScheduleNotFound
	}
	return nil
}

func toDomainSchedules(scheduleModels []models.SyncScheduleModel) []sync.SyncSchedule {
	schedules := make([]sync.SyncSchedule, len(scheduleModels))
	for i, model := range scheduleModels {
		schedules[i] = *model.ToDomain()
	}
	return schedules
}

// Ensure GormSyncScheduleRepository implements sync.SyncScheduleRepository
var _ sync.SyncScheduleRepository = (*GormSyncScheduleRepository)(nil)
