package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/catalogsync/backend/internal/domain/sync"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncStateRepository implements sync.SyncStateRepository using GORM
type GormSyncStateRepository struct {
	db *gorm.DB
}

// NewGormSyncStateRepository creates a new GormSyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) *GormSyncStateRepository {
	return &GormSyncStateRepository{db: db}
}

// Get returns the watermark for the pair, or sync.ErrSyncStateNotFound
func (r *GormSyncStateRepository) Get(ctx context.Context, tenantID uuid.UUID, syncType sync.SyncType) (*sync.SyncState, error) {
	var model models.SyncStateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sync_type = ?", tenantID, syncType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrSyncStateNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the watermark keyed by (tenant, syncType)
func (r *GormSyncStateRepository) Save(ctx context.Context, state *sync.SyncState) error {
	model := models.SyncStateModelFromDomain(state)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "sync_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_sync_at", "last_successful_sync_at", "updated_at",
			}),
		}).
		Create(model).Error
}

// Delete removes the watermark, resetting the delta cutoff
func (r *GormSyncStateRepository) Delete(ctx context.Context, tenantID uuid.UUID, syncType sync.SyncType) error {
	result := r.db.WithContext(ctx).
		Delete(&models.SyncStateModel{}, "tenant_id = ? AND sync_type = ?", tenantID, syncType)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrSyncStateNotFound
	}
	return nil
}

// Ensure GormSyncStateRepository implements sync.SyncStateRepository
var _ sync.SyncStateRepository = (*GormSyncStateRepository)(nil)
