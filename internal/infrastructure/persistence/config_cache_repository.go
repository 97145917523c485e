package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormConfigCacheRepository implements catalog.ConfigCacheRepository using GORM
type GormConfigCacheRepository struct {
	db *gorm.DB
}

// NewGormConfigCacheRepository creates a new GormConfigCacheRepository
func NewGormConfigCacheRepository(db *gorm.DB) *GormConfigCacheRepository {
	return &GormConfigCacheRepository{db: db}
}

// ReplaceKind atomically replaces all cached entities of one kind for a
// tenant. Delete plus bulk insert inside one transaction so readers never see
// a half-refreshed collection.
func (r *GormConfigCacheRepository) ReplaceKind(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind, entities []catalog.CachedEntity) error {
	entityModels := make([]models.CachedEntityModel, len(entities))
	for i := range entities {
		entityModels[i].FromDomain(&entities[i])
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Delete(&models.CachedEntityModel{}, "tenant_id = ? AND kind = ?", tenantID, kind).Error; err != nil {
			return err
		}
		if len(entityModels) == 0 {
			return nil
		}
		return tx.CreateInBatches(&entityModels, 200).Error
	})
}

// GetKind returns all cached entities of one kind for a tenant
func (r *GormConfigCacheRepository) GetKind(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind) ([]catalog.CachedEntity, error) {
	var entityModels []models.CachedEntityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Order("source_id ASC").
		Find(&entityModels).Error; err != nil {
		return nil, err
	}

	entities := make([]catalog.CachedEntity, len(entityModels))
	for i, model := range entityModels {
		entities[i] = model.ToDomain()
	}
	return entities, nil
}

// GetBySourceID returns one cached entity, or catalog.ErrEntityNotFound
func (r *GormConfigCacheRepository) GetBySourceID(ctx context.Context, tenantID uuid.UUID, kind catalog.CachedEntityKind, sourceID string) (*catalog.CachedEntity, error) {
	var model models.CachedEntityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND source_id = ?", tenantID, kind, sourceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrEntityNotFound
		}
		return nil, err
	}
	entity := model.ToDomain()
	return &entity, nil
}

// Ensure GormConfigCacheRepository implements catalog.ConfigCacheRepository
var _ catalog.ConfigCacheRepository = (*GormConfigCacheRepository)(nil)
