package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormProductMappingStore implements mapping.ProductMappingStore using GORM
type GormProductMappingStore struct {
	db *gorm.DB
}

// NewGormProductMappingStore creates a new GormProductMappingStore
func NewGormProductMappingStore(db *gorm.DB) *GormProductMappingStore {
	return &GormProductMappingStore{db: db}
}

// GetByVariationIDs returns existing mappings keyed by source variation id
func (s *GormProductMappingStore) GetByVariationIDs(ctx context.Context, tenantID uuid.UUID, variationIDs []string) (map[string]mapping.ProductMapping, error) {
	result := make(map[string]mapping.ProductMapping, len(variationIDs))
	if len(variationIDs) == 0 {
		return result, nil
	}

	var mappingModels []models.ProductMappingModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND source_variation_id IN ?", tenantID, variationIDs).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	for _, model := range mappingModels {
		result[model.SourceVariationID] = model.ToDomain()
	}
	return result, nil
}

// UpsertBatch writes mappings keyed by (tenant, sourceVariationId). AUTO
// writes never overwrite a MANUAL row's sink ids; only last_synced_at moves.
func (s *GormProductMappingStore) UpsertBatch(ctx context.Context, mappings []mapping.ProductMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	mappingModels := make([]models.ProductMappingModel, len(mappings))
	for i := range mappings {
		mappingModels[i].FromDomain(&mappings[i])
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "source_variation_id"}},
			DoUpdates: manualGuardedAssignments(models.ProductMappingModel{}.TableName(),
				"source_item_id", "sink_product_id", "is_parent", "sink_parent_id", "mapping_type", "last_action"),
		}).
		Create(&mappingModels).Error
}

// Delete removes one mapping
func (s *GormProductMappingStore) Delete(ctx context.Context, tenantID uuid.UUID, variationID string) error {
	result := s.db.WithContext(ctx).
		Delete(&models.ProductMappingModel{}, "tenant_id = ? AND source_variation_id = ?", tenantID, variationID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mapping.ErrMappingNotFound
	}
	return nil
}

// List pages through a tenant's product mappings ordered by item then
// variation, parents before their children
func (s *GormProductMappingStore) List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]mapping.ProductMapping, error) {
	var mappingModels []models.ProductMappingModel
	query := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("source_item_id ASC, is_parent DESC, source_variation_id ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]mapping.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = model.ToDomain()
	}
	return mappings, nil
}

// Count returns the number of product mapping rows for a tenant
func (s *GormProductMappingStore) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.ProductMappingModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByType counts rows by mapping type
func (s *GormProductMappingStore) CountByType(ctx context.Context, tenantID uuid.UUID, mappingType mapping.Type) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.ProductMappingModel{}).
		Where("tenant_id = ? AND mapping_type = ?", tenantID, mappingType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormProductMappingStore implements mapping.ProductMappingStore
var _ mapping.ProductMappingStore = (*GormProductMappingStore)(nil)
