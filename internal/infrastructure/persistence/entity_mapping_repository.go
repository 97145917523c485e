package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormEntityMappingStore implements mapping.EntityMappingStore using GORM.
// One table per mapping kind, all sharing the EntityMappingModel shape;
// queries pick the table with models.EntityMappingTable.
type GormEntityMappingStore struct {
	db *gorm.DB
}

// NewGormEntityMappingStore creates a new GormEntityMappingStore
func NewGormEntityMappingStore(db *gorm.DB) *GormEntityMappingStore {
	return &GormEntityMappingStore{db: db}
}

// GetBySourceIDs returns existing mappings for the given source ids, keyed by
// source id
func (s *GormEntityMappingStore) GetBySourceIDs(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceIDs []string) (map[string]mapping.EntityMapping, error) {
	if !kind.IsValid() {
		return nil, mapping.ErrInvalidKind
	}
	result := make(map[string]mapping.EntityMapping, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return result, nil
	}

	var mappingModels []models.EntityMappingModel
	if err := s.db.WithContext(ctx).
		Table(models.EntityMappingTable(kind)).
		Where("tenant_id = ? AND source_id IN ?", tenantID, sourceIDs).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	for _, model := range mappingModels {
		result[model.SourceID] = model.ToDomain(kind)
	}
	return result, nil
}

// UpsertBatch writes mappings keyed by (tenant, sourceId). AUTO writes leave
// the sink id and type of existing MANUAL rows untouched; only their
// last_synced_at moves. MANUAL writes overwrite unconditionally.
func (s *GormEntityMappingStore) UpsertBatch(ctx context.Context, mappings []mapping.EntityMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	byKind := make(map[mapping.Kind][]models.EntityMappingModel)
	for i := range mappings {
		if !mappings[i].Kind.IsValid() {
			return mapping.ErrInvalidKind
		}
		var model models.EntityMappingModel
		model.FromDomain(&mappings[i])
		byKind[mappings[i].Kind] = append(byKind[mappings[i].Kind], model)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for kind, batch := range byKind {
			table := models.EntityMappingTable(kind)
			if err := tx.Table(table).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "source_id"}},
					DoUpdates: manualGuardedAssignments(table, "sink_id", "mapping_type", "last_action"),
				}).
				Create(&batch).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes one mapping row
func (s *GormEntityMappingStore) Delete(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceID string) error {
	if !kind.IsValid() {
		return mapping.ErrInvalidKind
	}
	result := s.db.WithContext(ctx).
		Table(models.EntityMappingTable(kind)).
		Where("tenant_id = ? AND source_id = ?", tenantID, sourceID).
		Delete(&models.EntityMappingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return mapping.ErrMappingNotFound
	}
	return nil
}

// List pages through a kind's mappings ordered by source id
func (s *GormEntityMappingStore) List(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, offset, limit int) ([]mapping.EntityMapping, error) {
	if !kind.IsValid() {
		return nil, mapping.ErrInvalidKind
	}

	var mappingModels []models.EntityMappingModel
	query := s.db.WithContext(ctx).
		Table(models.EntityMappingTable(kind)).
		Where("tenant_id = ?", tenantID).
		Order("source_id ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]mapping.EntityMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = model.ToDomain(kind)
	}
	return mappings, nil
}

// Stats counts a kind's rows by mapping type
func (s *GormEntityMappingStore) Stats(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind) (*mapping.Stats, error) {
	if !kind.IsValid() {
		return nil, mapping.ErrInvalidKind
	}

	table := models.EntityMappingTable(kind)
	stats := &mapping.Stats{Kind: kind}

	if err := s.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ?", tenantID).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ? AND mapping_type = ?", tenantID, mapping.TypeManual).
		Count(&stats.Manual).Error; err != nil {
		return nil, err
	}
	stats.Auto = stats.Total - stats.Manual

	return stats, nil
}

// manualGuardedAssignments builds DO UPDATE assignments that keep an existing
// MANUAL row's values when the incoming row is AUTO. last_synced_at always
// takes the incoming value. Both postgres and sqlite expose the proposed row
// as "excluded".
func manualGuardedAssignments(table string, columns ...string) clause.Set {
	guard := func(column string) string {
		return fmt.Sprintf(
			"CASE WHEN %s.mapping_type = 'MANUAL' AND excluded.mapping_type = 'AUTO' THEN %s.%s ELSE excluded.%s END",
			table, table, column, column,
		)
	}

	assignments := make(clause.Set, 0, len(columns)+1)
	for _, column := range columns {
		assignments = append(assignments, clause.Assignment{
			Column: clause.Column{Name: column},
			Value:  gorm.Expr(guard(column)),
		})
	}
	assignments = append(assignments, clause.Assignment{
		Column: clause.Column{Name: "last_synced_at"},
		Value:  gorm.Expr("excluded.last_synced_at"),
	})
	return assignments
}

// Ensure GormEntityMappingStore implements mapping.EntityMappingStore
var _ mapping.EntityMappingStore = (*GormEntityMappingStore)(nil)
