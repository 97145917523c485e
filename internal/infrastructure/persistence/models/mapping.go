package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/mapping"
)

// EntityMappingModel is the persistence model for entity mappings. Every
// mapping kind gets its own table with this shape; repositories scope queries
// with Table(EntityMappingTable(kind)), so the model itself carries no
// TableName.
type EntityMappingModel struct {
	TenantID     uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SourceID     string         `gorm:"type:varchar(100);primaryKey"`
	SinkID       string         `gorm:"type:varchar(100);not null"`
	MappingType  mapping.Type   `gorm:"type:varchar(10);not null;default:'AUTO';index"`
	LastAction   mapping.Action `gorm:"type:varchar(10);not null"`
	LastSyncedAt time.Time      `gorm:"not null"`
}

// EntityMappingTable returns the table name for one mapping kind.
func EntityMappingTable(kind mapping.Kind) string {
	return string(kind) + "_mappings"
}

// EntityMappingTables lists every per-kind mapping table, used by migration.
func EntityMappingTables() []string {
	kinds := mapping.Kinds()
	tables := make([]string, len(kinds))
	for i, k := range kinds {
		tables[i] = EntityMappingTable(k)
	}
	return tables
}

// ToDomain converts the persistence model to a domain EntityMapping. The kind
// is supplied by the caller because the table, not the row, carries it.
func (m *EntityMappingModel) ToDomain(kind mapping.Kind) mapping.EntityMapping {
	return mapping.EntityMapping{
		TenantID:     m.TenantID,
		Kind:         kind,
		SourceID:     m.SourceID,
		SinkID:       m.SinkID,
		MappingType:  m.MappingType,
		LastAction:   m.LastAction,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain EntityMapping.
func (m *EntityMappingModel) FromDomain(em *mapping.EntityMapping) {
	m.TenantID = em.TenantID
	m.SourceID = em.SourceID
	m.SinkID = em.SinkID
	m.MappingType = em.MappingType
	m.LastAction = em.LastAction
	m.LastSyncedAt = em.LastSyncedAt
}

// ProductMappingModel is the persistence model for the ProductMapping domain
// entity.
type ProductMappingModel struct {
	TenantID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SourceVariationID string         `gorm:"type:varchar(100);primaryKey"`
	SourceItemID      string         `gorm:"type:varchar(100);not null;index:idx_product_mappings_item"`
	SinkProductID     string         `gorm:"type:varchar(100);not null"`
	IsParent          bool           `gorm:"not null;default:false"`
	SinkParentID      string         `gorm:"type:varchar(100)"`
	MappingType       mapping.Type   `gorm:"type:varchar(10);not null;default:'AUTO';index"`
	LastAction        mapping.Action `gorm:"type:varchar(10);not null"`
	LastSyncedAt      time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductMappingModel) TableName() string {
	return "product_mappings"
}

// ToDomain converts the persistence model to a domain ProductMapping.
func (m *ProductMappingModel) ToDomain() mapping.ProductMapping {
	return mapping.ProductMapping{
		TenantID:          m.TenantID,
		SourceItemID:      m.SourceItemID,
		SourceVariationID: m.SourceVariationID,
		SinkProductID:     m.SinkProductID,
		IsParent:          m.IsParent,
		SinkParentID:      m.SinkParentID,
		MappingType:       m.MappingType,
		LastAction:        m.LastAction,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain ProductMapping.
func (m *ProductMappingModel) FromDomain(pm *mapping.ProductMapping) {
	m.TenantID = pm.TenantID
	m.SourceItemID = pm.SourceItemID
	m.SourceVariationID = pm.SourceVariationID
	m.SinkProductID = pm.SinkProductID
	m.IsParent = pm.IsParent
	m.SinkParentID = pm.SinkParentID
	m.MappingType = pm.MappingType
	m.LastAction = pm.LastAction
	m.LastSyncedAt = pm.LastSyncedAt
}

// ProductMappingModelFromDomain creates a new persistence model from a domain ProductMapping.
func ProductMappingModelFromDomain(pm *mapping.ProductMapping) *ProductMappingModel {
	m := &ProductMappingModel{}
	m.FromDomain(pm)
	return m
}
