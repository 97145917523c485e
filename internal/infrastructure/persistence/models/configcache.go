package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/catalog"
)

// CachedEntityModel is the persistence model for cached source config
// records. RawPayload keeps the source JSON verbatim so dependency resolution
// never loses fields the transformer does not model.
type CachedEntityModel struct {
	TenantID    uuid.UUID                `gorm:"type:uuid;primaryKey"`
	Kind        catalog.CachedEntityKind `gorm:"type:varchar(20);primaryKey"`
	SourceID    string                   `gorm:"type:varchar(100);primaryKey"`
	RawPayload  []byte                   `gorm:"type:bytea;not null"`
	RefreshedAt time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CachedEntityModel) TableName() string {
	return "cached_entities"
}

// ToDomain converts the persistence model to a domain CachedEntity.
func (m *CachedEntityModel) ToDomain() catalog.CachedEntity {
	return catalog.CachedEntity{
		TenantID:    m.TenantID,
		Kind:        m.Kind,
		SourceID:    m.SourceID,
		RawPayload:  m.RawPayload,
		RefreshedAt: m.RefreshedAt,
	}
}

// FromDomain populates the persistence model from a domain CachedEntity.
func (m *CachedEntityModel) FromDomain(e *catalog.CachedEntity) {
	m.TenantID = e.TenantID
	m.Kind = e.Kind
	m.SourceID = e.SourceID
	m.RawPayload = e.RawPayload
	m.RefreshedAt = e.RefreshedAt
}
