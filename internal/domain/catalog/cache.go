package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CachedEntityKind names a cached source config collection.
type CachedEntityKind string

const (
	CachedKindCategory     CachedEntityKind = "category"
	CachedKindAttribute    CachedEntityKind = "attribute"
	CachedKindManufacturer CachedEntityKind = "manufacturer"
	CachedKindUnit         CachedEntityKind = "unit"
	CachedKindSalesPrice   CachedEntityKind = "sales_price"
)

// CachedEntity is the local mirror of one source config record, kept so
// dependency resolution during product syncs works without repeat network
// calls. RawPayload holds the source JSON verbatim.
type CachedEntity struct {
	TenantID    uuid.UUID
	Kind        CachedEntityKind
	SourceID    string
	RawPayload  []byte
	RefreshedAt time.Time
}

// ConfigCacheRepository persists the cached source config collections. Each
// config sync replaces a tenant's collection wholesale.
type ConfigCacheRepository interface {
	// ReplaceKind atomically replaces all cached entities of one kind for a
	// tenant.
	ReplaceKind(ctx context.Context, tenantID uuid.UUID, kind CachedEntityKind, entities []CachedEntity) error

	// GetKind returns all cached entities of one kind for a tenant.
	GetKind(ctx context.Context, tenantID uuid.UUID, kind CachedEntityKind) ([]CachedEntity, error)

	// GetBySourceID returns one cached entity, or ErrEntityNotFound.
	GetBySourceID(ctx context.Context, tenantID uuid.UUID, kind CachedEntityKind, sourceID string) (*CachedEntity, error)
}
