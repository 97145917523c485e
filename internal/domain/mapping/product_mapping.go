package mapping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductMapping correlates one source variation with its sink product.
// Children carry the sink parent id resolved during phase one of a product
// sync.
type ProductMapping struct {
	TenantID          uuid.UUID
	SourceItemID      string
	SourceVariationID string
	SinkProductID     string
	IsParent          bool
	SinkParentID      string
	MappingType       Type
	LastAction        Action
	LastSyncedAt      time.Time
}

// NewProductMapping creates an AUTO product mapping.
func NewProductMapping(tenantID uuid.UUID, itemID, variationID, sinkProductID string, isParent bool, sinkParentID string, action Action) (*ProductMapping, error) {
	if itemID == "" || variationID == "" {
		return nil, ErrInvalidSourceID
	}
	if sinkProductID == "" {
		return nil, ErrInvalidSinkID
	}
	return &ProductMapping{
		TenantID:          tenantID,
		SourceItemID:      itemID,
		SourceVariationID: variationID,
		SinkProductID:     sinkProductID,
		IsParent:          isParent,
		SinkParentID:      sinkParentID,
		MappingType:       TypeAuto,
		LastAction:        action,
		LastSyncedAt:      time.Now(),
	}, nil
}

// ProductMappingStore persists variation-to-product mappings.
type ProductMappingStore interface {
	// GetByVariationIDs returns existing mappings keyed by source variation
	// id.
	GetByVariationIDs(ctx context.Context, tenantID uuid.UUID, variationIDs []string) (map[string]ProductMapping, error)

	// UpsertBatch writes mappings keyed by (tenant, sourceVariationId),
	// preserving MANUAL rows' sink ids.
	UpsertBatch(ctx context.Context, mappings []ProductMapping) error

	// Delete removes one mapping.
	Delete(ctx context.Context, tenantID uuid.UUID, variationID string) error

	// List pages through a tenant's product mappings.
	List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]ProductMapping, error)

	// Count returns the number of product mapping rows for a tenant.
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// CountByType counts rows by mapping type.
	CountByType(ctx context.Context, tenantID uuid.UUID, mappingType Type) (int64, error)
}
