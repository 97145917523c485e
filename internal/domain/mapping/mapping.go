package mapping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMappingNotFound is returned when no mapping exists.
	ErrMappingNotFound = errors.New("mapping: not found")

	// ErrInvalidKind is returned for an unknown mapping kind.
	ErrInvalidKind = errors.New("mapping: invalid kind")

	// ErrInvalidSourceID is returned for an empty source id.
	ErrInvalidSourceID = errors.New("mapping: invalid source ID")

	// ErrInvalidSinkID is returned for an empty sink id.
	ErrInvalidSinkID = errors.New("mapping: invalid sink ID")
)

// Kind names an entity kind with its own mapping table.
type Kind string

const (
	KindCategory       Kind = "category"
	KindAttribute      Kind = "attribute"
	KindAttributeValue Kind = "attribute_value"
	KindManufacturer   Kind = "manufacturer"
	KindUnit           Kind = "unit"
	KindPrice          Kind = "price"
)

// Kinds lists every entity mapping kind.
func Kinds() []Kind {
	return []Kind{KindCategory, KindAttribute, KindAttributeValue, KindManufacturer, KindUnit, KindPrice}
}

// IsValid returns true for a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindCategory, KindAttribute, KindAttributeValue, KindManufacturer, KindUnit, KindPrice:
		return true
	}
	return false
}

// Type tags who owns a mapping row. MANUAL rows are operator-created and are
// never overwritten by automated upserts; only their lastSyncedAt metadata is
// refreshed.
type Type string

const (
	TypeManual Type = "MANUAL"
	TypeAuto   Type = "AUTO"
)

// Action is the last sync action recorded on a mapping row.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// EntityMapping correlates one source entity id with its sink id.
type EntityMapping struct {
	TenantID     uuid.UUID
	Kind         Kind
	SourceID     string
	SinkID       string
	MappingType  Type
	LastAction   Action
	LastSyncedAt time.Time
}

// NewAutoMapping creates an AUTO mapping recorded after a successful sink
// write.
func NewAutoMapping(tenantID uuid.UUID, kind Kind, sourceID, sinkID string, action Action) (*EntityMapping, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if sourceID == "" {
		return nil, ErrInvalidSourceID
	}
	if sinkID == "" {
		return nil, ErrInvalidSinkID
	}
	return &EntityMapping{
		TenantID:     tenantID,
		Kind:         kind,
		SourceID:     sourceID,
		SinkID:       sinkID,
		MappingType:  TypeAuto,
		LastAction:   action,
		LastSyncedAt: time.Now(),
	}, nil
}

// NewManualMapping creates an operator-owned mapping.
func NewManualMapping(tenantID uuid.UUID, kind Kind, sourceID, sinkID string) (*EntityMapping, error) {
	m, err := NewAutoMapping(tenantID, kind, sourceID, sinkID, ActionCreate)
	if err != nil {
		return nil, err
	}
	m.MappingType = TypeManual
	return m, nil
}

// Stats summarizes one kind's mapping table for the management surface.
type Stats struct {
	Kind   Kind
	Total  int64
	Manual int64
	Auto   int64
}

// ---------------------------------------------------------------------------
// EntityMappingStore Interface
// ---------------------------------------------------------------------------

// EntityMappingStore is the uniform per-kind mapping contract: batch reads for
// a set of source ids and batch upserts keyed by (tenant, sourceId). AUTO
// upserts must never overwrite a MANUAL row's sink id.
type EntityMappingStore interface {
	// GetBySourceIDs returns existing mappings for the given source ids,
	// keyed by source id.
	GetBySourceIDs(ctx context.Context, tenantID uuid.UUID, kind Kind, sourceIDs []string) (map[string]EntityMapping, error)

	// UpsertBatch writes mappings keyed by (tenant, sourceId). Rows whose
	// existing mappingType is MANUAL keep their sink id and mapping type;
	// only lastSyncedAt is refreshed for them.
	UpsertBatch(ctx context.Context, mappings []EntityMapping) error

	// Delete removes one mapping row.
	Delete(ctx context.Context, tenantID uuid.UUID, kind Kind, sourceID string) error

	// List pages through a kind's mappings for the management surface.
	List(ctx context.Context, tenantID uuid.UUID, kind Kind, offset, limit int) ([]EntityMapping, error)

	// Stats counts a kind's rows by mapping type.
	Stats(ctx context.Context, tenantID uuid.UUID, kind Kind) (*Stats, error)
}
