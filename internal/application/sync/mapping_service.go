package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/mapping"
)

// MappingService is the management surface over the identity mapping layer:
// list, create, delete and statistics. Operator-created rows are MANUAL and
// stay out of reach of automated upserts.
type MappingService struct {
	entityMappings  mapping.EntityMappingStore
	productMappings mapping.ProductMappingStore
	logger          *zap.Logger
}

// NewMappingService creates a new mapping service
func NewMappingService(entityMappings mapping.EntityMappingStore, productMappings mapping.ProductMappingStore, logger *zap.Logger) *MappingService {
	return &MappingService{
		entityMappings:  entityMappings,
		productMappings: productMappings,
		logger:          logger,
	}
}

// ListEntityMappings pages through one kind's mappings for a tenant.
func (s *MappingService) ListEntityMappings(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, offset, limit int) ([]mapping.EntityMapping, error) {
	if !kind.IsValid() {
		return nil, mapping.ErrInvalidKind
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.entityMappings.List(ctx, tenantID, kind, offset, limit)
}

// CreateManualMapping pins a source id to an operator-chosen sink id. The row
// is MANUAL; automated syncs will refresh its sync metadata but never its
// sink id.
func (s *MappingService) CreateManualMapping(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceID, sinkID string) (*mapping.EntityMapping, error) {
	m, err := mapping.NewManualMapping(tenantID, kind, sourceID, sinkID)
	if err != nil {
		return nil, err
	}
	if err := s.entityMappings.UpsertBatch(ctx, []mapping.EntityMapping{*m}); err != nil {
		return nil, err
	}

	s.logger.Info("Manual mapping created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", string(kind)),
		zap.String("source_id", sourceID),
		zap.String("sink_id", sinkID),
	)
	return m, nil
}

// DeleteEntityMapping removes one mapping row. The next sync recreates it as
// AUTO.
func (s *MappingService) DeleteEntityMapping(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, sourceID string) error {
	if !kind.IsValid() {
		return mapping.ErrInvalidKind
	}
	if sourceID == "" {
		return mapping.ErrInvalidSourceID
	}
	return s.entityMappings.Delete(ctx, tenantID, kind, sourceID)
}

// EntityStats returns per-kind mapping counts for every kind.
func (s *MappingService) EntityStats(ctx context.Context, tenantID uuid.UUID) ([]mapping.Stats, error) {
	stats := make([]mapping.Stats, 0, len(mapping.Kinds()))
	for _, kind := range mapping.Kinds() {
		kindStats, err := s.entityMappings.Stats(ctx, tenantID, kind)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *kindStats)
	}
	return stats, nil
}

// ListProductMappings pages through a tenant's product mappings.
func (s *MappingService) ListProductMappings(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]mapping.ProductMapping, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.productMappings.List(ctx, tenantID, offset, limit)
}

// DeleteProductMapping removes one variation's product mapping.
func (s *MappingService) DeleteProductMapping(ctx context.Context, tenantID uuid.UUID, variationID string) error {
	if variationID == "" {
		return mapping.ErrInvalidSourceID
	}
	return s.productMappings.Delete(ctx, tenantID, variationID)
}

// ProductMappingStats summarizes the product mapping table.
type ProductMappingStats struct {
	Total  int64
	Manual int64
	Auto   int64
}

// ProductStats counts product mapping rows by type.
func (s *MappingService) ProductStats(ctx context.Context, tenantID uuid.UUID) (*ProductMappingStats, error) {
	total, err := s.productMappings.Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	manual, err := s.productMappings.CountByType(ctx, tenantID, mapping.TypeManual)
	if err != nil {
		return nil, err
	}
	return &ProductMappingStats{
		Total:  total,
		Manual: manual,
		Auto:   total - manual,
	}, nil
}
