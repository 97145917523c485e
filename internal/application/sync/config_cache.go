package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/catalog"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// CachedConfigService is the read-through local mirror of the source config
// collections. Each config sync replaces a tenant's collections wholesale;
// product syncs resolve dependencies from the mirror without repeat network
// calls.
type CachedConfigService struct {
	cache  catalog.ConfigCacheRepository
	states syncdomain.SyncStateRepository
}

// NewCachedConfigService creates a new cached config service
func NewCachedConfigService(cache catalog.ConfigCacheRepository, states syncdomain.SyncStateRepository) *CachedConfigService {
	return &CachedConfigService{cache: cache, states: states}
}

// replaceKind marshals records into cached entities and replaces the kind.
func replaceKind[T any](ctx context.Context, s *CachedConfigService, tenantID uuid.UUID, kind catalog.CachedEntityKind, records []T, sourceID func(T) string) error {
	now := time.Now()
	entities := make([]catalog.CachedEntity, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("cache %s: %w", kind, err)
		}
		entities = append(entities, catalog.CachedEntity{
			TenantID:    tenantID,
			Kind:        kind,
			SourceID:    sourceID(record),
			RawPayload:  raw,
			RefreshedAt: now,
		})
	}
	return s.cache.ReplaceKind(ctx, tenantID, kind, entities)
}

// loadKind unmarshals a tenant's cached collection back into records.
func loadKind[T any](ctx context.Context, s *CachedConfigService, tenantID uuid.UUID, kind catalog.CachedEntityKind) ([]T, error) {
	entities, err := s.cache.GetKind(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(entities))
	for _, e := range entities {
		var record T
		if err := json.Unmarshal(e.RawPayload, &record); err != nil {
			return nil, fmt.Errorf("decode cached %s %s: %w", kind, e.SourceID, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ReplaceCategories replaces the tenant's cached category collection.
func (s *CachedConfigService) ReplaceCategories(ctx context.Context, tenantID uuid.UUID, categories []catalog.Category) error {
	return replaceKind(ctx, s, tenantID, catalog.CachedKindCategory, categories, func(c catalog.Category) string { return c.ID })
}

// Categories returns the tenant's cached categories.
func (s *CachedConfigService) Categories(ctx context.Context, tenantID uuid.UUID) ([]catalog.Category, error) {
	return loadKind[catalog.Category](ctx, s, tenantID, catalog.CachedKindCategory)
}

// ReplaceAttributes replaces the tenant's cached attribute collection.
func (s *CachedConfigService) ReplaceAttributes(ctx context.Context, tenantID uuid.UUID, attributes []catalog.Attribute) error {
	return replaceKind(ctx, s, tenantID, catalog.CachedKindAttribute, attributes, func(a catalog.Attribute) string { return a.ID })
}

// Attributes returns the tenant's cached attributes with their values.
func (s *CachedConfigService) Attributes(ctx context.Context, tenantID uuid.UUID) ([]catalog.Attribute, error) {
	return loadKind[catalog.Attribute](ctx, s, tenantID, catalog.CachedKindAttribute)
}

// ReplaceManufacturers replaces the tenant's cached manufacturer collection.
func (s *CachedConfigService) ReplaceManufacturers(ctx context.Context, tenantID uuid.UUID, manufacturers []catalog.Manufacturer) error {
	return replaceKind(ctx, s, tenantID, catalog.CachedKindManufacturer, manufacturers, func(m catalog.Manufacturer) string { return m.ID })
}

// Manufacturers returns the tenant's cached manufacturers.
func (s *CachedConfigService) Manufacturers(ctx context.Context, tenantID uuid.UUID) ([]catalog.Manufacturer, error) {
	return loadKind[catalog.Manufacturer](ctx, s, tenantID, catalog.CachedKindManufacturer)
}

// ReplaceUnits replaces the tenant's cached unit collection.
func (s *CachedConfigService) ReplaceUnits(ctx context.Context, tenantID uuid.UUID, units []catalog.Unit) error {
	return replaceKind(ctx, s, tenantID, catalog.CachedKindUnit, units, func(u catalog.Unit) string { return u.ID })
}

// Units returns the tenant's cached units.
func (s *CachedConfigService) Units(ctx context.Context, tenantID uuid.UUID) ([]catalog.Unit, error) {
	return loadKind[catalog.Unit](ctx, s, tenantID, catalog.CachedKindUnit)
}

// ReplaceSalesPrices replaces the tenant's cached sales price definitions.
func (s *CachedConfigService) ReplaceSalesPrices(ctx context.Context, tenantID uuid.UUID, prices []catalog.SalesPrice) error {
	return replaceKind(ctx, s, tenantID, catalog.CachedKindSalesPrice, prices, func(p catalog.SalesPrice) string { return p.ID })
}

// SalesPrices returns the tenant's cached sales price definitions.
func (s *CachedConfigService) SalesPrices(ctx context.Context, tenantID uuid.UUID) ([]catalog.SalesPrice, error) {
	return loadKind[catalog.SalesPrice](ctx, s, tenantID, catalog.CachedKindSalesPrice)
}

// PriceTypes returns the cached sales price definitions keyed by id, the
// shape the transformer's price builder wants.
func (s *CachedConfigService) PriceTypes(ctx context.Context, tenantID uuid.UUID) (map[string]catalog.SalesPriceType, error) {
	prices, err := s.SalesPrices(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	types := make(map[string]catalog.SalesPriceType, len(prices))
	for _, p := range prices {
		types[p.ID] = p.Type
	}
	return types, nil
}

// ConfigWatermark returns the tenant's CONFIG watermark, or
// ErrConfigSyncRequired wrapped as a validation error when no config sync has
// completed yet.
func (s *CachedConfigService) ConfigWatermark(ctx context.Context, tenantID uuid.UUID) (time.Time, error) {
	state, err := s.states.Get(ctx, tenantID, syncdomain.SyncTypeConfig)
	if err != nil {
		if errors.Is(err, syncdomain.ErrSyncStateNotFound) {
			return time.Time{}, syncdomain.NewValidationError("config sync has never completed for tenant", syncdomain.ErrConfigSyncRequired)
		}
		return time.Time{}, err
	}
	if state.LastSyncAt == nil {
		return time.Time{}, syncdomain.NewValidationError("config sync has never completed for tenant", syncdomain.ErrConfigSyncRequired)
	}
	return *state.LastSyncAt, nil
}
