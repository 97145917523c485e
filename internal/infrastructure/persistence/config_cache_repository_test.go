package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/domain/catalog"
)

func cachedEntity(tenantID uuid.UUID, kind catalog.CachedEntityKind, sourceID, payload string) catalog.CachedEntity {
	return catalog.CachedEntity{
		TenantID:    tenantID,
		Kind:        kind,
		SourceID:    sourceID,
		RawPayload:  []byte(payload),
		RefreshedAt: time.Now(),
	}
}

func TestConfigCacheReplaceKind(t *testing.T) {
	repo := NewGormConfigCacheRepository(newTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.ReplaceKind(ctx, tenantID, catalog.CachedKindCategory, []catalog.CachedEntity{
		cachedEntity(tenantID, catalog.CachedKindCategory, "1", `{"name":"Shoes"}`),
		cachedEntity(tenantID, catalog.CachedKindCategory, "2", `{"name":"Shirts"}`),
	}))

	// A refresh replaces the collection wholesale; "2" disappears.
	require.NoError(t, repo.ReplaceKind(ctx, tenantID, catalog.CachedKindCategory, []catalog.CachedEntity{
		cachedEntity(tenantID, catalog.CachedKindCategory, "1", `{"name":"Sneakers"}`),
		cachedEntity(tenantID, catalog.CachedKindCategory, "3", `{"name":"Hats"}`),
	}))

	entities, err := repo.GetKind(ctx, tenantID, catalog.CachedKindCategory)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "1", entities[0].SourceID)
	assert.JSONEq(t, `{"name":"Sneakers"}`, string(entities[0].RawPayload))
	assert.Equal(t, "3", entities[1].SourceID)
}

func TestConfigCacheReplaceKindLeavesOtherKinds(t *testing.T) {
	repo := NewGormConfigCacheRepository(newTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.ReplaceKind(ctx, tenantID, catalog.CachedKindUnit, []catalog.CachedEntity{
		cachedEntity(tenantID, catalog.CachedKindUnit, "u1", `{}`),
	}))
	require.NoError(t, repo.ReplaceKind(ctx, tenantID, catalog.CachedKindCategory, nil))

	units, err := repo.GetKind(ctx, tenantID, catalog.CachedKindUnit)
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestConfigCacheGetBySourceID(t *testing.T) {
	repo := NewGormConfigCacheRepository(newTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.ReplaceKind(ctx, tenantID, catalog.CachedKindAttribute, []catalog.CachedEntity{
		cachedEntity(tenantID, catalog.CachedKindAttribute, "a1", `{"backendName":"color"}`),
	}))

	entity, err := repo.GetBySourceID(ctx, tenantID, catalog.CachedKindAttribute, "a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"backendName":"color"}`, string(entity.RawPayload))

	_, err = repo.GetBySourceID(ctx, tenantID, catalog.CachedKindAttribute, "missing")
	assert.ErrorIs(t, err, catalog.ErrEntityNotFound)
}
