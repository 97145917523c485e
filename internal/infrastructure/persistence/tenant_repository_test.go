package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/domain/tenant"
)

func TestTenantSaveAndFindRoundTrip(t *testing.T) {
	repo := NewGormTenantRepository(newTestDB(t))
	ctx := context.Background()

	tn, err := tenant.NewTenant("acme",
		tenant.Connection{BaseURL: "https://source.example.com", SealedCredentials: []byte{0x01, 0x02}},
		tenant.Connection{BaseURL: "https://sink.example.com", SealedCredentials: []byte{0x03}},
	)
	require.NoError(t, err)
	tn.DefaultTaxRate = decimal.NewFromFloat(7.7)
	tn.PreferredLanguage = "en"
	tn.FallbackLanguages = []string{"de", "fr"}

	require.NoError(t, repo.Save(ctx, tn))

	found, err := repo.FindByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", found.Name)
	assert.True(t, found.Active)
	assert.Equal(t, "https://source.example.com", found.Source.BaseURL)
	assert.Equal(t, []byte{0x01, 0x02}, found.Source.SealedCredentials)
	assert.Equal(t, []byte{0x03}, found.Sink.SealedCredentials)
	assert.True(t, decimal.NewFromFloat(7.7).Equal(found.DefaultTaxRate))
	assert.Equal(t, []string{"en", "de", "fr"}, found.LanguageChain())
}

func TestTenantFindByIDNotFound(t *testing.T) {
	repo := NewGormTenantRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestTenantFindActive(t *testing.T) {
	repo := NewGormTenantRepository(newTestDB(t))
	ctx := context.Background()

	source := tenant.Connection{BaseURL: "https://source.example.com"}
	sink := tenant.Connection{BaseURL: "https://sink.example.com"}

	beta, err := tenant.NewTenant("beta", source, sink)
	require.NoError(t, err)
	alpha, err := tenant.NewTenant("alpha", source, sink)
	require.NoError(t, err)
	dormant, err := tenant.NewTenant("dormant", source, sink)
	require.NoError(t, err)
	dormant.Deactivate()

	for _, tn := range []*tenant.Tenant{beta, alpha, dormant} {
		require.NoError(t, repo.Save(ctx, tn))
	}

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "alpha", active[0].Name)
	assert.Equal(t, "beta", active[1].Name)
}
