package sync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/domain/catalog"
)

func testTransformer() *Transformer {
	return NewTransformer([]string{"de", "en"}, decimal.NewFromInt(19), "EUR")
}

func TestDeterministicIDsAreStable(t *testing.T) {
	first := DeterministicMediaID("https://cdn.example.com/a.jpg")
	second := DeterministicMediaID("https://cdn.example.com/a.jpg")
	other := DeterministicMediaID("https://cdn.example.com/b.jpg")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)

	assoc := DeterministicAssociationID("var-1", "img-1")
	assert.Equal(t, assoc, DeterministicAssociationID("var-1", "img-1"))
	assert.NotEqual(t, assoc, DeterministicAssociationID("var-1", "img-2"))
	assert.NotEqual(t, assoc, DeterministicAssociationID("var-2", "img-1"))
}

func TestPickTextFollowsFallbackChain(t *testing.T) {
	tr := testTransformer()

	text, ok := tr.PickText([]catalog.LocalizedText{
		{Lang: "en", Name: "Chair"},
		{Lang: "de", Name: "Stuhl"},
	})
	require.True(t, ok)
	assert.Equal(t, "Stuhl", text.Name)

	text, ok = tr.PickText([]catalog.LocalizedText{
		{Lang: "en", Name: "Chair"},
	})
	require.True(t, ok)
	assert.Equal(t, "Chair", text.Name)

	// Nothing from the chain available: first text stands in.
	text, ok = tr.PickText([]catalog.LocalizedText{
		{Lang: "fr", Name: "Chaise"},
	})
	require.True(t, ok)
	assert.Equal(t, "Chaise", text.Name)

	_, ok = tr.PickText(nil)
	assert.False(t, ok)
}

func TestTranslationsKeyedBySinkLocale(t *testing.T) {
	tr := testTransformer()

	translations := tr.Translations([]catalog.LocalizedText{
		{Lang: "de", Name: "Stuhl", Description: "Ein Stuhl"},
		{Lang: "en", Name: "Chair"},
	})

	require.Len(t, translations, 2)
	assert.Equal(t, "Stuhl", translations["de-DE"].Name)
	assert.Equal(t, "Ein Stuhl", translations["de-DE"].Description)
	assert.Equal(t, "Chair", translations["en-GB"].Name)

	assert.Nil(t, tr.Translations(nil))
}

func TestBuildPriceDerivesNetFromGross(t *testing.T) {
	tr := testTransformer()
	priceTypes := map[string]catalog.SalesPriceType{
		"sp-default": catalog.SalesPriceTypeDefault,
	}

	price := tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-default", Gross: decimal.NewFromInt(119)},
	}, priceTypes, "EUR")

	require.NotNil(t, price)
	assert.Equal(t, "EUR", price.Currency)
	assert.True(t, price.Gross.Equal(decimal.NewFromInt(119)), "gross %s", price.Gross)
	assert.True(t, price.Net.Equal(decimal.NewFromInt(100)), "net %s", price.Net)
	assert.Nil(t, price.ListGross)
}

func TestBuildPriceKeepsSourceNet(t *testing.T) {
	tr := testTransformer()
	priceTypes := map[string]catalog.SalesPriceType{
		"sp-default": catalog.SalesPriceTypeDefault,
	}

	price := tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-default", Gross: decimal.NewFromInt(119), Net: decimal.NewFromInt(95)},
	}, priceTypes, "EUR")

	require.NotNil(t, price)
	assert.True(t, price.Net.Equal(decimal.NewFromInt(95)))
}

func TestBuildPriceAttachesListPrice(t *testing.T) {
	tr := testTransformer()
	priceTypes := map[string]catalog.SalesPriceType{
		"sp-default": catalog.SalesPriceTypeDefault,
		"sp-rrp":     catalog.SalesPriceTypeRRP,
	}

	price := tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-rrp", Gross: decimal.NewFromInt(149)},
		{SalesPriceID: "sp-default", Gross: decimal.NewFromInt(119)},
	}, priceTypes, "EUR")

	require.NotNil(t, price)
	require.NotNil(t, price.ListGross)
	require.NotNil(t, price.ListNet)
	assert.True(t, price.ListGross.Equal(decimal.NewFromInt(149)))
	assert.True(t, price.ListNet.Equal(decimal.RequireFromString("125.21")), "list net %s", price.ListNet)

	// An RRP at or below the default price is not a strike-through price.
	price = tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-rrp", Gross: decimal.NewFromInt(119)},
		{SalesPriceID: "sp-default", Gross: decimal.NewFromInt(119)},
	}, priceTypes, "EUR")
	require.NotNil(t, price)
	assert.Nil(t, price.ListGross)
}

func TestBuildPriceFallsBackToFirstKnownType(t *testing.T) {
	tr := testTransformer()
	priceTypes := map[string]catalog.SalesPriceType{
		"sp-special": catalog.SalesPriceTypeSpecial,
	}

	price := tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-unknown", Gross: decimal.NewFromInt(999)},
		{SalesPriceID: "sp-special", Gross: decimal.NewFromInt(89)},
	}, priceTypes, "EUR")

	require.NotNil(t, price)
	assert.True(t, price.Gross.Equal(decimal.NewFromInt(89)))
}

func TestBuildPriceNilWithoutUsablePrice(t *testing.T) {
	tr := testTransformer()

	assert.Nil(t, tr.BuildPrice(nil, nil, "EUR"))
	assert.Nil(t, tr.BuildPrice([]catalog.VariationPrice{
		{SalesPriceID: "sp-unknown", Gross: decimal.NewFromInt(10)},
	}, map[string]catalog.SalesPriceType{}, "EUR"))
}

func TestBuildMediaAssociationsOrdersByPosition(t *testing.T) {
	tr := testTransformer()

	media := tr.BuildMediaAssociations("var-1", []catalog.ItemImage{
		{ID: "img-b", URL: "https://cdn.example.com/b.jpg", FileName: "b.jpg", Position: 2},
		{ID: "img-a", URL: "https://cdn.example.com/a.jpg", FileName: "a.jpg", Position: 1},
	})

	require.Len(t, media, 2)
	assert.Equal(t, "a.jpg", media[0].FileName)
	assert.True(t, media[0].Cover)
	assert.Equal(t, 0, media[0].Position)
	assert.Equal(t, "b.jpg", media[1].FileName)
	assert.False(t, media[1].Cover)
	assert.Equal(t, 1, media[1].Position)

	assert.Equal(t, DeterministicMediaID("https://cdn.example.com/a.jpg"), media[0].MediaSinkID)
	assert.Equal(t, DeterministicAssociationID("var-1", "img-a"), media[0].AssociationID)

	assert.Nil(t, tr.BuildMediaAssociations("var-1", nil))
}

func TestLinkedImagesFiltersPool(t *testing.T) {
	pool := []catalog.ItemImage{
		{ID: "img-a"},
		{ID: "img-b"},
		{ID: "img-c"},
	}

	subset := LinkedImages(pool, []catalog.ImageLink{{ImageID: "img-c"}, {ImageID: "img-a"}})
	require.Len(t, subset, 2)
	assert.Equal(t, "img-a", subset[0].ID)
	assert.Equal(t, "img-c", subset[1].ID)

	assert.Nil(t, LinkedImages(pool, nil))
}

func TestBuildParentAndChildPayloads(t *testing.T) {
	tr := testTransformer()
	priceTypes := map[string]catalog.SalesPriceType{
		"sp-default": catalog.SalesPriceTypeDefault,
	}
	refs := ResolvedRefs{
		CategorySinkIDs:    []string{"cat-sink-1"},
		ManufacturerSinkID: "man-sink-1",
		UnitSinkID:         "unit-sink-1",
		OptionSinkIDs:      []string{"opt-sink-1"},
	}
	variation := catalog.Variation{
		ID:     "var-1",
		ItemID: "item-1",
		Number: "SKU-1",
		EAN:    "4012345678901",
		Texts:  []catalog.LocalizedText{{Lang: "de", Name: "Stuhl"}},
		Prices: []catalog.VariationPrice{
			{SalesPriceID: "sp-default", Gross: decimal.NewFromInt(119)},
		},
		Images: []catalog.ItemImage{
			{ID: "img-a", URL: "https://cdn.example.com/a.jpg", Position: 1},
			{ID: "img-b", URL: "https://cdn.example.com/b.jpg", Position: 2},
		},
		ImageLinks: []catalog.ImageLink{{ImageID: "img-b"}},
	}

	parent := tr.BuildParentPayload(variation, refs, priceTypes, "existing-sink")
	assert.Equal(t, "var-1", parent.ReferenceKey)
	assert.Equal(t, "existing-sink", parent.SinkID)
	assert.Empty(t, parent.ParentSinkID)
	assert.True(t, parent.IsParent())
	assert.Equal(t, "SKU-1", parent.SKU)
	assert.Equal(t, "Stuhl", parent.Name)
	assert.Equal(t, []string{"cat-sink-1"}, parent.CategorySinkIDs)
	assert.Empty(t, parent.OptionSinkIDs)
	require.NotNil(t, parent.Price)
	assert.Len(t, parent.Media, 2)

	child := tr.BuildChildPayload(variation, "parent-sink", refs, priceTypes, "")
	assert.Equal(t, "parent-sink", child.ParentSinkID)
	assert.False(t, child.IsParent())
	assert.Equal(t, []string{"opt-sink-1"}, child.OptionSinkIDs)
	// Children only carry their explicitly linked images.
	require.Len(t, child.Media, 1)
	assert.Equal(t, DeterministicMediaID("https://cdn.example.com/b.jpg"), child.Media[0].MediaSinkID)
}

func TestBuildPropertyGroupPayload(t *testing.T) {
	tr := testTransformer()

	group := tr.BuildPropertyGroupPayload(catalog.Attribute{
		ID:          "attr-1",
		BackendName: "color",
		DisplayType: "dropdown",
		Texts:       []catalog.LocalizedText{{Lang: "de", Name: "Farbe"}},
	}, 3, "")
	assert.Equal(t, "attr-1", group.ReferenceKey)
	assert.Equal(t, "Farbe", group.Name)
	assert.Equal(t, catalog.PropertyDisplayTypeSelect, group.DisplayType)
	assert.Equal(t, 3, group.Position)

	// Backend name stands in when no text exists; unknown display types
	// degrade to text.
	group = tr.BuildPropertyGroupPayload(catalog.Attribute{
		ID:          "attr-2",
		BackendName: "material",
		DisplayType: "weird",
	}, 0, "")
	assert.Equal(t, "material", group.Name)
	assert.Equal(t, catalog.PropertyDisplayTypeText, group.DisplayType)

	group = tr.BuildPropertyGroupPayload(catalog.Attribute{
		ID:          "attr-3",
		BackendName: "swatch",
		DisplayType: "image",
	}, 0, "")
	assert.Equal(t, catalog.PropertyDisplayTypeMedia, group.DisplayType)
}

func TestBuildUnitPayload(t *testing.T) {
	tr := testTransformer()

	unit := tr.BuildUnitPayload(catalog.Unit{
		ID:                "unit-1",
		UnitOfMeasurement: "KGM",
		Texts:             []catalog.LocalizedText{{Lang: "de", Name: "Kilogramm"}},
	}, "")
	assert.Equal(t, "KGM", unit.ShortCode)
	assert.Equal(t, "Kilogramm", unit.Name)

	unit = tr.BuildUnitPayload(catalog.Unit{ID: "unit-2", UnitOfMeasurement: "C62"}, "")
	assert.Equal(t, "C62", unit.Name)
}
