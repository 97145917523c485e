package sync

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/catalogsync/backend/internal/domain/catalog"
)

// mediaNamespace is the fixed UUIDv5 namespace for deterministic media ids.
// Stable inputs hashed under it make re-syncs upsert the same sink records
// instead of duplicating uploads.
var mediaNamespace = uuid.MustParse("8f1c2a44-3d17-49b2-9c27-5a90f3e6d241")

// DeterministicMediaID derives a stable sink media id from an image URL.
func DeterministicMediaID(imageURL string) string {
	return uuid.NewSHA1(mediaNamespace, []byte(imageURL)).String()
}

// DeterministicAssociationID derives a stable product-media association id
// from the variation and image identity.
func DeterministicAssociationID(variationID, imageID string) string {
	return uuid.NewSHA1(mediaNamespace, []byte(variationID+"/"+imageID)).String()
}

// ---------------------------------------------------------------------------
// Locale Mapping
// ---------------------------------------------------------------------------

// localeFor maps a source language code to the sink's locale code. The table
// is closed; unmapped codes get a constructed locale so an exotic language
// degrades to a predictable value instead of an error.
func localeFor(lang string) string {
	switch strings.ToLower(lang) {
	case "de":
		return "de-DE"
	case "en":
		return "en-GB"
	case "fr":
		return "fr-FR"
	case "it":
		return "it-IT"
	case "es":
		return "es-ES"
	case "nl":
		return "nl-NL"
	case "pl":
		return "pl-PL"
	case "cs":
		return "cs-CZ"
	case "da":
		return "da-DK"
	case "sv":
		return "sv-SE"
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang) + "-" + strings.ToUpper(lang)
	}
	base, _ := tag.Base()
	region, confident := tag.Region()
	if confident == language.No || region.String() == "ZZ" {
		return base.String() + "-" + strings.ToUpper(base.String())
	}
	return base.String() + "-" + region.String()
}

// ---------------------------------------------------------------------------
// Transformer
// ---------------------------------------------------------------------------

// Transformer converts source records into sink payloads for one tenant. It
// is stateless apart from the tenant's transformation preferences; all id
// resolution happens in the processors, which hand resolved references in.
type Transformer struct {
	languageChain   []string
	taxRate         decimal.Decimal
	defaultCurrency string
}

// NewTransformer creates a transformer with the tenant's language chain and
// tax rate. taxRate is a percentage (19 means 19%).
func NewTransformer(languageChain []string, taxRate decimal.Decimal, defaultCurrency string) *Transformer {
	return &Transformer{
		languageChain:   languageChain,
		taxRate:         taxRate,
		defaultCurrency: defaultCurrency,
	}
}

// PickText selects the localized text via the tenant's fallback chain, then
// first available.
func (t *Transformer) PickText(texts []catalog.LocalizedText) (catalog.LocalizedText, bool) {
	for _, lang := range t.languageChain {
		if text, ok := catalog.Text(texts, lang); ok {
			return text, true
		}
	}
	if len(texts) > 0 {
		return texts[0], true
	}
	return catalog.LocalizedText{}, false
}

// Translations renders every localized text as a sink translation keyed by
// locale.
func (t *Transformer) Translations(texts []catalog.LocalizedText) map[string]catalog.Translation {
	if len(texts) == 0 {
		return nil
	}
	translations := make(map[string]catalog.Translation, len(texts))
	for _, text := range texts {
		translations[localeFor(text.Lang)] = catalog.Translation{
			Name:        text.Name,
			Description: text.Description,
		}
	}
	return translations
}

// ---------------------------------------------------------------------------
// Prices
// ---------------------------------------------------------------------------

// netFromGross derives the net amount from a gross amount using the tenant's
// tax rate, rounded to cents.
func (t *Transformer) netFromGross(gross decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(t.taxRate.Div(decimal.NewFromInt(100)))
	return gross.Div(divisor).Round(2)
}

// BuildPrice selects the variation's default-type price and attaches an RRP
// list price when one exists above it. priceTypes maps sales price ids to
// their cached type; prices referencing an unknown definition are ignored.
// Returns nil when the variation carries no usable price.
func (t *Transformer) BuildPrice(prices []catalog.VariationPrice, priceTypes map[string]catalog.SalesPriceType, currency string) *catalog.PricePayload {
	if currency == "" {
		currency = t.defaultCurrency
	}

	var defaultPrice *catalog.VariationPrice
	var rrpPrice *catalog.VariationPrice
	for i := range prices {
		p := &prices[i]
		switch priceTypes[p.SalesPriceID] {
		case catalog.SalesPriceTypeDefault:
			if defaultPrice == nil {
				defaultPrice = p
			}
		case catalog.SalesPriceTypeRRP:
			if rrpPrice == nil {
				rrpPrice = p
			}
		}
	}
	if defaultPrice == nil {
		// No price tagged default; the first known price stands in.
		for i := range prices {
			if _, ok := priceTypes[prices[i].SalesPriceID]; ok {
				defaultPrice = &prices[i]
				break
			}
		}
	}
	if defaultPrice == nil {
		return nil
	}

	net := defaultPrice.Net
	if net.IsZero() && !defaultPrice.Gross.IsZero() {
		net = t.netFromGross(defaultPrice.Gross)
	}

	payload := &catalog.PricePayload{
		Currency: currency,
		Gross:    defaultPrice.Gross,
		Net:      net,
	}

	if rrpPrice != nil && rrpPrice.Gross.GreaterThan(defaultPrice.Gross) {
		listGross := rrpPrice.Gross
		listNet := rrpPrice.Net
		if listNet.IsZero() {
			listNet = t.netFromGross(listGross)
		}
		payload.ListGross = &listGross
		payload.ListNet = &listNet
	}

	return payload
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// BuildMediaAssociations renders a variation's image set as sink media
// associations with deterministic ids, ordered by source position. The first
// image is the cover.
func (t *Transformer) BuildMediaAssociations(variationID string, images []catalog.ItemImage) []catalog.MediaAssociationPayload {
	if len(images) == 0 {
		return nil
	}

	sorted := make([]catalog.ItemImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	associations := make([]catalog.MediaAssociationPayload, 0, len(sorted))
	for i, img := range sorted {
		associations = append(associations, catalog.MediaAssociationPayload{
			AssociationID: DeterministicAssociationID(variationID, img.ID),
			MediaSinkID:   DeterministicMediaID(img.URL),
			SourceURL:     img.URL,
			FileName:      img.FileName,
			Position:      i,
			Cover:         i == 0,
		})
	}
	return associations
}

// LinkedImages filters an item's image pool down to the images explicitly
// linked to one variation. Parents carry the unfiltered pool; children only
// their links.
func LinkedImages(pool []catalog.ItemImage, links []catalog.ImageLink) []catalog.ItemImage {
	if len(links) == 0 {
		return nil
	}
	linked := make(map[string]bool, len(links))
	for _, l := range links {
		linked[l.ImageID] = true
	}
	var subset []catalog.ItemImage
	for _, img := range pool {
		if linked[img.ID] {
			subset = append(subset, img)
		}
	}
	return subset
}

// ---------------------------------------------------------------------------
// Product Payloads
// ---------------------------------------------------------------------------

// ResolvedRefs carries the sink ids a product payload references, resolved by
// the processor from the mapping stores before transformation.
type ResolvedRefs struct {
	CategorySinkIDs    []string
	ManufacturerSinkID string
	UnitSinkID         string
	// PropertySinkIDs are informational property option ids.
	PropertySinkIDs []string
	// OptionSinkIDs are variant-defining option ids; only children carry
	// them.
	OptionSinkIDs []string
}

// BuildParentPayload transforms a parent-candidate variation. Parents carry
// no parent reference and no variant-defining options, but the full media
// pool and full translations.
func (t *Transformer) BuildParentPayload(v catalog.Variation, refs ResolvedRefs, priceTypes map[string]catalog.SalesPriceType, existingSinkID string) catalog.ProductPayload {
	text, _ := t.PickText(v.Texts)

	return catalog.ProductPayload{
		ReferenceKey:       v.ID,
		SinkID:             existingSinkID,
		SKU:                v.Number,
		EAN:                v.EAN,
		Name:               text.Name,
		Description:        text.Description,
		Active:             true,
		Price:              t.BuildPrice(v.Prices, priceTypes, t.defaultCurrency),
		ManufacturerSinkID: refs.ManufacturerSinkID,
		UnitSinkID:         refs.UnitSinkID,
		CategorySinkIDs:    refs.CategorySinkIDs,
		PropertySinkIDs:    refs.PropertySinkIDs,
		Media:              t.BuildMediaAssociations(v.ID, v.Images),
		Translations:       t.Translations(v.Texts),
	}
}

// BuildChildPayload transforms a child variation: parent reference, variant
// options, and only the explicitly linked media subset.
func (t *Transformer) BuildChildPayload(v catalog.Variation, parentSinkID string, refs ResolvedRefs, priceTypes map[string]catalog.SalesPriceType, existingSinkID string) catalog.ProductPayload {
	text, _ := t.PickText(v.Texts)

	return catalog.ProductPayload{
		ReferenceKey:       v.ID,
		SinkID:             existingSinkID,
		ParentSinkID:       parentSinkID,
		SKU:                v.Number,
		EAN:                v.EAN,
		Name:               text.Name,
		Description:        text.Description,
		Active:             true,
		Price:              t.BuildPrice(v.Prices, priceTypes, t.defaultCurrency),
		ManufacturerSinkID: refs.ManufacturerSinkID,
		UnitSinkID:         refs.UnitSinkID,
		CategorySinkIDs:    refs.CategorySinkIDs,
		PropertySinkIDs:    refs.PropertySinkIDs,
		OptionSinkIDs:      refs.OptionSinkIDs,
		Media:              t.BuildMediaAssociations(v.ID, LinkedImages(v.Images, v.ImageLinks)),
		Translations:       t.Translations(v.Texts),
	}
}

// ---------------------------------------------------------------------------
// Config Payloads
// ---------------------------------------------------------------------------

// displayTypeFor maps a source attribute display type to the sink's property
// display type. Closed table with an explicit text fallback.
func displayTypeFor(sourceType string) catalog.PropertyDisplayType {
	switch strings.ToLower(sourceType) {
	case "image":
		return catalog.PropertyDisplayTypeMedia
	case "dropdown", "select", "box":
		return catalog.PropertyDisplayTypeSelect
	case "color":
		return catalog.PropertyDisplayTypeColor
	default:
		return catalog.PropertyDisplayTypeText
	}
}

// BuildCategoryPayload transforms a source category. parentSinkID is empty
// for roots.
func (t *Transformer) BuildCategoryPayload(c catalog.Category, parentSinkID, existingSinkID string) catalog.CategoryPayload {
	text, _ := t.PickText(c.Texts)
	return catalog.CategoryPayload{
		ReferenceKey: c.ID,
		SinkID:       existingSinkID,
		ParentSinkID: parentSinkID,
		Name:         text.Name,
		Position:     c.Position,
		Active:       true,
		Translations: t.Translations(c.Texts),
	}
}

// BuildPropertyGroupPayload transforms a source attribute into a sink
// property group.
func (t *Transformer) BuildPropertyGroupPayload(a catalog.Attribute, position int, existingSinkID string) catalog.PropertyGroupPayload {
	text, _ := t.PickText(a.Texts)
	name := text.Name
	if name == "" {
		name = a.BackendName
	}
	return catalog.PropertyGroupPayload{
		ReferenceKey: a.ID,
		SinkID:       existingSinkID,
		Name:         name,
		DisplayType:  displayTypeFor(a.DisplayType),
		Position:     position,
		Translations: t.Translations(a.Texts),
	}
}

// BuildPropertyOptionPayload transforms a source attribute value into a sink
// property option. groupSinkID comes from phase one's group mapping;
// mediaSinkID is empty for values without an image.
func (t *Transformer) BuildPropertyOptionPayload(v catalog.AttributeValue, groupSinkID, mediaSinkID, existingSinkID string) catalog.PropertyOptionPayload {
	text, _ := t.PickText(v.Texts)
	return catalog.PropertyOptionPayload{
		ReferenceKey: v.ID,
		SinkID:       existingSinkID,
		GroupSinkID:  groupSinkID,
		Name:         text.Name,
		MediaSinkID:  mediaSinkID,
		Position:     v.Position,
		Translations: t.Translations(v.Texts),
	}
}

// BuildManufacturerPayload transforms a source manufacturer.
func (t *Transformer) BuildManufacturerPayload(m catalog.Manufacturer, logoMediaID, existingSinkID string) catalog.ManufacturerPayload {
	return catalog.ManufacturerPayload{
		ReferenceKey: m.ID,
		SinkID:       existingSinkID,
		Name:         m.Name,
		LogoMediaID:  logoMediaID,
	}
}

// BuildUnitPayload transforms a source unit.
func (t *Transformer) BuildUnitPayload(u catalog.Unit, existingSinkID string) catalog.UnitPayload {
	text, _ := t.PickText(u.Texts)
	name := text.Name
	if name == "" {
		name = u.UnitOfMeasurement
	}
	return catalog.UnitPayload{
		ReferenceKey: u.ID,
		SinkID:       existingSinkID,
		ShortCode:    u.UnitOfMeasurement,
		Name:         name,
		Translations: t.Translations(u.Texts),
	}
}
