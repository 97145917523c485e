package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Source Records
// ---------------------------------------------------------------------------
// These mirror the upstream system's wire shapes. The source is authoritative;
// records are cached locally during config syncs and transformed into sink
// payloads during product syncs.

// LocalizedText is one language's name/description pair on a source record.
type LocalizedText struct {
	Lang        string `json:"lang"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Category is a node in the source category tree. ParentID is empty for roots.
type Category struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parentCategoryId,omitempty"`
	Texts     []LocalizedText `json:"texts"`
	Position  int             `json:"position"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AttributeValue is one selectable value of an attribute. Image-bearing values
// trigger a media upload when synced as property options.
type AttributeValue struct {
	ID          string          `json:"id"`
	AttributeID string          `json:"attributeId"`
	Texts       []LocalizedText `json:"texts"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Position    int             `json:"position"`
}

// Attribute is a source attribute group (variant axis) with its values.
type Attribute struct {
	ID          string           `json:"id"`
	BackendName string           `json:"backendName"`
	DisplayType string           `json:"displayType"`
	Texts       []LocalizedText  `json:"texts"`
	Values      []AttributeValue `json:"values"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Manufacturer is a source brand record.
type Manufacturer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logoUrl,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Unit is a source measurement unit.
type Unit struct {
	ID                string          `json:"id"`
	UnitOfMeasurement string          `json:"unitOfMeasurement"`
	Texts             []LocalizedText `json:"texts"`
}

// SalesPriceType classifies a source sales price.
type SalesPriceType string

const (
	SalesPriceTypeDefault SalesPriceType = "default"
	SalesPriceTypeRRP     SalesPriceType = "rrp"
	SalesPriceTypeSpecial SalesPriceType = "specialOffer"
)

// SalesPrice is a source price definition. Cached locally only; price values
// are embedded in product payloads, never written to the sink as entities.
type SalesPrice struct {
	ID        string         `json:"id"`
	Type      SalesPriceType `json:"type"`
	Currency  string         `json:"currency"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// VariationPrice is one concrete price on a variation, referencing a sales
// price definition. Net may be zero when the source only maintains gross.
type VariationPrice struct {
	SalesPriceID string          `json:"salesPriceId"`
	Gross        decimal.Decimal `json:"price"`
	Net          decimal.Decimal `json:"priceNet"`
}

// VariationAttributeValue links a variation to one attribute value; the pair
// defines a variant axis position.
type VariationAttributeValue struct {
	AttributeID string `json:"attributeId"`
	ValueID     string `json:"valueId"`
}

// VariationProperty is a non-variant, informational property of a variation.
type VariationProperty struct {
	PropertyID string          `json:"propertyId"`
	Texts      []LocalizedText `json:"texts"`
}

// ItemImage is one image in an item's media pool.
type ItemImage struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Position int    `json:"position"`
}

// ImageLink marks an image as explicitly linked to a specific variation.
// Parents carry the full pool; children only their links.
type ImageLink struct {
	ImageID string `json:"imageId"`
}

// Variation is the source SKU-level record. The main variation of an item is
// its parent product; the others are children.
type Variation struct {
	ID              string                    `json:"id"`
	ItemID          string                    `json:"itemId"`
	IsMain          bool                      `json:"isMain"`
	Number          string                    `json:"number"`
	EAN             string                    `json:"ean,omitempty"`
	Model           string                    `json:"model,omitempty"`
	ManufacturerID  string                    `json:"manufacturerId,omitempty"`
	UnitID          string                    `json:"unitId,omitempty"`
	CategoryIDs     []string                  `json:"categoryIds"`
	Texts           []LocalizedText           `json:"texts"`
	Prices          []VariationPrice          `json:"salesPrices"`
	AttributeValues []VariationAttributeValue `json:"attributeValues"`
	Properties      []VariationProperty       `json:"properties"`
	Images          []ItemImage               `json:"images"`
	ImageLinks      []ImageLink               `json:"imageLinks"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

// WarehouseStock is one per-warehouse stock entry for a variation. NetStock is
// signed; negative entries reduce the aggregated total.
type WarehouseStock struct {
	VariationID string          `json:"variationId"`
	WarehouseID string          `json:"warehouseId"`
	NetStock    decimal.Decimal `json:"netStock"`
}

// Text returns the localized text for lang, or false.
func Text(texts []LocalizedText, lang string) (LocalizedText, bool) {
	for _, t := range texts {
		if t.Lang == lang {
			return t, true
		}
	}
	return LocalizedText{}, false
}
