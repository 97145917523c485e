package catalog

import (
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Sink Payloads
// ---------------------------------------------------------------------------
// Well-typed DTOs for the sink's bulk upsert API. Optional-field presence is
// explicit (pointers / zero checks), never a runtime key delete. Every payload
// carries a ReferenceKey (the source id) so per-item bulk results can be
// correlated back for mapping commits.

// EntityKind names a sink entity type for bulk upserts.
type EntityKind string

const (
	EntityKindCategory       EntityKind = "category"
	EntityKindPropertyGroup  EntityKind = "property_group"
	EntityKindPropertyOption EntityKind = "property_option"
	EntityKindManufacturer   EntityKind = "manufacturer"
	EntityKindUnit           EntityKind = "unit"
	EntityKindProduct        EntityKind = "product"
)

// BulkAction is what the sink did with one item.
type BulkAction string

const (
	BulkActionCreate BulkAction = "create"
	BulkActionUpdate BulkAction = "update"
)

// BulkPayload is implemented by every sink payload type.
type BulkPayload interface {
	// Reference returns the source id used to correlate bulk results.
	Reference() string
}

// BulkResult is the sink's per-item outcome of a bulk upsert.
type BulkResult struct {
	ReferenceKey string
	SinkID       string
	Action       BulkAction
	Success      bool
	ErrorMessage string
}

// Translation is one locale's worth of translatable fields.
type Translation struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryPayload upserts one category. SinkID empty means the sink assigns
// one; ParentSinkID empty means root.
type CategoryPayload struct {
	ReferenceKey string                 `json:"-"`
	SinkID       string                 `json:"id,omitempty"`
	ParentSinkID string                 `json:"parentId,omitempty"`
	Name         string                 `json:"name"`
	Position     int                    `json:"position"`
	Active       bool                   `json:"active"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p CategoryPayload) Reference() string { return p.ReferenceKey }

// PropertyDisplayType is the sink-side rendering of a property group.
type PropertyDisplayType string

const (
	PropertyDisplayTypeText   PropertyDisplayType = "text"
	PropertyDisplayTypeSelect PropertyDisplayType = "select"
	PropertyDisplayTypeMedia  PropertyDisplayType = "media"
	PropertyDisplayTypeColor  PropertyDisplayType = "color"
)

// PropertyGroupPayload upserts one property group (source attribute).
type PropertyGroupPayload struct {
	ReferenceKey string                 `json:"-"`
	SinkID       string                 `json:"id,omitempty"`
	Name         string                 `json:"name"`
	DisplayType  PropertyDisplayType    `json:"displayType"`
	Position     int                    `json:"position"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p PropertyGroupPayload) Reference() string { return p.ReferenceKey }

// PropertyOptionPayload upserts one property option (source attribute value).
// GroupSinkID must already be resolved from the group mapping.
type PropertyOptionPayload struct {
	ReferenceKey string                 `json:"-"`
	SinkID       string                 `json:"id,omitempty"`
	GroupSinkID  string                 `json:"groupId"`
	Name         string                 `json:"name"`
	MediaSinkID  string                 `json:"mediaId,omitempty"`
	Position     int                    `json:"position"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p PropertyOptionPayload) Reference() string { return p.ReferenceKey }

// ManufacturerPayload upserts one manufacturer.
type ManufacturerPayload struct {
	ReferenceKey string                 `json:"-"`
	SinkID       string                 `json:"id,omitempty"`
	Name         string                 `json:"name"`
	LogoMediaID  string                 `json:"mediaId,omitempty"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p ManufacturerPayload) Reference() string { return p.ReferenceKey }

// UnitPayload upserts one measurement unit.
type UnitPayload struct {
	ReferenceKey string                 `json:"-"`
	SinkID       string                 `json:"id,omitempty"`
	ShortCode    string                 `json:"shortCode"`
	Name         string                 `json:"name"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p UnitPayload) Reference() string { return p.ReferenceKey }

// PricePayload is the embedded product price.
type PricePayload struct {
	Currency  string           `json:"currency"`
	Gross     decimal.Decimal  `json:"gross"`
	Net       decimal.Decimal  `json:"net"`
	ListGross *decimal.Decimal `json:"listPriceGross,omitempty"`
	ListNet   *decimal.Decimal `json:"listPriceNet,omitempty"`
}

// MediaAssociationPayload links a media resource to a product. AssociationID
// is derived deterministically from variation id + image id so re-syncs upsert
// the same association instead of duplicating it.
type MediaAssociationPayload struct {
	AssociationID string `json:"id"`
	MediaSinkID   string `json:"mediaId"`
	SourceURL     string `json:"-"`
	FileName      string `json:"-"`
	Position      int    `json:"position"`
	Cover         bool   `json:"cover"`
}

// ProductPayload upserts one product. Parents have no ParentSinkID and no
// variant-defining OptionSinkIDs; children have both.
type ProductPayload struct {
	ReferenceKey       string                    `json:"-"`
	SinkID             string                    `json:"id,omitempty"`
	ParentSinkID       string                    `json:"parentId,omitempty"`
	SKU                string                    `json:"productNumber"`
	EAN                string                    `json:"ean,omitempty"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description,omitempty"`
	Active             bool                      `json:"active"`
	Price              *PricePayload             `json:"price,omitempty"`
	ManufacturerSinkID string                    `json:"manufacturerId,omitempty"`
	UnitSinkID         string                    `json:"unitId,omitempty"`
	CategorySinkIDs    []string                  `json:"categoryIds,omitempty"`
	PropertySinkIDs    []string                  `json:"propertyIds,omitempty"`
	OptionSinkIDs      []string                  `json:"optionIds,omitempty"`
	Media              []MediaAssociationPayload `json:"media,omitempty"`
	Translations       map[string]Translation    `json:"translations,omitempty"`
}

// Reference implements BulkPayload.
func (p ProductPayload) Reference() string { return p.ReferenceKey }

// IsParent reports whether the payload represents a parent product.
func (p ProductPayload) IsParent() bool { return p.ParentSinkID == "" }

// StockUpdate addresses one product's stock by its immutable sink id, never by
// a mutable SKU.
type StockUpdate struct {
	SinkProductID string          `json:"id"`
	Stock         decimal.Decimal `json:"stock"`
}

// Reference implements BulkPayload.
func (u StockUpdate) Reference() string { return u.SinkProductID }
