package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSourceUnavailable is returned when the source system cannot be
	// reached after retries.
	ErrSourceUnavailable = errors.New("catalog: source system unavailable")

	// ErrSinkUnavailable is returned when the sink system cannot be reached
	// after retries.
	ErrSinkUnavailable = errors.New("catalog: sink system unavailable")

	// ErrSinkInvalidResponse is returned for an unparseable sink response.
	ErrSinkInvalidResponse = errors.New("catalog: invalid sink response")

	// ErrSourceInvalidResponse is returned for an unparseable source response.
	ErrSourceInvalidResponse = errors.New("catalog: invalid source response")

	// ErrEntityNotFound is returned by lookup operations.
	ErrEntityNotFound = errors.New("catalog: entity not found")
)

// ---------------------------------------------------------------------------
// Source Capability
// ---------------------------------------------------------------------------

// VariationRelations flags the optional associations to include in a
// variation fetch. Explicit flags instead of a loosely-typed "with" string.
type VariationRelations struct {
	SalesPrices     bool
	AttributeValues bool
	Properties      bool
	Images          bool
	Texts           bool
}

// AllVariationRelations includes everything a product sync needs.
func AllVariationRelations() VariationRelations {
	return VariationRelations{
		SalesPrices:     true,
		AttributeValues: true,
		Properties:      true,
		Images:          true,
		Texts:           true,
	}
}

// VariationQuery is a typed request-option struct for variation fetches.
// UpdatedSince nil means a full fetch.
type VariationQuery struct {
	UpdatedSince *time.Time
	With         VariationRelations
	Page         int
	PerPage      int
}

// VariationPage is one page of a paginated variation fetch.
type VariationPage struct {
	Entries    []Variation
	Page       int
	IsLastPage bool
}

// SourceClient is the upstream capability contract: authenticate, paginated
// fetch, delta fetch by watermark, stock snapshot, image metadata fan-out.
type SourceClient interface {
	// Authenticate establishes a session. Called lazily by the other methods;
	// exposed so a job can fail fast on bad credentials.
	Authenticate(ctx context.Context) error

	// GetCategories fetches all categories, driving pagination internally.
	GetCategories(ctx context.Context) ([]Category, error)

	// GetAttributes fetches all attributes with their values.
	GetAttributes(ctx context.Context) ([]Attribute, error)

	// GetManufacturers fetches all manufacturers.
	GetManufacturers(ctx context.Context) ([]Manufacturer, error)

	// GetUnits fetches all units.
	GetUnits(ctx context.Context) ([]Unit, error)

	// GetSalesPrices fetches all sales price definitions.
	GetSalesPrices(ctx context.Context) ([]SalesPrice, error)

	// GetVariationPage fetches one page of variations.
	GetVariationPage(ctx context.Context, query VariationQuery) (*VariationPage, error)

	// GetAllVariations drives GetVariationPage until the last page.
	GetAllVariations(ctx context.Context, query VariationQuery) ([]Variation, error)

	// GetItemImages fetches image metadata for the given item ids with
	// bounded concurrency. Missing items are absent from the result map.
	GetItemImages(ctx context.Context, itemIDs []string) (map[string][]ItemImage, error)

	// GetStock fetches the full per-warehouse stock snapshot. The source has
	// no delta filter for stock.
	GetStock(ctx context.Context) ([]WarehouseStock, error)
}

// ---------------------------------------------------------------------------
// Sink Capability
// ---------------------------------------------------------------------------

// MediaUpload asks the sink to download a file from a URL and register it as
// a media resource. The sink dedups by file name within the folder.
type MediaUpload struct {
	URL      string
	FileName string
	FolderID string
	// MediaID optionally pins the media resource id (deterministic ids keep
	// re-syncs from duplicating uploads). Empty lets the sink assign one.
	MediaID string
}

// SinkClient is the downstream capability contract: client-credentials auth,
// per-entity bulk upsert with per-item results, lookups, media handling.
type SinkClient interface {
	// Authenticate performs the client-credentials flow. Called lazily; the
	// cached token is refreshed on expiry and once on a 401.
	Authenticate(ctx context.Context) error

	// BulkUpsert writes a batch of one entity kind and returns one result per
	// item, in input order.
	BulkUpsert(ctx context.Context, kind EntityKind, items []BulkPayload) ([]BulkResult, error)

	// UpdateStock writes a batch of stock values addressed by sink id.
	UpdateStock(ctx context.Context, updates []StockUpdate) ([]BulkResult, error)

	// ExistsByReference reports whether an entity with the given reference
	// key exists in the sink.
	ExistsByReference(ctx context.Context, kind EntityKind, referenceKey string) (bool, error)

	// GetIDByReference returns the sink id for a reference key, or
	// ErrEntityNotFound.
	GetIDByReference(ctx context.Context, kind EntityKind, referenceKey string) (string, error)

	// GetOrCreateMediaFolder resolves a media folder by name, creating it on
	// first use.
	GetOrCreateMediaFolder(ctx context.Context, name string) (string, error)

	// UploadMediaFromURL makes the sink download and register a file,
	// dedupping by file name. Returns the media sink id.
	UploadMediaFromURL(ctx context.Context, upload MediaUpload) (string, error)

	// ListProductMedia returns the media associations currently attached to a
	// product, for orphan reconciliation.
	ListProductMedia(ctx context.Context, sinkProductID string) ([]MediaAssociationPayload, error)

	// RemoveProductMedia detaches the given associations from a product.
	RemoveProductMedia(ctx context.Context, sinkProductID string, associationIDs []string) error
}
