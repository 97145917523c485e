package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/mapping"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ProductSyncProcessor synchronizes products: variations grouped by item,
// parents in phase one, children in phase two, with on-demand dependency
// resolution from the cached config mirror and per-item mapping commits.
type ProductSyncProcessor struct {
	cache           *CachedConfigService
	entityMappings  mapping.EntityMappingStore
	productMappings mapping.ProductMappingStore
	states          syncdomain.SyncStateRepository
	batchSize       int
	mediaFolderName string
	logger          *zap.Logger
}

// NewProductSyncProcessor creates a new product sync processor
func NewProductSyncProcessor(
	cache *CachedConfigService,
	entityMappings mapping.EntityMappingStore,
	productMappings mapping.ProductMappingStore,
	states syncdomain.SyncStateRepository,
	batchSize int,
	mediaFolderName string,
	logger *zap.Logger,
) *ProductSyncProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ProductSyncProcessor{
		cache:           cache,
		entityMappings:  entityMappings,
		productMappings: productMappings,
		states:          states,
		batchSize:       batchSize,
		mediaFolderName: mediaFolderName,
		logger:          logger,
	}
}

// Run executes one product sync. syncType selects delta or full; a delta run
// without a prior watermark silently falls back to a full fetch.
func (p *ProductSyncProcessor) Run(ctx context.Context, tenantID uuid.UUID, syncType syncdomain.SyncType, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer) (*syncdomain.RunReport, error) {
	report := syncdomain.NewRunReport(syncType)

	// A config sync must have completed first; dependency resolution works
	// off its cached mirror.
	if _, err := p.cache.ConfigWatermark(ctx, tenantID); err != nil {
		return report, err
	}

	query := catalog.VariationQuery{With: catalog.AllVariationRelations()}
	if syncType == syncdomain.SyncTypeProductDelta {
		if since := p.deltaCutoff(ctx, tenantID); since != nil {
			query.UpdatedSince = since
		}
	}

	variations, err := source.GetAllVariations(ctx, query)
	if err != nil {
		return report, fmt.Errorf("fetch variations: %w", err)
	}
	if len(variations) == 0 {
		return report, nil
	}

	groups := groupVariations(variations)

	// The parents' media pool is the item-level image set; children filter it
	// down to their explicit links.
	itemIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		itemIDs = append(itemIDs, g.itemID)
	}
	pools, err := source.GetItemImages(ctx, itemIDs)
	if err != nil {
		return report, fmt.Errorf("fetch item images: %w", err)
	}
	for i := range groups {
		groups[i].pool = pools[groups[i].itemID]
	}

	priceTypes, err := p.cache.PriceTypes(ctx, tenantID)
	if err != nil {
		return report, fmt.Errorf("load cached price types: %w", err)
	}

	resolution, err := p.resolveDependencies(ctx, tenantID, variations, sink, transformer)
	if err != nil {
		return report, err
	}

	existing, err := p.loadExistingMappings(ctx, tenantID, variations)
	if err != nil {
		return report, err
	}

	// Phase 1: parents.
	parentSinkIDs := p.syncParents(ctx, tenantID, groups, resolution, priceTypes, existing, sink, transformer, report)

	// Phase 2: children, restricted to groups whose parent succeeded.
	p.syncChildren(ctx, tenantID, groups, parentSinkIDs, resolution, priceTypes, existing, sink, transformer, report)

	p.logger.Info("Product sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("sync_type", string(syncType)),
		zap.Int("groups", len(groups)),
		zap.Int("items_processed", report.ItemsProcessed),
		zap.Int("items_failed", report.ItemsFailed),
	)
	return report, nil
}

// deltaCutoff returns the PRODUCT_DELTA success watermark, or nil for the
// fallback-to-full behavior.
func (p *ProductSyncProcessor) deltaCutoff(ctx context.Context, tenantID uuid.UUID) *time.Time {
	state, err := p.states.Get(ctx, tenantID, syncdomain.SyncTypeProductDelta)
	if err != nil || state.LastSuccessfulSyncAt == nil {
		p.logger.Info("No delta watermark, falling back to full fetch",
			zap.String("tenant_id", tenantID.String()),
		)
		return nil
	}
	return state.LastSuccessfulSyncAt
}

// ---------------------------------------------------------------------------
// Grouping
// ---------------------------------------------------------------------------

// productGroup is one source item: a parent candidate plus its children and
// the item-level media pool.
type productGroup struct {
	itemID   string
	parent   catalog.Variation
	children []catalog.Variation
	pool     []catalog.ItemImage
}

// groupVariations groups variations by item id. The main variation is the
// parent candidate; a fetch window without one (possible mid-delta) promotes
// the first child instead of dropping the group.
func groupVariations(variations []catalog.Variation) []productGroup {
	byItem := make(map[string][]catalog.Variation)
	order := make([]string, 0)
	for _, v := range variations {
		if _, seen := byItem[v.ItemID]; !seen {
			order = append(order, v.ItemID)
		}
		byItem[v.ItemID] = append(byItem[v.ItemID], v)
	}

	groups := make([]productGroup, 0, len(order))
	for _, itemID := range order {
		members := byItem[itemID]
		g := productGroup{itemID: itemID}

		mainIdx := -1
		for i, v := range members {
			if v.IsMain {
				mainIdx = i
				break
			}
		}
		if mainIdx < 0 {
			mainIdx = 0
		}
		g.parent = members[mainIdx]
		for i, v := range members {
			if i != mainIdx {
				g.children = append(g.children, v)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// loadExistingMappings fetches the product mappings for every variation in
// the window, keyed by source variation id.
func (p *ProductSyncProcessor) loadExistingMappings(ctx context.Context, tenantID uuid.UUID, variations []catalog.Variation) (map[string]mapping.ProductMapping, error) {
	ids := make([]string, 0, len(variations))
	for _, v := range variations {
		ids = append(ids, v.ID)
	}
	existing, err := p.productMappings.GetByVariationIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load product mappings: %w", err)
	}
	return existing, nil
}

// ---------------------------------------------------------------------------
// Phase 1: Parents
// ---------------------------------------------------------------------------

// syncParents writes parent payloads in fixed-size batches and returns the
// sink product id per item id for the groups whose parent succeeded.
func (p *ProductSyncProcessor) syncParents(
	ctx context.Context,
	tenantID uuid.UUID,
	groups []productGroup,
	resolution *refResolution,
	priceTypes map[string]catalog.SalesPriceType,
	existing map[string]mapping.ProductMapping,
	sink catalog.SinkClient,
	transformer *Transformer,
	report *syncdomain.RunReport,
) map[string]string {
	parentSinkIDs := make(map[string]string, len(groups))

	for start := 0; start < len(groups); start += p.batchSize {
		end := start + p.batchSize
		if end > len(groups) {
			end = len(groups)
		}
		batch := groups[start:end]

		payloads := make([]catalog.BulkPayload, 0, len(batch))
		byReference := make(map[string]*productGroup, len(batch))
		for i := range batch {
			g := &batch[i]
			parent := g.parent
			parent.Images = g.pool

			refs := resolution.refsFor(parent, false, report)
			payload := transformer.BuildParentPayload(parent, refs, priceTypes, existing[parent.ID].SinkProductID)
			payload.Media = p.ensureMediaUploaded(ctx, sink, payload.Media)

			payloads = append(payloads, payload)
			byReference[parent.ID] = g
		}

		results, err := sink.BulkUpsert(ctx, catalog.EntityKindProduct, payloads)
		if err != nil {
			// Batch-level failure: every item in this batch fails, later
			// batches still run.
			for _, payload := range payloads {
				report.AddFailure("product", payload.Reference(), err.Error())
			}
			continue
		}

		rows := make([]mapping.ProductMapping, 0, len(results))
		for i, r := range results {
			g := byReference[r.ReferenceKey]
			if g == nil {
				continue
			}
			if !r.Success {
				report.AddFailure("product", r.ReferenceKey, r.ErrorMessage)
				continue
			}

			row, err := mapping.NewProductMapping(tenantID, g.itemID, r.ReferenceKey, r.SinkID, true, "", actionFor(r.Action))
			if err != nil {
				report.AddFailure("product", r.ReferenceKey, err.Error())
				continue
			}
			rows = append(rows, *row)
			parentSinkIDs[g.itemID] = r.SinkID
			report.AddSuccess()

			if payload, ok := payloads[i].(catalog.ProductPayload); ok {
				p.reconcileMedia(ctx, sink, r.SinkID, payload.Media)
			}
		}

		if len(rows) > 0 {
			if err := p.productMappings.UpsertBatch(ctx, rows); err != nil {
				p.logger.Error("Failed to commit parent product mappings",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err),
				)
			}
		}
	}
	return parentSinkIDs
}

// ---------------------------------------------------------------------------
// Phase 2: Children
// ---------------------------------------------------------------------------

func (p *ProductSyncProcessor) syncChildren(
	ctx context.Context,
	tenantID uuid.UUID,
	groups []productGroup,
	parentSinkIDs map[string]string,
	resolution *refResolution,
	priceTypes map[string]catalog.SalesPriceType,
	existing map[string]mapping.ProductMapping,
	sink catalog.SinkClient,
	transformer *Transformer,
	report *syncdomain.RunReport,
) {
	type childEntry struct {
		variation    catalog.Variation
		itemID       string
		parentSinkID string
	}

	var children []childEntry
	for _, g := range groups {
		parentSinkID, ok := parentSinkIDs[g.itemID]
		if !ok {
			// Parent failed; its children are not attempted this run.
			continue
		}
		for _, c := range g.children {
			c.Images = g.pool
			children = append(children, childEntry{variation: c, itemID: g.itemID, parentSinkID: parentSinkID})
		}
	}

	for start := 0; start < len(children); start += p.batchSize {
		end := start + p.batchSize
		if end > len(children) {
			end = len(children)
		}
		batch := children[start:end]

		payloads := make([]catalog.BulkPayload, 0, len(batch))
		byReference := make(map[string]childEntry, len(batch))
		for _, entry := range batch {
			refs := resolution.refsFor(entry.variation, true, report)
			payload := transformer.BuildChildPayload(entry.variation, entry.parentSinkID, refs, priceTypes, existing[entry.variation.ID].SinkProductID)
			payload.Media = p.ensureMediaUploaded(ctx, sink, payload.Media)

			payloads = append(payloads, payload)
			byReference[entry.variation.ID] = entry
		}

		results, err := sink.BulkUpsert(ctx, catalog.EntityKindProduct, payloads)
		if err != nil {
			for _, payload := range payloads {
				report.AddFailure("product", payload.Reference(), err.Error())
			}
			continue
		}

		rows := make([]mapping.ProductMapping, 0, len(results))
		for i, r := range results {
			entry, ok := byReference[r.ReferenceKey]
			if !ok {
				continue
			}
			if !r.Success {
				report.AddFailure("product", r.ReferenceKey, r.ErrorMessage)
				continue
			}

			row, err := mapping.NewProductMapping(tenantID, entry.itemID, r.ReferenceKey, r.SinkID, false, entry.parentSinkID, actionFor(r.Action))
			if err != nil {
				report.AddFailure("product", r.ReferenceKey, err.Error())
				continue
			}
			rows = append(rows, *row)
			report.AddSuccess()

			if payload, ok := payloads[i].(catalog.ProductPayload); ok {
				p.reconcileMedia(ctx, sink, r.SinkID, payload.Media)
			}
		}

		if len(rows) > 0 {
			if err := p.productMappings.UpsertBatch(ctx, rows); err != nil {
				p.logger.Error("Failed to commit child product mappings",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// ensureMediaUploaded uploads every referenced media resource under its
// deterministic id. An upload failure drops only that association; the
// product still syncs without the image.
func (p *ProductSyncProcessor) ensureMediaUploaded(ctx context.Context, sink catalog.SinkClient, media []catalog.MediaAssociationPayload) []catalog.MediaAssociationPayload {
	if len(media) == 0 {
		return nil
	}

	folderID, err := sink.GetOrCreateMediaFolder(ctx, p.mediaFolderName)
	if err != nil {
		p.logger.Warn("Media folder unavailable, products sync without images", zap.Error(err))
		return nil
	}

	kept := make([]catalog.MediaAssociationPayload, 0, len(media))
	for _, m := range media {
		if _, err := sink.UploadMediaFromURL(ctx, catalog.MediaUpload{
			URL:      m.SourceURL,
			FileName: m.FileName,
			FolderID: folderID,
			MediaID:  m.MediaSinkID,
		}); err != nil {
			p.logger.Warn("Media upload failed, dropping association",
				zap.String("url", m.SourceURL),
				zap.Error(err),
			)
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// reconcileMedia removes sink media associations that are no longer part of
// the current item set. Only called for successfully upserted products.
func (p *ProductSyncProcessor) reconcileMedia(ctx context.Context, sink catalog.SinkClient, sinkProductID string, current []catalog.MediaAssociationPayload) {
	attached, err := sink.ListProductMedia(ctx, sinkProductID)
	if err != nil {
		p.logger.Warn("Failed to list product media for reconciliation",
			zap.String("sink_product_id", sinkProductID),
			zap.Error(err),
		)
		return
	}
	if len(attached) == 0 {
		return
	}

	wanted := make(map[string]bool, len(current))
	for _, m := range current {
		wanted[m.AssociationID] = true
	}

	var orphaned []string
	for _, a := range attached {
		if !wanted[a.AssociationID] {
			orphaned = append(orphaned, a.AssociationID)
		}
	}
	if len(orphaned) == 0 {
		return
	}

	if err := sink.RemoveProductMedia(ctx, sinkProductID, orphaned); err != nil {
		p.logger.Warn("Failed to remove orphaned media associations",
			zap.String("sink_product_id", sinkProductID),
			zap.Int("count", len(orphaned)),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Dependency Resolution
// ---------------------------------------------------------------------------

// refResolution holds every sink id the current window's variations
// reference, resolved up front and extended on demand.
type refResolution struct {
	categories    map[string]string
	manufacturers map[string]string
	units         map[string]string
	options       map[string]string
	logger        *zap.Logger
}

// refsFor assembles the resolved references of one variation. Unresolvable
// references are logged and omitted; they never fail the item by themselves.
// Variant options go into OptionSinkIDs only for children.
func (r *refResolution) refsFor(v catalog.Variation, child bool, report *syncdomain.RunReport) ResolvedRefs {
	refs := ResolvedRefs{}

	for _, catID := range v.CategoryIDs {
		if sinkID, ok := r.categories[catID]; ok {
			refs.CategorySinkIDs = append(refs.CategorySinkIDs, sinkID)
		} else {
			r.logger.Warn("Category unresolved, omitting from product",
				zap.String("variation_id", v.ID),
				zap.String("category_id", catID),
			)
		}
	}

	if v.ManufacturerID != "" {
		refs.ManufacturerSinkID = r.manufacturers[v.ManufacturerID]
	}
	if v.UnitID != "" {
		refs.UnitSinkID = r.units[v.UnitID]
	}

	for _, prop := range v.Properties {
		if sinkID, ok := r.options[prop.PropertyID]; ok {
			refs.PropertySinkIDs = append(refs.PropertySinkIDs, sinkID)
		}
	}

	if child {
		for _, av := range v.AttributeValues {
			if sinkID, ok := r.options[av.ValueID]; ok {
				refs.OptionSinkIDs = append(refs.OptionSinkIDs, sinkID)
			} else {
				r.logger.Warn("Variant option unresolved, omitting from product",
					zap.String("variation_id", v.ID),
					zap.String("value_id", av.ValueID),
				)
			}
		}
	}
	return refs
}

// resolveDependencies batch-loads the mappings every variation references and
// creates whatever is missing from the cached config mirror: category chains
// level-ascending with cycle detection, attribute groups before their values,
// manufacturers and units directly.
func (p *ProductSyncProcessor) resolveDependencies(ctx context.Context, tenantID uuid.UUID, variations []catalog.Variation, sink catalog.SinkClient, transformer *Transformer) (*refResolution, error) {
	categoryIDs := make(map[string]bool)
	manufacturerIDs := make(map[string]bool)
	unitIDs := make(map[string]bool)
	optionIDs := make(map[string]bool)

	for _, v := range variations {
		for _, id := range v.CategoryIDs {
			categoryIDs[id] = true
		}
		if v.ManufacturerID != "" {
			manufacturerIDs[v.ManufacturerID] = true
		}
		if v.UnitID != "" {
			unitIDs[v.UnitID] = true
		}
		for _, av := range v.AttributeValues {
			optionIDs[av.ValueID] = true
		}
		for _, prop := range v.Properties {
			optionIDs[prop.PropertyID] = true
		}
	}

	resolution := &refResolution{logger: p.logger}
	var err error

	resolution.categories, err = p.loadKindMappings(ctx, tenantID, mapping.KindCategory, categoryIDs)
	if err != nil {
		return nil, err
	}
	resolution.manufacturers, err = p.loadKindMappings(ctx, tenantID, mapping.KindManufacturer, manufacturerIDs)
	if err != nil {
		return nil, err
	}
	resolution.units, err = p.loadKindMappings(ctx, tenantID, mapping.KindUnit, unitIDs)
	if err != nil {
		return nil, err
	}
	resolution.options, err = p.loadKindMappings(ctx, tenantID, mapping.KindAttributeValue, optionIDs)
	if err != nil {
		return nil, err
	}

	if err := p.resolveMissingCategories(ctx, tenantID, keysMissingFrom(categoryIDs, resolution.categories), resolution, sink, transformer); err != nil {
		return nil, err
	}
	if err := p.resolveMissingOptions(ctx, tenantID, keysMissingFrom(optionIDs, resolution.options), resolution, sink, transformer); err != nil {
		return nil, err
	}
	if err := p.resolveMissingManufacturers(ctx, tenantID, keysMissingFrom(manufacturerIDs, resolution.manufacturers), resolution, sink, transformer); err != nil {
		return nil, err
	}
	if err := p.resolveMissingUnits(ctx, tenantID, keysMissingFrom(unitIDs, resolution.units), resolution, sink, transformer); err != nil {
		return nil, err
	}

	return resolution, nil
}

func (p *ProductSyncProcessor) loadKindMappings(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, ids map[string]bool) (map[string]string, error) {
	resolved := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	sourceIDs := make([]string, 0, len(ids))
	for id := range ids {
		sourceIDs = append(sourceIDs, id)
	}
	existing, err := p.entityMappings.GetBySourceIDs(ctx, tenantID, kind, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("load %s mappings: %w", kind, err)
	}
	for sourceID, m := range existing {
		resolved[sourceID] = m.SinkID
	}
	return resolved, nil
}

// keysMissingFrom returns the referenced ids without a resolved sink id, in
// deterministic order.
func keysMissingFrom(referenced map[string]bool, resolved map[string]string) []string {
	var missing []string
	for id := range referenced {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// resolveMissingCategories creates missing categories from the cached mirror,
// whole ancestor chains at a time, parents before children. A cycle aborts
// only the affected chain.
func (p *ProductSyncProcessor) resolveMissingCategories(ctx context.Context, tenantID uuid.UUID, missing []string, resolution *refResolution, sink catalog.SinkClient, transformer *Transformer) error {
	if len(missing) == 0 {
		return nil
	}

	cached, err := p.cache.Categories(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load cached categories: %w", err)
	}
	byID := make(map[string]catalog.Category, len(cached))
	for _, c := range cached {
		byID[c.ID] = c
	}

	for _, id := range missing {
		if _, ok := resolution.categories[id]; ok {
			continue
		}

		// Walk up to the first already-resolved ancestor, collecting the
		// chain to create top-down.
		var chain []catalog.Category
		visited := make(map[string]bool)
		cyclic := false

		for cur, ok := byID[id]; ok; cur, ok = byID[cur.ParentID] {
			if visited[cur.ID] {
				cyclic = true
				break
			}
			visited[cur.ID] = true
			chain = append(chain, cur)
			if cur.ParentID == "" {
				break
			}
			if _, resolved := resolution.categories[cur.ParentID]; resolved {
				break
			}
		}

		if cyclic {
			p.logger.Warn("Aborting category chain",
				zap.Error(&syncdomain.CircularReferenceError{EntityKind: "category", EntityID: id}),
			)
			continue
		}
		if len(chain) == 0 {
			p.logger.Warn("Category missing from cached config, skipping",
				zap.String("category_id", id),
			)
			continue
		}

		// chain is child-first; create ancestors first.
		for i := len(chain) - 1; i >= 0; i-- {
			c := chain[i]
			if _, ok := resolution.categories[c.ID]; ok {
				continue
			}
			parentSinkID := ""
			if c.ParentID != "" {
				resolvedParent, ok := resolution.categories[c.ParentID]
				if !ok && byID[c.ParentID].ID != "" {
					// Parent creation failed below us; stop this chain.
					break
				}
				parentSinkID = resolvedParent
			}
			sinkID, ok := p.upsertSingle(ctx, tenantID, sink, catalog.EntityKindCategory, mapping.KindCategory,
				transformer.BuildCategoryPayload(c, parentSinkID, ""))
			if !ok {
				break
			}
			resolution.categories[c.ID] = sinkID
		}
	}
	return nil
}

// resolveMissingOptions creates missing property options from the cached
// attribute mirror, ensuring each option's group exists first.
func (p *ProductSyncProcessor) resolveMissingOptions(ctx context.Context, tenantID uuid.UUID, missing []string, resolution *refResolution, sink catalog.SinkClient, transformer *Transformer) error {
	if len(missing) == 0 {
		return nil
	}

	attributes, err := p.cache.Attributes(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load cached attributes: %w", err)
	}

	valueByID := make(map[string]catalog.AttributeValue)
	attributeByID := make(map[string]catalog.Attribute)
	for _, a := range attributes {
		attributeByID[a.ID] = a
		for _, v := range a.Values {
			valueByID[v.ID] = v
		}
	}

	groupIDs := make(map[string]bool)
	for _, id := range missing {
		if v, ok := valueByID[id]; ok {
			groupIDs[v.AttributeID] = true
		}
	}
	groupSinkIDs, err := p.loadKindMappings(ctx, tenantID, mapping.KindAttribute, groupIDs)
	if err != nil {
		return err
	}

	for _, id := range missing {
		v, ok := valueByID[id]
		if !ok {
			p.logger.Warn("Attribute value missing from cached config, skipping",
				zap.String("value_id", id),
			)
			continue
		}

		groupSinkID, ok := groupSinkIDs[v.AttributeID]
		if !ok {
			attribute, cached := attributeByID[v.AttributeID]
			if !cached {
				continue
			}
			groupSinkID, ok = p.upsertSingle(ctx, tenantID, sink, catalog.EntityKindPropertyGroup, mapping.KindAttribute,
				transformer.BuildPropertyGroupPayload(attribute, 0, ""))
			if !ok {
				continue
			}
			groupSinkIDs[v.AttributeID] = groupSinkID
		}

		sinkID, ok := p.upsertSingle(ctx, tenantID, sink, catalog.EntityKindPropertyOption, mapping.KindAttributeValue,
			transformer.BuildPropertyOptionPayload(v, groupSinkID, "", ""))
		if ok {
			resolution.options[id] = sinkID
		}
	}
	return nil
}

func (p *ProductSyncProcessor) resolveMissingManufacturers(ctx context.Context, tenantID uuid.UUID, missing []string, resolution *refResolution, sink catalog.SinkClient, transformer *Transformer) error {
	if len(missing) == 0 {
		return nil
	}

	manufacturers, err := p.cache.Manufacturers(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load cached manufacturers: %w", err)
	}
	byID := make(map[string]catalog.Manufacturer, len(manufacturers))
	for _, m := range manufacturers {
		byID[m.ID] = m
	}

	for _, id := range missing {
		m, ok := byID[id]
		if !ok {
			continue
		}
		sinkID, ok := p.upsertSingle(ctx, tenantID, sink, catalog.EntityKindManufacturer, mapping.KindManufacturer,
			transformer.BuildManufacturerPayload(m, "", ""))
		if ok {
			resolution.manufacturers[id] = sinkID
		}
	}
	return nil
}

func (p *ProductSyncProcessor) resolveMissingUnits(ctx context.Context, tenantID uuid.UUID, missing []string, resolution *refResolution, sink catalog.SinkClient, transformer *Transformer) error {
	if len(missing) == 0 {
		return nil
	}

	units, err := p.cache.Units(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load cached units: %w", err)
	}
	byID := make(map[string]catalog.Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	for _, id := range missing {
		u, ok := byID[id]
		if !ok {
			continue
		}
		sinkID, ok := p.upsertSingle(ctx, tenantID, sink, catalog.EntityKindUnit, mapping.KindUnit,
			transformer.BuildUnitPayload(u, ""))
		if ok {
			resolution.units[id] = sinkID
		}
	}
	return nil
}

// upsertSingle writes one dependency payload and commits its AUTO mapping.
// Failures are logged and reported as a false second return; the product
// still syncs without the reference.
func (p *ProductSyncProcessor) upsertSingle(ctx context.Context, tenantID uuid.UUID, sink catalog.SinkClient, entityKind catalog.EntityKind, kind mapping.Kind, payload catalog.BulkPayload) (string, bool) {
	results, err := sink.BulkUpsert(ctx, entityKind, []catalog.BulkPayload{payload})
	if err != nil || len(results) == 0 || !results[0].Success {
		if err == nil && len(results) > 0 {
			err = errors.New(results[0].ErrorMessage)
		}
		p.logger.Warn("On-demand dependency creation failed",
			zap.String("entity_kind", string(entityKind)),
			zap.String("source_id", payload.Reference()),
			zap.Error(err),
		)
		return "", false
	}

	r := results[0]
	m, err := mapping.NewAutoMapping(tenantID, kind, r.ReferenceKey, r.SinkID, actionFor(r.Action))
	if err == nil {
		if upsertErr := p.entityMappings.UpsertBatch(ctx, []mapping.EntityMapping{*m}); upsertErr != nil {
			p.logger.Error("Failed to commit on-demand mapping",
				zap.String("kind", string(kind)),
				zap.String("source_id", r.ReferenceKey),
				zap.Error(upsertErr),
			)
		}
	}
	return r.SinkID, true
}
