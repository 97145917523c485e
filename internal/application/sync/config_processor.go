package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/mapping"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ConfigSyncProcessor synchronizes the source config collections (categories,
// attributes, manufacturers, units, sales prices) to the sink: fetch, cache,
// map, bulk-upsert, commit mappings. Sales prices are cached only; their
// values travel embedded in product payloads.
type ConfigSyncProcessor struct {
	cache           *CachedConfigService
	mappings        mapping.EntityMappingStore
	mediaFolderName string
	batchSize       int
	logger          *zap.Logger
}

// NewConfigSyncProcessor creates a new config sync processor
func NewConfigSyncProcessor(
	cache *CachedConfigService,
	mappings mapping.EntityMappingStore,
	mediaFolderName string,
	batchSize int,
	logger *zap.Logger,
) *ConfigSyncProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ConfigSyncProcessor{
		cache:           cache,
		mappings:        mappings,
		mediaFolderName: mediaFolderName,
		batchSize:       batchSize,
		logger:          logger,
	}
}

// Run executes one config sync for a tenant. Fetch failures abort the run;
// per-item sink failures accumulate in the report and the run continues.
func (p *ConfigSyncProcessor) Run(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer) (*syncdomain.RunReport, error) {
	report := syncdomain.NewRunReport(syncdomain.SyncTypeConfig)

	if err := p.syncCategories(ctx, tenantID, source, sink, transformer, report); err != nil {
		return report, err
	}
	if err := p.syncAttributes(ctx, tenantID, source, sink, transformer, report); err != nil {
		return report, err
	}
	if err := p.syncManufacturers(ctx, tenantID, source, sink, transformer, report); err != nil {
		return report, err
	}
	if err := p.syncUnits(ctx, tenantID, source, sink, transformer, report); err != nil {
		return report, err
	}
	if err := p.cacheSalesPrices(ctx, tenantID, source, report); err != nil {
		return report, err
	}

	p.logger.Info("Config sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("items_processed", report.ItemsProcessed),
		zap.Int("items_failed", report.ItemsFailed),
	)
	return report, nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// categoryLevels orders categories by hierarchy depth so every parent is
// submitted before its children. Cycles are cut out of the result and
// reported; an unknown parent id demotes the category to a root.
func categoryLevels(categories []catalog.Category, report *syncdomain.RunReport) [][]catalog.Category {
	byID := make(map[string]catalog.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	depths := make(map[string]int, len(categories))
	maxDepth := 0

	for _, c := range categories {
		visited := make(map[string]bool)
		depth := 0
		cyclic := false

		for cur := c; cur.ParentID != ""; {
			if visited[cur.ID] {
				cyclic = true
				break
			}
			visited[cur.ID] = true

			parent, ok := byID[cur.ParentID]
			if !ok {
				break
			}
			depth++
			cur = parent
		}

		if cyclic {
			cycleErr := &syncdomain.CircularReferenceError{EntityKind: "category", EntityID: c.ID}
			report.AddFailure("category", c.ID, cycleErr.Error())
			continue
		}
		depths[c.ID] = depth
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	levels := make([][]catalog.Category, maxDepth+1)
	for _, c := range categories {
		depth, ok := depths[c.ID]
		if !ok {
			continue
		}
		levels[depth] = append(levels[depth], c)
	}
	for _, level := range levels {
		sort.Slice(level, func(i, j int) bool { return level[i].Position < level[j].Position })
	}
	return levels
}

func (p *ConfigSyncProcessor) syncCategories(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer, report *syncdomain.RunReport) error {
	categories, err := source.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	if err := p.cache.ReplaceCategories(ctx, tenantID, categories); err != nil {
		return fmt.Errorf("cache categories: %w", err)
	}
	if len(categories) == 0 {
		return nil
	}

	ids := make([]string, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	existing, err := p.mappings.GetBySourceIDs(ctx, tenantID, mapping.KindCategory, ids)
	if err != nil {
		return fmt.Errorf("load category mappings: %w", err)
	}

	// resolved accumulates sink ids level by level for parent references.
	resolved := make(map[string]string, len(categories))
	for sourceID, m := range existing {
		resolved[sourceID] = m.SinkID
	}

	for _, level := range categoryLevels(categories, report) {
		payloads := make([]catalog.BulkPayload, 0, len(level))
		for _, c := range level {
			parentSinkID := ""
			if c.ParentID != "" {
				sinkID, ok := resolved[c.ParentID]
				if !ok {
					report.AddFailure("category", c.ID, "parent category "+c.ParentID+" not synced")
					continue
				}
				parentSinkID = sinkID
			}
			payloads = append(payloads, transformer.BuildCategoryPayload(c, parentSinkID, existing[c.ID].SinkID))
		}
		if len(payloads) == 0 {
			continue
		}

		results, err := sink.BulkUpsert(ctx, catalog.EntityKindCategory, payloads)
		if err != nil {
			// Level-wide failure; deeper levels cannot resolve parents but
			// are reported individually when they try.
			for _, payload := range payloads {
				report.AddFailure("category", payload.Reference(), err.Error())
			}
			continue
		}

		committed := p.commitEntityMappings(ctx, tenantID, mapping.KindCategory, "category", results, report)
		for sourceID, sinkID := range committed {
			resolved[sourceID] = sinkID
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

func (p *ConfigSyncProcessor) syncAttributes(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer, report *syncdomain.RunReport) error {
	attributes, err := source.GetAttributes(ctx)
	if err != nil {
		return fmt.Errorf("fetch attributes: %w", err)
	}
	if err := p.cache.ReplaceAttributes(ctx, tenantID, attributes); err != nil {
		return fmt.Errorf("cache attributes: %w", err)
	}
	if len(attributes) == 0 {
		return nil
	}

	// Phase 1: attribute groups.
	groupIDs := make([]string, 0, len(attributes))
	for _, a := range attributes {
		groupIDs = append(groupIDs, a.ID)
	}
	existingGroups, err := p.mappings.GetBySourceIDs(ctx, tenantID, mapping.KindAttribute, groupIDs)
	if err != nil {
		return fmt.Errorf("load attribute mappings: %w", err)
	}

	groupPayloads := make([]catalog.BulkPayload, 0, len(attributes))
	for i, a := range attributes {
		groupPayloads = append(groupPayloads, transformer.BuildPropertyGroupPayload(a, i, existingGroups[a.ID].SinkID))
	}

	groupSinkIDs := make(map[string]string, len(attributes))
	for _, batch := range batchPayloads(groupPayloads, p.batchSize) {
		results, err := sink.BulkUpsert(ctx, catalog.EntityKindPropertyGroup, batch)
		if err != nil {
			for _, payload := range batch {
				report.AddFailure("attribute", payload.Reference(), err.Error())
			}
			continue
		}
		for sourceID, sinkID := range p.commitEntityMappings(ctx, tenantID, mapping.KindAttribute, "attribute", results, report) {
			groupSinkIDs[sourceID] = sinkID
		}
	}

	// Phase 2: attribute values, dependent on phase 1's group mappings.
	var values []catalog.AttributeValue
	for _, a := range attributes {
		values = append(values, a.Values...)
	}
	if len(values) == 0 {
		return nil
	}

	valueIDs := make([]string, 0, len(values))
	for _, v := range values {
		valueIDs = append(valueIDs, v.ID)
	}
	existingValues, err := p.mappings.GetBySourceIDs(ctx, tenantID, mapping.KindAttributeValue, valueIDs)
	if err != nil {
		return fmt.Errorf("load attribute value mappings: %w", err)
	}

	var folderID string
	optionPayloads := make([]catalog.BulkPayload, 0, len(values))
	for _, v := range values {
		groupSinkID, ok := groupSinkIDs[v.AttributeID]
		if !ok {
			report.AddFailure("attribute_value", v.ID, "attribute group "+v.AttributeID+" not synced")
			continue
		}

		mediaSinkID := ""
		if v.ImageURL != "" {
			if folderID == "" {
				folderID, err = sink.GetOrCreateMediaFolder(ctx, p.mediaFolderName)
				if err != nil {
					return fmt.Errorf("resolve media folder: %w", err)
				}
			}
			mediaSinkID = p.uploadMedia(ctx, sink, v.ImageURL, folderID, "attribute_value", v.ID)
		}

		optionPayloads = append(optionPayloads, transformer.BuildPropertyOptionPayload(v, groupSinkID, mediaSinkID, existingValues[v.ID].SinkID))
	}

	for _, batch := range batchPayloads(optionPayloads, p.batchSize) {
		results, err := sink.BulkUpsert(ctx, catalog.EntityKindPropertyOption, batch)
		if err != nil {
			for _, payload := range batch {
				report.AddFailure("attribute_value", payload.Reference(), err.Error())
			}
			continue
		}
		p.commitEntityMappings(ctx, tenantID, mapping.KindAttributeValue, "attribute_value", results, report)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Manufacturers
// ---------------------------------------------------------------------------

func (p *ConfigSyncProcessor) syncManufacturers(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer, report *syncdomain.RunReport) error {
	manufacturers, err := source.GetManufacturers(ctx)
	if err != nil {
		return fmt.Errorf("fetch manufacturers: %w", err)
	}
	if err := p.cache.ReplaceManufacturers(ctx, tenantID, manufacturers); err != nil {
		return fmt.Errorf("cache manufacturers: %w", err)
	}
	if len(manufacturers) == 0 {
		return nil
	}

	ids := make([]string, 0, len(manufacturers))
	for _, m := range manufacturers {
		ids = append(ids, m.ID)
	}
	existing, err := p.mappings.GetBySourceIDs(ctx, tenantID, mapping.KindManufacturer, ids)
	if err != nil {
		return fmt.Errorf("load manufacturer mappings: %w", err)
	}

	var folderID string
	payloads := make([]catalog.BulkPayload, 0, len(manufacturers))
	for _, m := range manufacturers {
		logoMediaID := ""
		if m.LogoURL != "" {
			if folderID == "" {
				folderID, err = sink.GetOrCreateMediaFolder(ctx, p.mediaFolderName)
				if err != nil {
					return fmt.Errorf("resolve media folder: %w", err)
				}
			}
			logoMediaID = p.uploadMedia(ctx, sink, m.LogoURL, folderID, "manufacturer", m.ID)
		}
		payloads = append(payloads, transformer.BuildManufacturerPayload(m, logoMediaID, existing[m.ID].SinkID))
	}

	for _, batch := range batchPayloads(payloads, p.batchSize) {
		results, err := sink.BulkUpsert(ctx, catalog.EntityKindManufacturer, batch)
		if err != nil {
			for _, payload := range batch {
				report.AddFailure("manufacturer", payload.Reference(), err.Error())
			}
			continue
		}
		p.commitEntityMappings(ctx, tenantID, mapping.KindManufacturer, "manufacturer", results, report)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Units
// ---------------------------------------------------------------------------

func (p *ConfigSyncProcessor) syncUnits(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient, transformer *Transformer, report *syncdomain.RunReport) error {
	units, err := source.GetUnits(ctx)
	if err != nil {
		return fmt.Errorf("fetch units: %w", err)
	}
	if err := p.cache.ReplaceUnits(ctx, tenantID, units); err != nil {
		return fmt.Errorf("cache units: %w", err)
	}
	if len(units) == 0 {
		return nil
	}

	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	existing, err := p.mappings.GetBySourceIDs(ctx, tenantID, mapping.KindUnit, ids)
	if err != nil {
		return fmt.Errorf("load unit mappings: %w", err)
	}

	payloads := make([]catalog.BulkPayload, 0, len(units))
	for _, u := range units {
		payloads = append(payloads, transformer.BuildUnitPayload(u, existing[u.ID].SinkID))
	}

	for _, batch := range batchPayloads(payloads, p.batchSize) {
		results, err := sink.BulkUpsert(ctx, catalog.EntityKindUnit, batch)
		if err != nil {
			for _, payload := range batch {
				report.AddFailure("unit", payload.Reference(), err.Error())
			}
			continue
		}
		p.commitEntityMappings(ctx, tenantID, mapping.KindUnit, "unit", results, report)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sales Prices
// ---------------------------------------------------------------------------

// cacheSalesPrices mirrors the sales price definitions locally. They are
// never written to the sink as entities; product payloads embed price values
// directly.
func (p *ConfigSyncProcessor) cacheSalesPrices(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, report *syncdomain.RunReport) error {
	prices, err := source.GetSalesPrices(ctx)
	if err != nil {
		return fmt.Errorf("fetch sales prices: %w", err)
	}
	if err := p.cache.ReplaceSalesPrices(ctx, tenantID, prices); err != nil {
		return fmt.Errorf("cache sales prices: %w", err)
	}
	for range prices {
		report.AddSuccess()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared Helpers
// ---------------------------------------------------------------------------

// uploadMedia uploads one image with a deterministic media id. A failure
// degrades to "entity synced without that image" and never fails the item.
func (p *ConfigSyncProcessor) uploadMedia(ctx context.Context, sink catalog.SinkClient, imageURL, folderID, entityKind, entityID string) string {
	mediaID, err := sink.UploadMediaFromURL(ctx, catalog.MediaUpload{
		URL:      imageURL,
		FileName: fileNameFromURL(imageURL),
		FolderID: folderID,
		MediaID:  DeterministicMediaID(imageURL),
	})
	if err != nil {
		p.logger.Warn("Media upload failed, syncing entity without image",
			zap.String("entity_kind", entityKind),
			zap.String("entity_id", entityID),
			zap.String("url", imageURL),
			zap.Error(err),
		)
		return ""
	}
	return mediaID
}

// commitEntityMappings writes AUTO mappings for successful bulk results and
// records failures. Returns the committed sourceID→sinkID set.
func (p *ConfigSyncProcessor) commitEntityMappings(ctx context.Context, tenantID uuid.UUID, kind mapping.Kind, entityKind string, results []catalog.BulkResult, report *syncdomain.RunReport) map[string]string {
	committed := make(map[string]string, len(results))
	rows := make([]mapping.EntityMapping, 0, len(results))

	for _, r := range results {
		if !r.Success {
			report.AddFailure(entityKind, r.ReferenceKey, r.ErrorMessage)
			continue
		}
		m, err := mapping.NewAutoMapping(tenantID, kind, r.ReferenceKey, r.SinkID, actionFor(r.Action))
		if err != nil {
			report.AddFailure(entityKind, r.ReferenceKey, err.Error())
			continue
		}
		rows = append(rows, *m)
		committed[r.ReferenceKey] = r.SinkID
		report.AddSuccess()
	}

	if len(rows) > 0 {
		if err := p.mappings.UpsertBatch(ctx, rows); err != nil {
			p.logger.Error("Failed to commit entity mappings",
				zap.String("tenant_id", tenantID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}
	return committed
}

// actionFor converts a sink bulk action to a mapping action.
func actionFor(action catalog.BulkAction) mapping.Action {
	if action == catalog.BulkActionCreate {
		return mapping.ActionCreate
	}
	return mapping.ActionUpdate
}

// batchPayloads splits payloads into fixed-size batches.
func batchPayloads(payloads []catalog.BulkPayload, size int) [][]catalog.BulkPayload {
	if len(payloads) == 0 {
		return nil
	}
	var batches [][]catalog.BulkPayload
	for start := 0; start < len(payloads); start += size {
		end := start + size
		if end > len(payloads) {
			end = len(payloads)
		}
		batches = append(batches, payloads[start:end])
	}
	return batches
}

// fileNameFromURL extracts the last path segment of a URL for filename-based
// media dedup.
func fileNameFromURL(rawURL string) string {
	for i := len(rawURL) - 1; i >= 0; i-- {
		if rawURL[i] == '/' {
			name := rawURL[i+1:]
			if name == "" {
				return rawURL
			}
			return name
		}
	}
	return rawURL
}
