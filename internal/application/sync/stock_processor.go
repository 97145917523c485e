package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/mapping"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// StockSyncProcessor pushes stock totals to the sink. The source has no delta
// filter for stock, so every run fetches the full snapshot, aggregates the
// per-warehouse entries into one net total per variation, and addresses
// updates by immutable sink product id. Variations without a product mapping
// have not been product-synced yet and are skipped.
type StockSyncProcessor struct {
	productMappings mapping.ProductMappingStore
	batchSize       int
	logger          *zap.Logger
}

// NewStockSyncProcessor creates a new stock sync processor
func NewStockSyncProcessor(productMappings mapping.ProductMappingStore, batchSize int, logger *zap.Logger) *StockSyncProcessor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &StockSyncProcessor{
		productMappings: productMappings,
		batchSize:       batchSize,
		logger:          logger,
	}
}

// Run executes one stock sync for a tenant.
func (p *StockSyncProcessor) Run(ctx context.Context, tenantID uuid.UUID, source catalog.SourceClient, sink catalog.SinkClient) (*syncdomain.RunReport, error) {
	report := syncdomain.NewRunReport(syncdomain.SyncTypeStock)

	snapshot, err := source.GetStock(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch stock snapshot: %w", err)
	}
	if len(snapshot) == 0 {
		return report, nil
	}

	totals := AggregateStock(snapshot)

	variationIDs := make([]string, 0, len(totals))
	for id := range totals {
		variationIDs = append(variationIDs, id)
	}
	sort.Strings(variationIDs)

	mappings, err := p.productMappings.GetByVariationIDs(ctx, tenantID, variationIDs)
	if err != nil {
		return report, fmt.Errorf("load product mappings: %w", err)
	}

	var updates []catalog.StockUpdate
	skipped := 0
	for _, variationID := range variationIDs {
		m, ok := mappings[variationID]
		if !ok {
			skipped++
			continue
		}
		updates = append(updates, catalog.StockUpdate{
			SinkProductID: m.SinkProductID,
			Stock:         totals[variationID],
		})
	}
	if skipped > 0 {
		p.logger.Debug("Skipped unmapped variations in stock sync",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("skipped", skipped),
		)
	}

	for start := 0; start < len(updates); start += p.batchSize {
		end := start + p.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]

		results, err := sink.UpdateStock(ctx, batch)
		if err != nil {
			// Batch-level failure fails only this batch's items.
			for _, u := range batch {
				report.AddFailure("stock", u.SinkProductID, err.Error())
			}
			continue
		}
		for _, r := range results {
			if r.Success {
				report.AddSuccess()
			} else {
				report.AddFailure("stock", r.ReferenceKey, r.ErrorMessage)
			}
		}
	}

	p.logger.Info("Stock sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("variations", len(totals)),
		zap.Int("updates", len(updates)),
		zap.Int("items_failed", report.ItemsFailed),
	)
	return report, nil
}

// AggregateStock folds per-warehouse entries into one signed net total per
// variation. Negative entries reduce the total.
func AggregateStock(snapshot []catalog.WarehouseStock) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, entry := range snapshot {
		totals[entry.VariationID] = totals[entry.VariationID].Add(entry.NetStock)
	}
	return totals
}
