package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/mapping"
)

func stockEntry(variationID, warehouseID string, net int64) catalog.WarehouseStock {
	return catalog.WarehouseStock{
		VariationID: variationID,
		WarehouseID: warehouseID,
		NetStock:    decimal.NewFromInt(net),
	}
}

func TestAggregateStockSumsSignedEntries(t *testing.T) {
	totals := AggregateStock([]catalog.WarehouseStock{
		stockEntry("var-a", "wh-1", 5),
		stockEntry("var-a", "wh-2", -2),
		stockEntry("var-a", "wh-3", 10),
		stockEntry("var-b", "wh-1", 7),
	})

	require.Len(t, totals, 2)
	assert.True(t, totals["var-a"].Equal(decimal.NewFromInt(13)), "var-a total %s", totals["var-a"])
	assert.True(t, totals["var-b"].Equal(decimal.NewFromInt(7)))
}

func TestStockSyncWritesMappedVariations(t *testing.T) {
	tenantID := uuid.New()
	products := newFakeProductStore()
	row, err := mapping.NewProductMapping(tenantID, "item-1", "var-a", "sink-var-a", true, "", mapping.ActionCreate)
	require.NoError(t, err)
	products.put(*row)

	source := &fakeSource{stock: []catalog.WarehouseStock{
		stockEntry("var-a", "wh-1", 5),
		stockEntry("var-a", "wh-2", -2),
		stockEntry("var-unmapped", "wh-1", 99),
	}}
	sink := newFakeSink()

	processor := NewStockSyncProcessor(products, 100, zap.NewNop())
	report, err := processor.Run(context.Background(), tenantID, source, sink)
	require.NoError(t, err)
	assert.True(t, report.FullySuccessful())
	assert.Equal(t, 1, report.ItemsProcessed)

	// The unmapped variation is skipped, not failed.
	require.Len(t, sink.stockUpdates, 1)
	require.Len(t, sink.stockUpdates[0], 1)
	update := sink.stockUpdates[0][0]
	assert.Equal(t, "sink-var-a", update.SinkProductID)
	assert.True(t, update.Stock.Equal(decimal.NewFromInt(3)), "stock %s", update.Stock)
}

func TestStockSyncBatchFailureIsIsolated(t *testing.T) {
	tenantID := uuid.New()
	products := newFakeProductStore()
	for _, id := range []string{"var-a", "var-b"} {
		row, err := mapping.NewProductMapping(tenantID, "item-"+id, id, "sink-"+id, true, "", mapping.ActionCreate)
		require.NoError(t, err)
		products.put(*row)
	}

	source := &fakeSource{stock: []catalog.WarehouseStock{
		stockEntry("var-a", "wh-1", 1),
		stockEntry("var-b", "wh-1", 2),
	}}
	sink := newFakeSink()
	sink.failRefs["sink-var-b"] = "product deleted"

	processor := NewStockSyncProcessor(products, 100, zap.NewNop())
	report, err := processor.Run(context.Background(), tenantID, source, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ItemsProcessed)
	assert.Equal(t, 1, report.ItemsFailed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "sink-var-b", report.Failures[0].EntityID)
}

func TestStockSyncFetchFailureAborts(t *testing.T) {
	source := &fakeSource{stockErr: errors.New("timeout")}
	processor := NewStockSyncProcessor(newFakeProductStore(), 100, zap.NewNop())

	_, err := processor.Run(context.Background(), uuid.New(), source, newFakeSink())
	require.Error(t, err)
}

func TestStockSyncEmptySnapshotIsNoop(t *testing.T) {
	processor := NewStockSyncProcessor(newFakeProductStore(), 100, zap.NewNop())
	sink := newFakeSink()

	report, err := processor.Run(context.Background(), uuid.New(), &fakeSource{}, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ItemsProcessed)
	assert.Empty(t, sink.stockUpdates)
}
