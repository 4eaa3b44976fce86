package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryEntryStore struct {
	entries map[string]Entry
}

func newMemoryEntryStore() *memoryEntryStore {
	return &memoryEntryStore{entries: make(map[string]Entry)}
}

func entryKey(warehouseID, skuID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, skuID)
}

func (s *memoryEntryStore) GetEntryForUpdate(ctx context.Context, warehouseID, skuID int64) (Entry, error) {
	if entry, ok := s.entries[entryKey(warehouseID, skuID)]; ok {
		return entry, nil
	}
	return Entry{}, ErrEntryNotFound
}

func (s *memoryEntryStore) UpsertEntry(ctx context.Context, entry Entry) error {
	s.entries[entryKey(entry.WarehouseID, entry.SKUID)] = entry
	return nil
}

func (s *memoryEntryStore) entry(t *testing.T, warehouseID, skuID int64) Entry {
	t.Helper()
	entry, ok := s.entries[entryKey(warehouseID, skuID)]
	require.True(t, ok, "expected entry for warehouse %d sku %d", warehouseID, skuID)
	return entry
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stockIn(warehouseID int64) Receipt {
	return Receipt{Type: ReceiptTypeStockIn, WarehouseID: warehouseID}
}

func stockOut(warehouseID int64) Receipt {
	return Receipt{Type: ReceiptTypeStockOut, WarehouseID: warehouseID}
}

func takeStock(warehouseID int64) Receipt {
	return Receipt{Type: ReceiptTypeTakeStock, WarehouseID: warehouseID}
}

func TestApplyStockInCreatesEntry(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	err := Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 5, Price: price("10")}})
	require.NoError(t, err)

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 5, entry.Count)
	require.True(t, entry.AvgPrice.Equal(price("10")), "avg %s", entry.AvgPrice)
}

func TestApplyStockInBlendsAverage(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 5, Price: price("10")}}))
	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 10, Price: price("20")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 15, entry.Count)
	// (5*10 + 10*20) / 15 = 16.666..., compared at 2 decimal places.
	require.Equal(t, "16.67", entry.AvgPrice.StringFixed(2))
}

func TestApplyStockOutLeavesAverageUntouched(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 5, Price: price("10")}}))
	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 10, Price: price("20")}}))
	require.NoError(t, Apply(ctx, store, stockOut(1), []Movement{{SKUID: 7, Count: -2, Price: price("99.99")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 13, entry.Count)
	require.Equal(t, "16.67", entry.AvgPrice.StringFixed(2))
}

func TestApplyStockOutUnknownSKU(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	err := Apply(ctx, store, stockOut(1), []Movement{{SKUID: 7, Count: -5, Price: price("10")}})
	var missing *ItemNotInWarehouseError
	require.ErrorAs(t, err, &missing)
	require.EqualValues(t, 7, missing.SKUID)
	require.EqualValues(t, 1, missing.WarehouseID)
	require.Empty(t, store.entries)
}

func TestApplyInsufficientStock(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 5, Price: price("10")}}))

	err := Apply(ctx, store, stockOut(1), []Movement{{SKUID: 7, Count: -10, Price: price("10")}})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.EqualValues(t, 5, insufficient.Current)
	require.EqualValues(t, 10, insufficient.Requested)

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 5, entry.Count)
}

func TestApplyStockInToZeroResetsAverage(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 10, Price: price("50")}}))
	require.NoError(t, Apply(ctx, store, stockOut(1), []Movement{{SKUID: 7, Count: -10, Price: price("50")}}))

	// A zero-quantity stock-in that lands on count 0 resets the cost basis.
	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 0, Price: price("75")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 0, entry.Count)
	require.True(t, entry.AvgPrice.IsZero(), "avg %s", entry.AvgPrice)
}

func TestApplyStockInInitialisesZeroAverage(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	// Seed an entry with a zero cost basis, as a stock-out to zero leaves it.
	store.entries[entryKey(1, 7)] = Entry{WarehouseID: 1, SKUID: 7, Count: 0, AvgPrice: decimal.Zero}

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 5, Price: price("30")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 5, entry.Count)
	require.Equal(t, "30.00", entry.AvgPrice.StringFixed(2))
}

func TestApplyTakeStockNegativeAdjustment(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 13, Price: price("16.67")}}))
	require.NoError(t, Apply(ctx, store, takeStock(1), []Movement{{SKUID: 7, Count: -3, Price: price("16.67")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 10, entry.Count)
	require.Equal(t, "16.67", entry.AvgPrice.StringFixed(2))
}

func TestApplyTakeStockSeedsNewEntry(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, store, takeStock(1), []Movement{{SKUID: 7, Count: 7, Price: price("25")}}))

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 7, entry.Count)
	require.Equal(t, "25.00", entry.AvgPrice.StringFixed(2))
}

func TestApplyTakeStockNegativeOnUnknownSKU(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	err := Apply(ctx, store, takeStock(1), []Movement{{SKUID: 7, Count: -3, Price: price("20")}})
	var missing *ItemNotInWarehouseError
	require.ErrorAs(t, err, &missing)
}

func TestApplyEmptyReceipt(t *testing.T) {
	store := newMemoryEntryStore()
	err := Apply(context.Background(), store, stockIn(1), nil)
	require.ErrorIs(t, err, ErrEmptyReceipt)
}

func TestApplyDecimalPrecisionAcrossManyStockIns(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	// Repeated blending at one third keeps the decimal average exact where
	// binary floats would drift.
	for i := 0; i < 500; i++ {
		require.NoError(t, Apply(ctx, store, stockIn(1), []Movement{{SKUID: 7, Count: 3, Price: price("0.10")}}))
	}

	entry := store.entry(t, 1, 7)
	require.EqualValues(t, 1500, entry.Count)
	require.Equal(t, "0.10", entry.AvgPrice.StringFixed(2))
}

func TestApplyMovementSumInvariant(t *testing.T) {
	store := newMemoryEntryStore()
	ctx := context.Background()

	var sum int64
	steps := []struct {
		receipt Receipt
		count   int64
		price   string
	}{
		{stockIn(1), 5, "10"},
		{stockIn(1), 10, "20"},
		{stockOut(1), -2, "16.67"},
		{takeStock(1), -3, "16.67"},
		{stockIn(1), 4, "12.50"},
		{stockOut(1), -6, "15"},
	}
	for _, step := range steps {
		err := Apply(ctx, store, step.receipt, []Movement{{SKUID: 7, Count: step.count, Price: price(step.price)}})
		require.NoError(t, err)
		sum += step.count
		require.EqualValues(t, sum, store.entry(t, 1, 7).Count)
	}
}
