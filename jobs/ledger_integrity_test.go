package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeIntegrityStore struct {
	found []Discrepancy
}

func (f *fakeIntegrityStore) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	return f.found, nil
}

type fakeWarmer struct {
	warmed []int64
}

func (f *fakeWarmer) Warmup(ctx context.Context, warehouseID int64) error {
	f.warmed = append(f.warmed, warehouseID)
	return nil
}

type fakeLister struct {
	ids []int64
}

func (f *fakeLister) WarehouseIDs(ctx context.Context) ([]int64, error) {
	return f.ids, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntegrityCheckerReportsDiscrepancies(t *testing.T) {
	store := &fakeIntegrityStore{found: []Discrepancy{
		{WarehouseID: 1, SKUID: 7, MovementSum: 5, LedgerCount: 4},
	}}
	checker := NewIntegrityChecker(store, discardLogger())

	count, err := checker.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestIntegrityCheckerCleanScan(t *testing.T) {
	checker := NewIntegrityChecker(&fakeIntegrityStore{}, discardLogger())

	count, err := checker.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestReportsWarmupAllWarehouses(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewReportsWarmup(warmer, &fakeLister{ids: []int64{1, 2, 3}}, discardLogger())

	require.NoError(t, job.Run(context.Background(), ReportsWarmupPayload{}))
	require.Equal(t, []int64{1, 2, 3}, warmer.warmed)
}

func TestReportsWarmupSingleWarehouse(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewReportsWarmup(warmer, &fakeLister{ids: []int64{1, 2, 3}}, discardLogger())

	require.NoError(t, job.Run(context.Background(), ReportsWarmupPayload{WarehouseID: 2}))
	require.Equal(t, []int64{2}, warmer.warmed)
}
