package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	usageRows  []UsageRow
	feeRows    []FeeRow
	invRows    []InventoryRow
	usageCalls int
	feeCalls   int
	invFilter  InventoryFilter
}

func (m *mockRepo) Usage(ctx context.Context, filter PeriodFilter) ([]UsageRow, error) {
	m.usageCalls++
	return m.usageRows, nil
}

func (m *mockRepo) Fees(ctx context.Context, filter PeriodFilter) ([]FeeRow, error) {
	m.feeCalls++
	return m.feeRows, nil
}

func (m *mockRepo) Inventory(ctx context.Context, filter InventoryFilter) ([]InventoryRow, int, error) {
	m.invFilter = filter
	return m.invRows, len(m.invRows), nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestUsageCachesUntilInvalidated(t *testing.T) {
	repo := &mockRepo{usageRows: []UsageRow{{
		WarehouseID:   1,
		WarehouseName: "central",
		Quantity:      12,
		Value:         decimal.RequireFromString("200.16"),
	}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	filter := PeriodFilter{WarehouseID: 1}
	rows, err := svc.Usage(ctx, filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "200.16", rows[0].Value.StringFixed(2))
	require.Equal(t, 1, repo.usageCalls)

	// Second read is served from redis.
	rows, err = svc.Usage(ctx, filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, repo.usageCalls)

	// A version bump forces a reload.
	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Usage(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 2, repo.usageCalls)
}

func TestUsageCacheKeyedByPeriod(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Usage(ctx, PeriodFilter{WarehouseID: 1})
	require.NoError(t, err)
	_, err = svc.Usage(ctx, PeriodFilter{WarehouseID: 1, Start: start})
	require.NoError(t, err)
	_, err = svc.Usage(ctx, PeriodFilter{WarehouseID: 2})
	require.NoError(t, err)
	require.Equal(t, 3, repo.usageCalls)
}

func TestFeesCached(t *testing.T) {
	repo := &mockRepo{feeRows: []FeeRow{{
		WarehouseID:   1,
		WarehouseName: "central",
		Quantity:      30,
		Value:         decimal.RequireFromString("1234.50"),
	}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rows, err := svc.Fees(ctx, PeriodFilter{WarehouseID: 1})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, "1234.50", rows[0].Value.StringFixed(2))
	}
	require.Equal(t, 1, repo.feeCalls)
}

func TestInventoryDefaultsPagination(t *testing.T) {
	repo := &mockRepo{invRows: []InventoryRow{{SKUID: 7, Count: 5}}}
	svc := newTestService(t, repo)

	rows, total, err := svc.Inventory(context.Background(), InventoryFilter{WarehouseID: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, total)
	require.Equal(t, 50, repo.invFilter.Limit)
	require.Equal(t, 1, repo.invFilter.Page)
}

func TestWarmupPopulatesCache(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Warmup(ctx, 1))
	require.Equal(t, 1, repo.usageCalls)
	require.Equal(t, 1, repo.feeCalls)

	// The warmed entries satisfy subsequent reads.
	_, err := svc.Usage(ctx, PeriodFilter{WarehouseID: 1})
	require.NoError(t, err)
	_, err = svc.Fees(ctx, PeriodFilter{WarehouseID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, repo.usageCalls)
	require.Equal(t, 1, repo.feeCalls)
}
