package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportWarmer pre-computes report aggregates into the cache.
type ReportWarmer interface {
	Warmup(ctx context.Context, warehouseID int64) error
}

// WarehouseLister enumerates warehouse ids for an all-warehouse warmup.
type WarehouseLister interface {
	WarehouseIDs(ctx context.Context) ([]int64, error)
}

// ReportsWarmup warms the cached report aggregates so the first reader
// after an invalidation does not pay the aggregation cost.
type ReportsWarmup struct {
	warmer     ReportWarmer
	warehouses WarehouseLister
	logger     *slog.Logger
}

func NewReportsWarmup(warmer ReportWarmer, warehouses WarehouseLister, logger *slog.Logger) *ReportsWarmup {
	return &ReportsWarmup{warmer: warmer, warehouses: warehouses, logger: logger}
}

// Run warms one warehouse, or all when payload.WarehouseID is zero.
// Individual failures are logged and skipped so one bad warehouse does
// not starve the rest.
func (j *ReportsWarmup) Run(ctx context.Context, payload ReportsWarmupPayload) error {
	ids := []int64{payload.WarehouseID}
	if payload.WarehouseID == 0 {
		var err error
		ids, err = j.warehouses.WarehouseIDs(ctx)
		if err != nil {
			return err
		}
	}
	warmed := 0
	for _, id := range ids {
		if err := j.warmer.Warmup(ctx, id); err != nil {
			j.logger.Warn("report warmup failed",
				slog.Int64("warehouse_id", id), slog.Any("error", err))
			continue
		}
		warmed++
	}
	j.logger.Info("report warmup finished",
		slog.Int("warehouses", len(ids)), slog.Int("warmed", warmed))
	return nil
}

// SQLWarehouseLister reads warehouse ids straight from postgres.
type SQLWarehouseLister struct {
	pool *pgxpool.Pool
}

func NewSQLWarehouseLister(pool *pgxpool.Pool) *SQLWarehouseLister {
	return &SQLWarehouseLister{pool: pool}
}

func (s *SQLWarehouseLister) WarehouseIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
