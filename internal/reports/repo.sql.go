package reports

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the report aggregations against postgres. All reads
// go through the pool; reports never write.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Usage aggregates outbound movements by warehouse and destination.
// Stock-out movements are stored with negative counts, so quantities
// and values are negated back to positive consumption figures.
// Revoked receipts and reversal counter-receipts are both excluded.
func (r *Repository) Usage(ctx context.Context, filter PeriodFilter) ([]UsageRow, error) {
	query := `
		SELECT r.warehouse_id, w.name,
		       COALESCE(r.area_id, 0), COALESCE(a.name, ''),
		       COALESCE(r.department_id, 0), COALESCE(d.name, ''),
		       SUM(-m.count), SUM(-m.count * m.price)
		FROM movements m
		JOIN receipts r ON r.id = m.receipt_id
		JOIN warehouses w ON w.id = r.warehouse_id
		LEFT JOIN areas a ON a.id = r.area_id
		LEFT JOIN departments d ON d.id = r.department_id
		WHERE r.type = 'STOCKOUT' AND NOT r.revoked`
	query, args := appendPeriod(query, filter)
	query += `
		GROUP BY r.warehouse_id, w.name, r.area_id, a.name, r.department_id, d.name
		ORDER BY w.name, a.name, d.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var row UsageRow
		if err := rows.Scan(
			&row.WarehouseID, &row.WarehouseName,
			&row.AreaID, &row.AreaName,
			&row.DepartmentID, &row.DepartmentName,
			&row.Quantity, &row.Value,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Fees aggregates inbound procurement cost by warehouse. Revoked
// receipts and reversal counter-receipts are excluded.
func (r *Repository) Fees(ctx context.Context, filter PeriodFilter) ([]FeeRow, error) {
	query := `
		SELECT r.warehouse_id, w.name, SUM(m.count), SUM(m.count * m.price)
		FROM movements m
		JOIN receipts r ON r.id = m.receipt_id
		JOIN warehouses w ON w.id = r.warehouse_id
		WHERE r.type = 'STOCKIN' AND NOT r.revoked`
	query, args := appendPeriod(query, filter)
	query += `
		GROUP BY r.warehouse_id, w.name
		ORDER BY w.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FeeRow
	for rows.Next() {
		var row FeeRow
		if err := rows.Scan(&row.WarehouseID, &row.WarehouseName, &row.Quantity, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Inventory lists on-hand entries (count > 0) for a warehouse.
func (r *Repository) Inventory(ctx context.Context, filter InventoryFilter) ([]InventoryRow, int, error) {
	where := ` WHERE e.warehouse_id = $1 AND e.count > 0`
	args := []any{filter.WarehouseID}
	argCount := 1

	if filter.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		where += ` AND (i.name ILIKE $` + n + ` OR s.brand ILIKE $` + n + ` OR s.spec ILIKE $` + n + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Brand != "" {
		argCount++
		where += ` AND s.brand = $` + strconv.Itoa(argCount)
		args = append(args, filter.Brand)
	}

	from := `
		FROM ledger_entries e
		JOIN item_skus s ON s.id = e.sku_id
		JOIN items i ON i.id = s.item_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT e.warehouse_id, e.sku_id, i.name, s.brand, s.spec,
		       e.count, e.avg_price, e.count * e.avg_price` +
		from + where + ` ORDER BY i.name, s.brand, s.spec`

	if filter.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filter.Limit)

		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []InventoryRow
	for rows.Next() {
		var row InventoryRow
		if err := rows.Scan(
			&row.WarehouseID, &row.SKUID, &row.ItemName, &row.Brand, &row.Spec,
			&row.Count, &row.AvgPrice, &row.TotalValue,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func appendPeriod(query string, filter PeriodFilter) (string, []any) {
	args := []any{}
	argCount := 0
	if filter.WarehouseID != 0 {
		argCount++
		query += ` AND r.warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.WarehouseID)
	}
	if !filter.Start.IsZero() {
		argCount++
		query += ` AND r.date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.Start)
	}
	if !filter.End.IsZero() {
		argCount++
		query += ` AND r.date < $` + strconv.Itoa(argCount)
		args = append(args, filter.End)
	}
	return query, args
}
