package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SKUFilters narrows ListSKUs. Empty fields are ignored.
type SKUFilters struct {
	Search          string
	Brand           string
	IncludeDisabled bool
	Page            int
	Limit           int
}

// Repository is the pgx-backed catalog store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateItem(ctx context.Context, name string) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (name) VALUES ($1) RETURNING id, name, created_at`,
		name,
	).Scan(&item.ID, &item.Name, &item.CreatedAt)
	if isUniqueViolation(err) {
		return Item{}, ErrDuplicateItem
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM items WHERE id = $1`, id,
	).Scan(&item.ID, &item.Name, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) ListItems(ctx context.Context, search string) ([]Item, error) {
	query := `SELECT id, name, created_at FROM items`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) CreateSKU(ctx context.Context, sku ItemSKU) (ItemSKU, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO item_skus (item_id, brand, spec)
		 VALUES ($1, $2, $3)
		 RETURNING id, disabled, created_at`,
		sku.ItemID, sku.Brand, sku.Spec,
	).Scan(&sku.ID, &sku.Disabled, &sku.CreatedAt)
	if isUniqueViolation(err) {
		return ItemSKU{}, ErrDuplicateSKU
	}
	if isForeignKeyViolation(err) {
		return ItemSKU{}, ErrItemNotFound
	}
	if err != nil {
		return ItemSKU{}, err
	}
	return sku, nil
}

func (r *Repository) GetSKU(ctx context.Context, id int64) (ItemSKU, error) {
	var sku ItemSKU
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.item_id, i.name, s.brand, s.spec, s.disabled, s.created_at
		 FROM item_skus s JOIN items i ON i.id = s.item_id
		 WHERE s.id = $1`, id,
	).Scan(&sku.ID, &sku.ItemID, &sku.ItemName, &sku.Brand, &sku.Spec, &sku.Disabled, &sku.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemSKU{}, ErrSKUNotFound
	}
	if err != nil {
		return ItemSKU{}, err
	}
	return sku, nil
}

// ListSKUs uses a dynamic query due to filter complexity.
func (r *Repository) ListSKUs(ctx context.Context, filters SKUFilters) ([]ItemSKU, int, error) {
	where := ``
	args := []any{}
	argCount := 0

	if !filters.IncludeDisabled {
		where += ` AND NOT s.disabled`
	}
	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		where += ` AND (i.name ILIKE $` + n + ` OR s.brand ILIKE $` + n + ` OR s.spec ILIKE $` + n + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.Brand != "" {
		argCount++
		where += ` AND s.brand = $` + strconv.Itoa(argCount)
		args = append(args, filters.Brand)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM item_skus s JOIN items i ON i.id = s.item_id WHERE 1=1` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT s.id, s.item_id, i.name, s.brand, s.spec, s.disabled, s.created_at
		 FROM item_skus s JOIN items i ON i.id = s.item_id
		 WHERE 1=1` + where + ` ORDER BY i.name, s.brand, s.spec`

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		offset := (filters.Page - 1) * filters.Limit
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

	var skus []ItemSKU
	for rows.Next() {
		var sku ItemSKU
		if err := rows.Scan(&sku.ID, &sku.ItemID, &sku.ItemName, &sku.Brand, &sku.Spec, &sku.Disabled, &sku.CreatedAt); err != nil {
			return nil, 0, err
		}
		skus = append(skus, sku)
	}
	return skus, total, rows.Err()
}

func (r *Repository) SetSKUDisabled(ctx context.Context, id int64, disabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE item_skus SET disabled = $2 WHERE id = $1`, id, disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSKUNotFound
	}
	return nil
}

func (r *Repository) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	var ownerID any
	if warehouse.OwnerID != 0 {
		ownerID = warehouse.OwnerID
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO warehouses (name, owner_id, is_public)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		warehouse.Name, ownerID, warehouse.IsPublic,
	).Scan(&warehouse.ID, &warehouse.CreatedAt)
	if isUniqueViolation(err) {
		return Warehouse{}, ErrDuplicateName
	}
	if err != nil {
		return Warehouse{}, err
	}
	return warehouse, nil
}

func (r *Repository) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	var warehouse Warehouse
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(owner_id, 0), is_public, created_at
		 FROM warehouses WHERE id = $1`, id,
	).Scan(&warehouse.ID, &warehouse.Name, &warehouse.OwnerID, &warehouse.IsPublic, &warehouse.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, ErrWarehouseNotFound
	}
	if err != nil {
		return Warehouse{}, err
	}
	return warehouse, nil
}

func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(owner_id, 0), is_public, created_at
		 FROM warehouses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWarehouses(rows)
}

// ListVisibleWarehouses returns public warehouses plus those owned by userID.
func (r *Repository) ListVisibleWarehouses(ctx context.Context, userID int64) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(owner_id, 0), is_public, created_at
		 FROM warehouses
		 WHERE is_public OR owner_id = $1
		 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWarehouses(rows)
}

func (r *Repository) ListAreas(ctx context.Context) ([]Area, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM areas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var area Area
		if err := rows.Scan(&area.ID, &area.Name); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

func (r *Repository) ListDepartments(ctx context.Context, areaID int64) ([]Department, error) {
	query := `SELECT id, area_id, name FROM departments`
	args := []any{}
	if areaID != 0 {
		query += ` WHERE area_id = $1`
		args = append(args, areaID)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var dept Department
		if err := rows.Scan(&dept.ID, &dept.AreaID, &dept.Name); err != nil {
			return nil, err
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

func scanWarehouses(rows pgx.Rows) ([]Warehouse, error) {
	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.OwnerID, &w.IsPublic, &w.CreatedAt); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
