package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aflyhorse/pinecitywms/internal/platform/db"
)

// Repository persists receipts, movements and ledger entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service and
// the update engine. Every method runs on the transaction that created it.
type TxRepository interface {
	EntryStore
	InsertReceipt(ctx context.Context, receipt Receipt) (int64, error)
	InsertMovements(ctx context.Context, receiptID int64, movements []Movement) error
	GetReceiptForUpdate(ctx context.Context, id int64) (Receipt, error)
	GetMovements(ctx context.Context, receiptID int64) ([]Movement, error)
	MarkRevoked(ctx context.Context, id int64, note string) (bool, error)
	GetWarehouse(ctx context.Context, id int64) (WarehouseInfo, error)
	SKUDisabled(ctx context.Context, id int64) (bool, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetReceipt loads a receipt with its movements outside a transaction.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, []Movement, error) {
	if r == nil {
		return Receipt{}, nil, errors.New("ledger repository not initialised")
	}
	var rec Receipt
	err := r.pool.QueryRow(ctx, `SELECT id, COALESCE(refcode,''), type, warehouse_id, operator_id, date, COALESCE(note,''), revoked, COALESCE(reversal_of,0), COALESCE(area_id,0), COALESCE(department_id,0), COALESCE(location,'')
FROM receipts WHERE id=$1`, id).
		Scan(&rec.ID, &rec.Refcode, &rec.Type, &rec.WarehouseID, &rec.OperatorID, &rec.Date, &rec.Note, &rec.Revoked, &rec.ReversalOf, &rec.AreaID, &rec.DepartmentID, &rec.Location)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, nil, ErrReceiptNotFound
		}
		return Receipt{}, nil, err
	}
	movements, err := scanMovements(ctx, r.pool, id)
	if err != nil {
		return Receipt{}, nil, err
	}
	return rec, movements, nil
}

func (r *txRepository) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	date := receipt.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO receipts (refcode, type, warehouse_id, operator_id, date, note, revoked, reversal_of, area_id, department_id, location)
VALUES ($1,$2,$3,$4,$5,$6,false,$7,$8,$9,$10) RETURNING id`,
		nullString(receipt.Refcode), string(receipt.Type), receipt.WarehouseID, receipt.OperatorID, date,
		nullString(receipt.Note), nullInt(receipt.ReversalOf), nullInt(receipt.AreaID), nullInt(receipt.DepartmentID), nullString(receipt.Location)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateRefcode
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertMovements(ctx context.Context, receiptID int64, movements []Movement) error {
	for _, m := range movements {
		if _, err := r.tx.Exec(ctx, `INSERT INTO movements (receipt_id, sku_id, count, price)
VALUES ($1,$2,$3,$4)`, receiptID, m.SKUID, m.Count, m.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetReceiptForUpdate(ctx context.Context, id int64) (Receipt, error) {
	var rec Receipt
	err := r.tx.QueryRow(ctx, `SELECT id, COALESCE(refcode,''), type, warehouse_id, operator_id, date, COALESCE(note,''), revoked, COALESCE(reversal_of,0), COALESCE(area_id,0), COALESCE(department_id,0), COALESCE(location,'')
FROM receipts WHERE id=$1 FOR UPDATE`, id).
		Scan(&rec.ID, &rec.Refcode, &rec.Type, &rec.WarehouseID, &rec.OperatorID, &rec.Date, &rec.Note, &rec.Revoked, &rec.ReversalOf, &rec.AreaID, &rec.DepartmentID, &rec.Location)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrReceiptNotFound
		}
		return Receipt{}, err
	}
	return rec, nil
}

func (r *txRepository) GetMovements(ctx context.Context, receiptID int64) ([]Movement, error) {
	return scanMovements(ctx, r.tx, receiptID)
}

// MarkRevoked flips the revoked flag and appends the audit note. The WHERE
// clause makes the check-then-act atomic: a second revocation matches no row.
func (r *txRepository) MarkRevoked(ctx context.Context, id int64, note string) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE receipts SET revoked=true, note=$2 WHERE id=$1 AND NOT revoked`, id, nullString(note))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *txRepository) GetWarehouse(ctx context.Context, id int64) (WarehouseInfo, error) {
	var w WarehouseInfo
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(owner_id,0), is_public FROM warehouses WHERE id=$1`, id).
		Scan(&w.ID, &w.Name, &w.OwnerID, &w.IsPublic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WarehouseInfo{}, ErrWarehouseNotFound
		}
		return WarehouseInfo{}, err
	}
	return w, nil
}

func (r *txRepository) SKUDisabled(ctx context.Context, id int64) (bool, error) {
	var disabled bool
	err := r.tx.QueryRow(ctx, `SELECT disabled FROM item_skus WHERE id=$1`, id).Scan(&disabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrSKUNotFound
		}
		return false, err
	}
	return disabled, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, warehouseID, skuID int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `SELECT warehouse_id, sku_id, count, avg_price, updated_at
FROM ledger_entries WHERE warehouse_id=$1 AND sku_id=$2 FOR UPDATE`, warehouseID, skuID).
		Scan(&e.WarehouseID, &e.SKUID, &e.Count, &e.AvgPrice, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *txRepository) UpsertEntry(ctx context.Context, entry Entry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledger_entries (warehouse_id, sku_id, count, avg_price, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (warehouse_id, sku_id) DO UPDATE SET count=EXCLUDED.count, avg_price=EXCLUDED.avg_price, updated_at=NOW()`,
		entry.WarehouseID, entry.SKUID, entry.Count, entry.AvgPrice)
	return err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanMovements(ctx context.Context, q queryer, receiptID int64) ([]Movement, error) {
	rows, err := q.Query(ctx, `SELECT id, receipt_id, sku_id, count, price FROM movements WHERE receipt_id=$1 ORDER BY id`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ReceiptID, &m.SKUID, &m.Count, &m.Price); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
