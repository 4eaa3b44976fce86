package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptType enumerates supported inventory operations.
type ReceiptType string

const (
	// ReceiptTypeStockIn represents an inbound receipt.
	ReceiptTypeStockIn ReceiptType = "STOCKIN"
	// ReceiptTypeStockOut represents an outbound receipt.
	ReceiptTypeStockOut ReceiptType = "STOCKOUT"
	// ReceiptTypeTakeStock represents a stock-take adjustment receipt.
	ReceiptTypeTakeStock ReceiptType = "TAKESTOCK"
	// ReceiptTypeReversal marks the counter-receipt created by revocation.
	// Reversals are excluded from both fee and usage aggregates.
	ReceiptTypeReversal ReceiptType = "REVERSAL"
)

// Receipt groups movements sharing one operation type, warehouse and timestamp.
type Receipt struct {
	ID          int64
	Refcode     string
	Type        ReceiptType
	WarehouseID int64
	OperatorID  int64
	Date        time.Time
	Note        string
	Revoked     bool
	// ReversalOf links a REVERSAL receipt back to the receipt it compensates.
	ReversalOf int64

	// Destination, set for STOCKOUT receipts and copied onto reversals.
	AreaID       int64
	DepartmentID int64
	Location     string
}

// Movement is a single signed quantity/price line item of a receipt.
// Immutable once created.
type Movement struct {
	ID        int64
	ReceiptID int64
	SKUID     int64
	Count     int64
	Price     decimal.Decimal
}

// Entry is the ledger record for one SKU in one warehouse: current on-hand
// count and the weighted-average unit cost. Created lazily on first movement,
// never deleted, mutated only by the update engine.
type Entry struct {
	WarehouseID int64
	SKUID       int64
	Count       int64
	AvgPrice    decimal.Decimal
	UpdatedAt   time.Time
}

// WarehouseInfo is the ledger's view of a warehouse, sufficient for
// revocation permission checks. Exactly one of owner / public applies.
type WarehouseInfo struct {
	ID       int64
	Name     string
	OwnerID  int64
	IsPublic bool
}

// ErrEntryNotFound indicates a (warehouse, SKU) pair with no ledger record.
var ErrEntryNotFound = errors.New("ledger: entry not found")

// ErrReceiptNotFound indicates a missing receipt.
var ErrReceiptNotFound = errors.New("ledger: receipt not found")

// ErrWarehouseNotFound indicates a missing warehouse.
var ErrWarehouseNotFound = errors.New("ledger: warehouse not found")

// ErrSKUNotFound indicates a missing SKU.
var ErrSKUNotFound = errors.New("ledger: sku not found")

// ErrEmptyReceipt indicates a receipt without movements.
var ErrEmptyReceipt = errors.New("ledger: receipt has no movements")

// ErrDuplicateRefcode indicates a receipt reference code collision.
var ErrDuplicateRefcode = errors.New("ledger: duplicate refcode")

// ErrAlreadyRevoked indicates the receipt was revoked before.
var ErrAlreadyRevoked = errors.New("ledger: receipt already revoked")

// ErrPermissionDenied indicates the actor may not revoke the receipt.
var ErrPermissionDenied = errors.New("ledger: permission denied")

// ErrRevokeWindowExpired indicates a non-privileged revocation came too late.
var ErrRevokeWindowExpired = errors.New("ledger: revocation window expired")

// ErrSKUDisabled indicates a stock-in referencing a disabled SKU.
var ErrSKUDisabled = errors.New("ledger: sku is disabled")

// ErrInvalidMovement indicates a malformed movement line.
var ErrInvalidMovement = errors.New("ledger: invalid movement")

// InsufficientStockError reports an outbound movement exceeding on-hand count.
type InsufficientStockError struct {
	SKUID       int64
	WarehouseID int64
	Current     int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for sku %d in warehouse %d: have %d, need %d",
		e.SKUID, e.WarehouseID, e.Current, e.Requested)
}

// ItemNotInWarehouseError reports a reduction against a SKU the warehouse has
// never stocked.
type ItemNotInWarehouseError struct {
	SKUID       int64
	WarehouseID int64
}

func (e *ItemNotInWarehouseError) Error() string {
	return fmt.Sprintf("ledger: sku %d has no record in warehouse %d", e.SKUID, e.WarehouseID)
}
