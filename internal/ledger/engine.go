package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// EntryStore is the keyed persistence abstraction the engine folds into.
// Implementations must return ErrEntryNotFound for untouched pairs and are
// expected to hold a row lock (or equivalent) on returned entries for the
// duration of the enclosing transaction.
type EntryStore interface {
	GetEntryForUpdate(ctx context.Context, warehouseID, skuID int64) (Entry, error)
	UpsertEntry(ctx context.Context, entry Entry) error
}

// Apply folds a receipt's movements into the ledger store. It is called once
// per receipt, inside the same transaction that persisted the receipt, so a
// rejected movement rolls back the whole batch.
//
// STOCKIN blends the movement price into the weighted-average cost.
// STOCKOUT, TAKESTOCK and REVERSAL adjust the count without touching the
// average; reductions below zero are rejected. All price arithmetic is
// decimal, never binary float.
func Apply(ctx context.Context, store EntryStore, receipt Receipt, movements []Movement) error {
	if len(movements) == 0 {
		return ErrEmptyReceipt
	}
	for _, m := range movements {
		entry, err := store.GetEntryForUpdate(ctx, receipt.WarehouseID, m.SKUID)
		switch {
		case errors.Is(err, ErrEntryNotFound):
			entry, err = seedEntry(receipt, m)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			entry, err = applyMovement(receipt, entry, m)
			if err != nil {
				return err
			}
		}
		if err := store.UpsertEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// seedEntry creates the first ledger record for a (warehouse, SKU) pair.
// Only inbound receipts and non-negative stock-take adjustments may seed;
// a reduction against a never-stocked pair is a caller error.
func seedEntry(receipt Receipt, m Movement) (Entry, error) {
	if receipt.Type != ReceiptTypeStockIn && m.Count < 0 {
		return Entry{}, &ItemNotInWarehouseError{SKUID: m.SKUID, WarehouseID: receipt.WarehouseID}
	}
	if receipt.Type == ReceiptTypeStockOut {
		return Entry{}, &ItemNotInWarehouseError{SKUID: m.SKUID, WarehouseID: receipt.WarehouseID}
	}
	return Entry{
		WarehouseID: receipt.WarehouseID,
		SKUID:       m.SKUID,
		Count:       m.Count,
		AvgPrice:    m.Price,
	}, nil
}

func applyMovement(receipt Receipt, entry Entry, m Movement) (Entry, error) {
	newCount := entry.Count + m.Count

	if receipt.Type != ReceiptTypeStockIn {
		// Outbound and adjustment movements leave the cost basis untouched.
		if newCount < 0 {
			return Entry{}, &InsufficientStockError{
				SKUID:       m.SKUID,
				WarehouseID: receipt.WarehouseID,
				Current:     entry.Count,
				Requested:   -m.Count,
			}
		}
		entry.Count = newCount
		return entry, nil
	}

	// A zero-cost seed entry must not pull the average toward zero.
	if entry.AvgPrice.IsZero() {
		entry.AvgPrice = m.Price
	}
	if newCount == 0 {
		// Nothing left to carry the cost basis forward.
		entry.AvgPrice = decimal.Zero
	} else {
		total := decimal.NewFromInt(entry.Count).Mul(entry.AvgPrice).
			Add(decimal.NewFromInt(m.Count).Mul(m.Price))
		entry.AvgPrice = total.Div(decimal.NewFromInt(newCount))
	}
	entry.Count = newCount
	return entry, nil
}
