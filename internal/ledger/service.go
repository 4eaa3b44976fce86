package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aflyhorse/pinecitywms/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReceipt(ctx context.Context, id int64) (Receipt, []Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records fold outcomes. Implementations must be nil-safe.
type MetricsPort interface {
	ReceiptApplied(receiptType string)
	ReceiptRejected(reason string)
}

// Service coordinates receipt persistence and the ledger fold. Persisting a
// receipt and folding it happen in one transaction, so a rejected fold never
// leaves a phantom receipt behind.
type Service struct {
	repo         RepositoryPort
	audit        AuditPort
	metrics      MetricsPort
	revokeWindow time.Duration
	onApplied    func(context.Context)
	now          func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// RevokeWindow bounds non-privileged revocation; zero means 24h.
	RevokeWindow time.Duration
	// OnApplied runs after every committed fold. Used to invalidate
	// derived caches.
	OnApplied func(context.Context)
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, cfg ServiceConfig) *Service {
	window := cfg.RevokeWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{
		repo:         repo,
		audit:        audit,
		metrics:      metrics,
		revokeWindow: window,
		onApplied:    cfg.OnApplied,
		now:          time.Now,
	}
}

// LineInput is one movement line of a receipt being posted.
type LineInput struct {
	SKUID int64
	Count int64
	Price decimal.Decimal
}

// StockInInput describes an inbound receipt.
type StockInInput struct {
	WarehouseID int64
	Refcode     string
	Note        string
	OperatorID  int64
	Lines       []LineInput
}

// StockOutInput describes an outbound receipt. Line counts are entered as
// positive withdrawal quantities and negated before folding.
type StockOutInput struct {
	WarehouseID  int64
	Refcode      string
	Note         string
	OperatorID   int64
	AreaID       int64
	DepartmentID int64
	Location     string
	Lines        []LineInput
}

// TakeStockInput describes a stock-take adjustment receipt. Line counts are
// signed deltas against the current ledger count.
type TakeStockInput struct {
	WarehouseID int64
	Refcode     string
	Note        string
	OperatorID  int64
	Lines       []LineInput
}

// StockIn posts an inbound receipt and folds it into the ledger.
// Disabled SKUs are rejected.
func (s *Service) StockIn(ctx context.Context, input StockInInput) (Receipt, error) {
	if err := validateHeader(input.WarehouseID, input.Lines); err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		Refcode:     input.Refcode,
		Type:        ReceiptTypeStockIn,
		WarehouseID: input.WarehouseID,
		OperatorID:  input.OperatorID,
		Note:        input.Note,
	}
	posted, err := s.post(ctx, receipt, input.Lines, true)
	if err != nil {
		return Receipt{}, err
	}
	return posted, nil
}

// StockOut posts an outbound receipt with its destination and folds it into
// the ledger. Each line is negated: callers supply withdrawal quantities.
func (s *Service) StockOut(ctx context.Context, input StockOutInput) (Receipt, error) {
	if err := validateHeader(input.WarehouseID, input.Lines); err != nil {
		return Receipt{}, err
	}
	lines := make([]LineInput, len(input.Lines))
	for i, line := range input.Lines {
		if line.Count <= 0 {
			return Receipt{}, fmt.Errorf("%w: stock-out quantity must be positive for sku %d", ErrInvalidMovement, line.SKUID)
		}
		lines[i] = LineInput{SKUID: line.SKUID, Count: -line.Count, Price: line.Price}
	}
	receipt := Receipt{
		Refcode:      input.Refcode,
		Type:         ReceiptTypeStockOut,
		WarehouseID:  input.WarehouseID,
		OperatorID:   input.OperatorID,
		Note:         input.Note,
		AreaID:       input.AreaID,
		DepartmentID: input.DepartmentID,
		Location:     input.Location,
	}
	return s.post(ctx, receipt, lines, false)
}

// TakeStock posts a stock-take adjustment receipt and folds it into the
// ledger. Positive deltas on never-seen SKUs seed new entries.
func (s *Service) TakeStock(ctx context.Context, input TakeStockInput) (Receipt, error) {
	if err := validateHeader(input.WarehouseID, input.Lines); err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		Refcode:     input.Refcode,
		Type:        ReceiptTypeTakeStock,
		WarehouseID: input.WarehouseID,
		OperatorID:  input.OperatorID,
		Note:        input.Note,
	}
	return s.post(ctx, receipt, input.Lines, false)
}

// GetReceipt loads a receipt with its movements.
func (s *Service) GetReceipt(ctx context.Context, id int64) (Receipt, []Movement, error) {
	return s.repo.GetReceipt(ctx, id)
}

// Revoke reverses a receipt's ledger effect by creating and folding a
// counter-receipt of kind REVERSAL. The original receipt keeps its movements;
// it only gains the revoked flag and an audit note. The whole operation is
// one transaction: if the counter-fold is rejected (for example intervening
// stock-outs already consumed the stock), the revoked flag rolls back too.
func (s *Service) Revoke(ctx context.Context, receiptID int64, reason string, actor shared.Actor) (Receipt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Receipt{}, fmt.Errorf("%w: revocation requires a reason", ErrInvalidMovement)
	}
	var counter Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetReceiptForUpdate(ctx, receiptID)
		if err != nil {
			return err
		}
		if original.Revoked {
			return ErrAlreadyRevoked
		}
		if err := s.authorizeRevoke(ctx, tx, original, actor); err != nil {
			return err
		}

		note := original.Note
		if note != "" {
			note += "\n"
		}
		note += fmt.Sprintf("[revoked by %s: %s]", actor.Name, reason)
		flipped, err := tx.MarkRevoked(ctx, original.ID, note)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyRevoked
		}

		movements, err := tx.GetMovements(ctx, original.ID)
		if err != nil {
			return err
		}
		if len(movements) == 0 {
			return ErrEmptyReceipt
		}

		counter = Receipt{
			Refcode:      counterRefcode(original),
			Type:         ReceiptTypeReversal,
			WarehouseID:  original.WarehouseID,
			OperatorID:   actor.ID,
			Note:         fmt.Sprintf("reversal of receipt %s", receiptRef(original)),
			ReversalOf:   original.ID,
			AreaID:       original.AreaID,
			DepartmentID: original.DepartmentID,
			Location:     original.Location,
		}
		counterMovements := make([]Movement, len(movements))
		for i, m := range movements {
			counterMovements[i] = Movement{SKUID: m.SKUID, Count: -m.Count, Price: m.Price}
		}

		counter.ID, err = tx.InsertReceipt(ctx, counter)
		if err != nil {
			return err
		}
		if err := tx.InsertMovements(ctx, counter.ID, counterMovements); err != nil {
			return err
		}
		return Apply(ctx, tx, counter, counterMovements)
	})
	if err != nil {
		s.countRejection(err)
		return Receipt{}, err
	}
	s.countApplied(ReceiptTypeReversal)
	s.notifyApplied(ctx)
	s.recordAudit(ctx, actor.ID, "ledger:revoke", counter.ID, map[string]any{
		"original_receipt": receiptID,
		"reason":           reason,
	})
	return counter, nil
}

func (s *Service) authorizeRevoke(ctx context.Context, tx TxRepository, receipt Receipt, actor shared.Actor) error {
	if actor.IsAdmin {
		return nil
	}
	warehouse, err := tx.GetWarehouse(ctx, receipt.WarehouseID)
	if err != nil {
		return err
	}
	if warehouse.IsPublic || warehouse.OwnerID != actor.ID {
		return ErrPermissionDenied
	}
	if s.now().Sub(receipt.Date) > s.revokeWindow {
		return ErrRevokeWindowExpired
	}
	return nil
}

func (s *Service) post(ctx context.Context, receipt Receipt, lines []LineInput, checkDisabled bool) (Receipt, error) {
	movements := make([]Movement, len(lines))
	for i, line := range lines {
		if line.Price.IsNegative() {
			return Receipt{}, fmt.Errorf("%w: negative price for sku %d", ErrInvalidMovement, line.SKUID)
		}
		movements[i] = Movement{SKUID: line.SKUID, Count: line.Count, Price: line.Price}
	}
	if receipt.Refcode == "" {
		receipt.Refcode = generateRefcode(receipt.Type)
	}
	receipt.Date = s.now().UTC()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetWarehouse(ctx, receipt.WarehouseID); err != nil {
			return err
		}
		if checkDisabled {
			for _, m := range movements {
				disabled, err := tx.SKUDisabled(ctx, m.SKUID)
				if err != nil {
					return err
				}
				if disabled {
					return fmt.Errorf("%w: sku %d", ErrSKUDisabled, m.SKUID)
				}
			}
		}
		id, err := tx.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}
		receipt.ID = id
		if err := tx.InsertMovements(ctx, id, movements); err != nil {
			return err
		}
		return Apply(ctx, tx, receipt, movements)
	})
	if err != nil {
		s.countRejection(err)
		return Receipt{}, err
	}
	s.countApplied(receipt.Type)
	s.notifyApplied(ctx)
	s.recordAudit(ctx, receipt.OperatorID, "ledger:"+strings.ToLower(string(receipt.Type)), receipt.ID, map[string]any{
		"warehouse_id": receipt.WarehouseID,
		"lines":        len(movements),
	})
	return receipt, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, receiptID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "receipt",
		EntityID: fmt.Sprintf("%d", receiptID),
		Meta:     meta,
	})
}

func (s *Service) notifyApplied(ctx context.Context) {
	if s.onApplied != nil {
		s.onApplied(ctx)
	}
}

func (s *Service) countApplied(receiptType ReceiptType) {
	if s.metrics != nil {
		s.metrics.ReceiptApplied(string(receiptType))
	}
}

func (s *Service) countRejection(err error) {
	if s.metrics == nil {
		return
	}
	var insufficient *InsufficientStockError
	var missing *ItemNotInWarehouseError
	switch {
	case errors.As(err, &insufficient):
		s.metrics.ReceiptRejected("insufficient_stock")
	case errors.As(err, &missing):
		s.metrics.ReceiptRejected("item_not_in_warehouse")
	case errors.Is(err, ErrDuplicateRefcode):
		s.metrics.ReceiptRejected("duplicate_refcode")
	}
}

func validateHeader(warehouseID int64, lines []LineInput) error {
	if warehouseID == 0 {
		return fmt.Errorf("%w: warehouse required", ErrInvalidMovement)
	}
	if len(lines) == 0 {
		return ErrEmptyReceipt
	}
	for _, line := range lines {
		if line.SKUID == 0 {
			return fmt.Errorf("%w: sku required on every line", ErrInvalidMovement)
		}
	}
	return nil
}

// generateRefcode makes a reference code for receipts posted without
// one, so every receipt stays addressable by a human-readable code.
func generateRefcode(receiptType ReceiptType) string {
	prefix := "RC"
	switch receiptType {
	case ReceiptTypeStockIn:
		prefix = "SI"
	case ReceiptTypeStockOut:
		prefix = "SO"
	case ReceiptTypeTakeStock:
		prefix = "TS"
	}
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func counterRefcode(original Receipt) string {
	if original.Refcode != "" {
		return "RV-" + original.Refcode
	}
	return fmt.Sprintf("RV-%d", original.ID)
}

func receiptRef(original Receipt) string {
	if original.Refcode != "" {
		return original.Refcode
	}
	return fmt.Sprintf("#%d", original.ID)
}
