package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
	"github.com/barflowhq/barflow-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// highWaterMultiplier sets the HIGH stock threshold at three times safety stock.
var highWaterMultiplier = decimal.NewFromInt(3)

// StatusFor classifies a row by its sellable remainder: OUT_OF_STOCK when
// available <= 0, LOW when 0 < available <= safetyStock, HIGH when
// available > highWaterMultiplier x safetyStock, NORMAL otherwise.
func StatusFor(row models.InventoryLedgerRow) enums.StockStatus {
	available := row.Available()
	switch {
	case available.Sign() <= 0:
		return enums.StockStatusOutOfStock
	case available.LessThanOrEqual(row.SafetyStock):
		return enums.StockStatusLow
	case available.GreaterThan(row.SafetyStock.Mul(highWaterMultiplier)):
		return enums.StockStatusHigh
	default:
		return enums.StockStatusNormal
	}
}

// DeltaInput is one atomic quantity change to a single ledger row. The caller
// must hold the row lock for the full read-check-write span.
type DeltaInput struct {
	StoreID        uuid.UUID
	SkuID          uuid.UUID
	OnHandDelta    decimal.Decimal
	ReservedDelta  decimal.Decimal
	InTransitDelta decimal.Decimal
	Operation      string
}

// ApplyResult carries the row state on both sides of one applied delta.
type ApplyResult struct {
	Before models.InventoryLedgerRow
	After  models.InventoryLedgerRow
}

// RowView is the outward, read-only shape of a ledger row.
type RowView struct {
	StoreID     uuid.UUID         `json:"store_id"`
	SkuID       uuid.UUID         `json:"sku_id"`
	OnHand      decimal.Decimal   `json:"on_hand"`
	Reserved    decimal.Decimal   `json:"reserved"`
	InTransit   decimal.Decimal   `json:"in_transit"`
	SafetyStock decimal.Decimal   `json:"safety_stock"`
	Available   decimal.Decimal   `json:"available"`
	Status      enums.StockStatus `json:"status"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ReceiveStockInput describes an inbound delivery for one SKU.
type ReceiveStockInput struct {
	StoreID  uuid.UUID
	SkuID    uuid.UUID
	Quantity decimal.Decimal
}

// Service owns the ledger rows: the sole mutation primitive, the row locks,
// and the inbound-stock operations that feed the rows.
type Service interface {
	Get(ctx context.Context, storeID, skuID uuid.UUID) (*RowView, error)
	Row(ctx context.Context, tx *gorm.DB, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*ApplyResult, error)
	ReceiveStock(ctx context.Context, input ReceiveStockInput) (*RowView, error)
	SetSafetyStock(ctx context.Context, storeID, skuID uuid.UUID, quantity decimal.Decimal) (*RowView, error)
	Acquire(storeID uuid.UUID, skuIDs []uuid.UUID) func()
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	txns    transactions.Repository
	runner  txRunner
	locks   *LockManager
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
}

// NewService wires the ledger service. Metrics may be nil.
func NewService(repo Repository, txns transactions.Repository, runner txRunner, locks *LockManager, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if txns == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		txns:    txns,
		runner:  runner,
		locks:   locks,
		metrics: engineMetrics,
		logg:    logg,
	}, nil
}

func (s *service) Acquire(storeID uuid.UUID, skuIDs []uuid.UUID) func() {
	return s.locks.Acquire(storeID, skuIDs)
}

// Get is the lock-free read path. Callers must tolerate staleness between this
// read and any subsequent write; authoritative checks happen under the row
// locks. An absent row reads as all-zero without being persisted.
func (s *service) Get(ctx context.Context, storeID, skuID uuid.UUID) (*RowView, error) {
	if storeID == uuid.Nil || skuID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and sku id required")
	}

	row, err := s.repo.Find(ctx, storeID, skuID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return toRowView(models.InventoryLedgerRow{StoreID: storeID, SkuID: skuID}), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read ledger row")
	}
	return toRowView(*row), nil
}

// Row loads (or lazily creates) the row inside the caller's transaction.
func (s *service) Row(ctx context.Context, tx *gorm.DB, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error) {
	return s.repo.WithTx(tx).GetOrCreate(ctx, storeID, skuID)
}

// ApplyDelta is the sole mutation entry point for ledger quantities. It
// rejects any delta that would drive onHand, reserved, available, or
// inTransit negative; such a delta indicates a bug upstream and nothing is
// written.
func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*ApplyResult, error) {
	start := time.Now()

	repo := s.repo.WithTx(tx)
	row, err := repo.GetOrCreate(ctx, input.StoreID, input.SkuID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger row")
	}

	before := *row
	row.OnHand = row.OnHand.Add(input.OnHandDelta)
	row.Reserved = row.Reserved.Add(input.ReservedDelta)
	row.InTransit = row.InTransit.Add(input.InTransitDelta)

	if violation := violationFor(*row); violation != "" {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"store_id":  input.StoreID.String(),
			"sku_id":    input.SkuID.String(),
			"operation": input.Operation,
			"violation": violation,
		})
		err := pkgerrors.New(pkgerrors.CodeInvariant, violation)
		s.logg.Error(ctx, "rejected ledger delta", err)
		return nil, err
	}

	if err := repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger row")
	}

	s.metrics.ObserveApply(input.Operation, time.Since(start))
	return &ApplyResult{Before: before, After: *row}, nil
}

func violationFor(row models.InventoryLedgerRow) string {
	switch {
	case row.OnHand.Sign() < 0:
		return "delta would drive on-hand negative"
	case row.Reserved.Sign() < 0:
		return "delta would drive reserved negative"
	case row.Available().Sign() < 0:
		return "delta would drive available negative"
	case row.InTransit.Sign() < 0:
		return "delta would drive in-transit negative"
	default:
		return ""
	}
}

// ReceiveStock books an inbound delivery: on-hand grows by the received
// quantity and any tracked in-transit amount is drawn down, capped at what is
// actually in transit.
func (s *service) ReceiveStock(ctx context.Context, input ReceiveStockInput) (*RowView, error) {
	if input.StoreID == uuid.Nil || input.SkuID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and sku id required")
	}
	if input.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	release := s.locks.Acquire(input.StoreID, []uuid.UUID{input.SkuID})
	defer release()

	var view *RowView
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := s.Row(ctx, tx, input.StoreID, input.SkuID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger row")
		}

		inTransitDrawdown := decimal.Min(row.InTransit, input.Quantity)
		result, err := s.ApplyDelta(ctx, tx, DeltaInput{
			StoreID:        input.StoreID,
			SkuID:          input.SkuID,
			OnHandDelta:    input.Quantity,
			InTransitDelta: inTransitDrawdown.Neg(),
			Operation:      "receive_stock",
		})
		if err != nil {
			return err
		}

		entry := models.TransactionLogEntry{
			ID:            uuid.New(),
			Type:          enums.TransactionTypeStockReceipt,
			StoreID:       input.StoreID,
			SkuID:         input.SkuID,
			QuantityDelta: input.Quantity,
			BalanceBefore: result.Before.OnHand,
			BalanceAfter:  result.After.OnHand,
		}
		if err := s.txns.WithTx(tx).Append(ctx, []models.TransactionLogEntry{entry}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock receipt")
		}

		view = toRowView(result.After)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// SetSafetyStock updates the reorder threshold for one row. Safety stock is
// configuration, not a movement, so no transaction log entry is written.
func (s *service) SetSafetyStock(ctx context.Context, storeID, skuID uuid.UUID, quantity decimal.Decimal) (*RowView, error) {
	if storeID == uuid.Nil || skuID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and sku id required")
	}
	if quantity.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "safety stock cannot be negative")
	}

	release := s.locks.Acquire(storeID, []uuid.UUID{skuID})
	defer release()

	var view *RowView
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetOrCreate(ctx, storeID, skuID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger row")
		}
		row.SafetyStock = quantity
		if err := repo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger row")
		}
		view = toRowView(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func toRowView(row models.InventoryLedgerRow) *RowView {
	return &RowView{
		StoreID:     row.StoreID,
		SkuID:       row.SkuID,
		OnHand:      row.OnHand,
		Reserved:    row.Reserved,
		InTransit:   row.InTransit,
		SafetyStock: row.SafetyStock,
		Available:   row.Available(),
		Status:      StatusFor(row),
		UpdatedAt:   row.UpdatedAt,
	}
}
