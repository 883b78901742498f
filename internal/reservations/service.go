package reservations

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"sort"

	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/recipes"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	pkgdb "github.com/barflowhq/barflow-backend/pkg/db"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the reservation engine: it expands order lines through the
// recipe resolver, commits reserved stock all-or-nothing under the row locks,
// and freezes the resolved BOM as the order's snapshot.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*ReservationResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*ReservationResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      Repository
	recipes   recipes.Service
	snapshots snapshots.Repository
	txns      transactions.Repository
	ledger    ledger.Service
	runner    txRunner
	metrics   *metrics.EngineMetrics
}

// NewService wires the reservation engine. Metrics may be nil.
func NewService(repo Repository, recipesSvc recipes.Service, snapshotsRepo snapshots.Repository, txnsRepo transactions.Repository, ledgerSvc ledger.Service, runner txRunner, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if recipesSvc == nil {
		return nil, fmt.Errorf("recipes service required")
	}
	if snapshotsRepo == nil {
		return nil, fmt.Errorf("snapshots repository required")
	}
	if txnsRepo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:      repo,
		recipes:   recipesSvc,
		snapshots: snapshotsRepo,
		txns:      txnsRepo,
		ledger:    ledgerSvc,
		runner:    runner,
		metrics:   engineMetrics,
	}, nil
}

type resolvedLine struct {
	lineNumber int
	productID  uuid.UUID
	components []recipes.ResolvedComponent
}

// Reserve commits stock for one order. The operation is idempotent by order
// id: a repeat call returns the recorded result without re-executing.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*ReservationResult, error) {
	if err := validateReserveInput(input); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByOrderID(ctx, input.OrderID); err == nil {
		s.metrics.IncReservation("replayed")
		return resultFromModel(existing, true), nil
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing reservation")
	}

	// Resolver failures surface before any ledger interaction.
	lines := make([]resolvedLine, 0, len(input.Items))
	required := make(map[uuid.UUID]decimal.Decimal)
	for i, item := range input.Items {
		components, err := s.recipes.Resolve(ctx, item.SkuID, item.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, resolvedLine{lineNumber: i + 1, productID: item.SkuID, components: components})
		for _, component := range components {
			required[component.ComponentSkuID] = required[component.ComponentSkuID].Add(component.Quantity)
		}
	}

	ordered := make([]uuid.UUID, 0, len(required))
	for skuID := range required {
		ordered = append(ordered, skuID)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	release := s.ledger.Acquire(input.StoreID, ordered)
	defer release()

	var replayed *models.Reservation
	var created *models.Reservation
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		// the row locks do not cover the order id, so a concurrent retry of
		// the same order is caught again here
		existing, err := s.repo.WithTx(tx).FindByOrderID(ctx, input.OrderID)
		if err == nil {
			replayed = existing
			return nil
		}
		if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing reservation")
		}

		var violating []string
		for _, skuID := range ordered {
			row, err := s.ledger.Row(ctx, tx, input.StoreID, skuID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger row")
			}
			if row.Available().LessThan(required[skuID]) {
				violating = append(violating, skuID.String())
			}
		}
		if len(violating) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for reservation").
				WithDetails(map[string]any{"sku_ids": violating})
		}

		entries := make([]models.TransactionLogEntry, 0, len(ordered))
		components := make([]models.ReservationComponent, 0, len(ordered))
		orderID := input.OrderID
		for _, skuID := range ordered {
			result, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
				StoreID:       input.StoreID,
				SkuID:         skuID,
				ReservedDelta: required[skuID],
				Operation:     "reserve",
			})
			if err != nil {
				return err
			}
			entries = append(entries, models.TransactionLogEntry{
				ID:               uuid.New(),
				Type:             enums.TransactionTypeReserve,
				StoreID:          input.StoreID,
				SkuID:            skuID,
				QuantityDelta:    required[skuID],
				BalanceBefore:    result.Before.Reserved,
				BalanceAfter:     result.After.Reserved,
				ReferenceOrderID: &orderID,
			})
			components = append(components, models.ReservationComponent{
				ComponentSkuID:   skuID,
				ReservedQuantity: required[skuID],
			})
		}

		if err := s.txns.WithTx(tx).Append(ctx, entries); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append reserve entries")
		}

		snapshot := buildSnapshot(input, lines)
		if err := s.snapshots.WithTx(tx).Create(ctx, snapshot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write bom snapshot")
		}

		reservation := &models.Reservation{
			OrderID:    input.OrderID,
			StoreID:    input.StoreID,
			Status:     enums.ReservationStatusActive,
			Components: components,
		}
		if err := s.repo.WithTx(tx).Create(ctx, reservation); err != nil {
			// the key locks are in-process only, so a second instance can
			// still race the insert
			if pkgdb.IsUniqueViolation(err, "reservations_pkey") {
				return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "reservation already recorded for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		created = reservation
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			s.metrics.IncReservation("insufficient_stock")
		} else {
			s.metrics.IncReservation("error")
		}
		return nil, err
	}

	if replayed != nil {
		s.metrics.IncReservation("replayed")
		return resultFromModel(replayed, true), nil
	}

	s.metrics.IncReservation("reserved")
	return resultFromModel(created, false), nil
}

// Get returns the recorded reservation for an order.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*ReservationResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reservation, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no reservation for order %s", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return resultFromModel(reservation, false), nil
}

func validateReserveInput(input ReserveInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	for _, item := range input.Items {
		if item.SkuID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item sku id required")
		}
		if item.Quantity.Sign() <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		if item.Unit != "" && !item.Unit.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", item.Unit))
		}
	}
	return nil
}

func buildSnapshot(input ReserveInput, lines []resolvedLine) *models.BomSnapshot {
	snapshot := &models.BomSnapshot{
		OrderID: input.OrderID,
		StoreID: input.StoreID,
	}
	for _, line := range lines {
		for _, component := range line.components {
			snapshot.Lines = append(snapshot.Lines, models.BomSnapshotLine{
				ID:              uuid.New(),
				OrderID:         input.OrderID,
				LineNumber:      line.lineNumber,
				ProductID:       line.productID,
				RecipeVersionID: component.RecipeVersionID,
				ComponentSkuID:  component.ComponentSkuID,
				Quantity:        component.Quantity,
				Unit:            component.Unit,
			})
		}
	}
	return snapshot
}
