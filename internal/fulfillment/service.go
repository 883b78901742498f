package fulfillment

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/reservations"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Result reports the outcome of a fulfillment or cancellation call.
type Result struct {
	OrderID  uuid.UUID               `json:"order_id"`
	Status   enums.ReservationStatus `json:"status"`
	Replayed bool                    `json:"replayed,omitempty"`
}

// Service transitions reservations to their terminal states. Deductions
// always use the order's frozen snapshot quantities, never a fresh recipe
// resolution, so recipe edits cannot change what a placed order consumes.
type Service interface {
	Fulfill(ctx context.Context, orderID, storeID uuid.UUID) (*Result, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	reservations reservations.Repository
	snapshots    snapshots.Repository
	txns         transactions.Repository
	ledger       ledger.Service
	runner       txRunner
	metrics      *metrics.EngineMetrics
}

// NewService wires the fulfillment coordinator. Metrics may be nil.
func NewService(reservationsRepo reservations.Repository, snapshotsRepo snapshots.Repository, txnsRepo transactions.Repository, ledgerSvc ledger.Service, runner txRunner, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if reservationsRepo == nil {
		return nil, fmt.Errorf("reservations repository required")
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
		reservations: reservationsRepo,
		snapshots:    snapshotsRepo,
		txns:         txnsRepo,
		ledger:       ledgerSvc,
		runner:       runner,
		metrics:      engineMetrics,
	}, nil
}

// Fulfill deducts the snapshot quantities from on-hand stock and releases the
// matching reservation in one step. Repeating the call on a COMPLETED order
// replays the prior confirmation; a CANCELLED order cannot be fulfilled.
func (s *service) Fulfill(ctx context.Context, orderID, storeID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and store id required")
	}

	reservation, err := s.loadReservation(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if reservation.StoreID != storeID {
		// deltas against another store's rows would consume that store's
		// reservations and strand this one
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id does not match the order's reservation").
			WithDetails(map[string]any{"reservation_store_id": reservation.StoreID.String()})
	}
	switch reservation.Status {
	case enums.ReservationStatusCompleted:
		s.metrics.IncFulfillment("replayed")
		return &Result{OrderID: orderID, Status: reservation.Status, Replayed: true}, nil
	case enums.ReservationStatusCancelled:
		s.metrics.IncFulfillment("invalid_state")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already cancelled")
	}

	required, err := s.snapshotQuantities(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ordered := orderedSkus(required)

	release := s.ledger.Acquire(storeID, ordered)
	defer release()

	var replayed bool
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		// fulfillment and cancellation of the same order exclude each other
		// through the status, re-read under the row locks
		current, err := s.reservations.WithTx(tx).FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload reservation")
		}
		switch current.Status {
		case enums.ReservationStatusCompleted:
			replayed = true
			return nil
		case enums.ReservationStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already cancelled")
		}

		entries := make([]models.TransactionLogEntry, 0, len(ordered))
		for _, skuID := range ordered {
			quantity := required[skuID]
			result, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
				StoreID:       storeID,
				SkuID:         skuID,
				OnHandDelta:   quantity.Neg(),
				ReservedDelta: quantity.Neg(),
				Operation:     "fulfill",
			})
			if err != nil {
				return err
			}
			ref := orderID
			entries = append(entries, models.TransactionLogEntry{
				ID:               uuid.New(),
				Type:             enums.TransactionTypeBomDeduction,
				StoreID:          storeID,
				SkuID:            skuID,
				QuantityDelta:    quantity.Neg(),
				BalanceBefore:    result.Before.OnHand,
				BalanceAfter:     result.After.OnHand,
				ReferenceOrderID: &ref,
			})
		}
		if err := s.txns.WithTx(tx).Append(ctx, entries); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append deduction entries")
		}
		if err := s.reservations.WithTx(tx).MarkCompleted(ctx, orderID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation completed")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFulfillment("error")
		return nil, err
	}

	if replayed {
		s.metrics.IncFulfillment("replayed")
	} else {
		s.metrics.IncFulfillment("completed")
	}
	return &Result{OrderID: orderID, Status: enums.ReservationStatusCompleted, Replayed: replayed}, nil
}

// Cancel releases the reserved quantities. Any non-ACTIVE reservation makes
// this a no-op success, so a retried cancel never double-releases.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	reservation, err := s.loadReservation(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != enums.ReservationStatusActive {
		s.metrics.IncFulfillment("cancel_noop")
		return &Result{OrderID: orderID, Status: reservation.Status, Replayed: true}, nil
	}

	required, err := s.snapshotQuantities(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ordered := orderedSkus(required)
	storeID := reservation.StoreID

	release := s.ledger.Acquire(storeID, ordered)
	defer release()

	var noop bool
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.reservations.WithTx(tx).FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload reservation")
		}
		if current.Status != enums.ReservationStatusActive {
			noop = true
			return nil
		}

		entries := make([]models.TransactionLogEntry, 0, len(ordered))
		for _, skuID := range ordered {
			quantity := required[skuID]
			result, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
				StoreID:       storeID,
				SkuID:         skuID,
				ReservedDelta: quantity.Neg(),
				Operation:     "cancel",
			})
			if err != nil {
				return err
			}
			ref := orderID
			entries = append(entries, models.TransactionLogEntry{
				ID:               uuid.New(),
				Type:             enums.TransactionTypeReservationRelease,
				StoreID:          storeID,
				SkuID:            skuID,
				QuantityDelta:    quantity.Neg(),
				BalanceBefore:    result.Before.Reserved,
				BalanceAfter:     result.After.Reserved,
				ReferenceOrderID: &ref,
			})
		}
		if err := s.txns.WithTx(tx).Append(ctx, entries); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append release entries")
		}
		if err := s.reservations.WithTx(tx).MarkCancelled(ctx, orderID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation cancelled")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFulfillment("error")
		return nil, err
	}

	if noop {
		s.metrics.IncFulfillment("cancel_noop")
		current, err := s.loadReservation(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &Result{OrderID: orderID, Status: current.Status, Replayed: true}, nil
	}

	s.metrics.IncFulfillment("cancelled")
	return &Result{OrderID: orderID, Status: enums.ReservationStatusCancelled}, nil
}

func (s *service) loadReservation(ctx context.Context, orderID uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.reservations.FindByOrderID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no reservation for order %s", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}

// snapshotQuantities aggregates the frozen snapshot lines per component SKU.
func (s *service) snapshotQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	snapshot, err := s.snapshots.FindByOrderID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvariant, fmt.Sprintf("reservation without snapshot for order %s", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshot")
	}

	required := make(map[uuid.UUID]decimal.Decimal, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		required[line.ComponentSkuID] = required[line.ComponentSkuID].Add(line.Quantity)
	}
	return required, nil
}

func orderedSkus(required map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ordered := make([]uuid.UUID, 0, len(required))
	for skuID := range required {
		ordered = append(ordered, skuID)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})
	return ordered
}
