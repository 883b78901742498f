package adjustments

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// allowedTransitions is the explicit state machine for adjustment requests.
// Anything not listed fails with a state-conflict error.
var allowedTransitions = map[enums.AdjustmentStatus][]enums.AdjustmentStatus{
	enums.AdjustmentStatusPending:  {enums.AdjustmentStatusApproved, enums.AdjustmentStatusRejected},
	enums.AdjustmentStatusApproved: {enums.AdjustmentStatusCompleted},
}

func transitionAllowed(from, to enums.AdjustmentStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// SubmitInput describes a requested manual stock correction.
type SubmitInput struct {
	StoreID           uuid.UUID
	SkuID             uuid.UUID
	RequestedQuantity decimal.Decimal
	Reason            string
	Requester         string
}

// Service runs the manual adjustment workflow. Execution writes through the
// same ledger primitive as fulfillment, under the same row lock.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.AdjustmentRequest, error)
	Approve(ctx context.Context, id uuid.UUID, approver string) (*models.AdjustmentRequest, error)
	Reject(ctx context.Context, id uuid.UUID, approver, remark string) (*models.AdjustmentRequest, error)
	Execute(ctx context.Context, id uuid.UUID, executor string) (*models.AdjustmentRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AdjustmentRequest, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	txns   transactions.Repository
	ledger ledger.Service
	runner txRunner
}

// NewService wires the adjustment workflow service.
func NewService(repo Repository, txnsRepo transactions.Repository, ledgerSvc ledger.Service, runner txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("adjustments repository required")
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
	return &service{repo: repo, txns: txnsRepo, ledger: ledgerSvc, runner: runner}, nil
}

// Submit records a PENDING request, capturing the on-hand quantity the
// requester observed. The authoritative delta is recomputed at execution.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.AdjustmentRequest, error) {
	if input.StoreID == uuid.Nil || input.SkuID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and sku id required")
	}
	if input.RequestedQuantity.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity cannot be negative")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if input.Requester == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester required")
	}

	current, err := s.ledger.Get(ctx, input.StoreID, input.SkuID)
	if err != nil {
		return nil, err
	}

	adjustment := &models.AdjustmentRequest{
		StoreID:           input.StoreID,
		SkuID:             input.SkuID,
		Status:            enums.AdjustmentStatusPending,
		OriginalQuantity:  current.OnHand,
		RequestedQuantity: input.RequestedQuantity,
		Reason:            input.Reason,
		Requester:         input.Requester,
	}
	if err := s.repo.Create(ctx, adjustment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create adjustment")
	}
	return adjustment, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, approver string) (*models.AdjustmentRequest, error) {
	if approver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver required")
	}
	return s.decide(ctx, id, enums.AdjustmentStatusApproved, map[string]any{
		"status":   enums.AdjustmentStatusApproved,
		"approver": approver,
	})
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, approver, remark string) (*models.AdjustmentRequest, error) {
	if approver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver required")
	}
	fields := map[string]any{
		"status":   enums.AdjustmentStatusRejected,
		"approver": approver,
	}
	if remark != "" {
		fields["approval_remark"] = remark
	}
	return s.decide(ctx, id, enums.AdjustmentStatusRejected, fields)
}

// decide moves a PENDING request to APPROVED or REJECTED through a
// status-guarded update, so concurrent decisions cannot both win.
func (s *service) decide(ctx context.Context, id uuid.UUID, to enums.AdjustmentStatus, fields map[string]any) (*models.AdjustmentRequest, error) {
	adjustment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(adjustment.Status, to) {
		return nil, transitionError(adjustment.Status, to)
	}

	updated, err := s.repo.UpdateStatusFrom(ctx, id, enums.AdjustmentStatusPending, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save adjustment")
	}
	if !updated {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, transitionError(current.Status, to)
	}
	return s.load(ctx, id)
}

// Execute applies the correction: the delta is requested minus the on-hand
// quantity read under the row lock, so a stock movement between approval and
// execution still converges on the requested count. Re-executing a COMPLETED
// adjustment is rejected, not repeated.
func (s *service) Execute(ctx context.Context, id uuid.UUID, executor string) (*models.AdjustmentRequest, error) {
	if executor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "executor required")
	}

	adjustment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(adjustment.Status, enums.AdjustmentStatusCompleted) {
		return nil, transitionError(adjustment.Status, enums.AdjustmentStatusCompleted)
	}

	release := s.ledger.Acquire(adjustment.StoreID, []uuid.UUID{adjustment.SkuID})
	defer release()

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload adjustment")
		}
		if !transitionAllowed(current.Status, enums.AdjustmentStatusCompleted) {
			return transitionError(current.Status, enums.AdjustmentStatusCompleted)
		}

		row, err := s.ledger.Row(ctx, tx, current.StoreID, current.SkuID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger row")
		}
		delta := current.RequestedQuantity.Sub(row.OnHand)

		result, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
			StoreID:     current.StoreID,
			SkuID:       current.SkuID,
			OnHandDelta: delta,
			Operation:   "adjust",
		})
		if err != nil {
			return err
		}

		entry := models.TransactionLogEntry{
			ID:            uuid.New(),
			Type:          enums.TransactionTypeManualAdjustment,
			StoreID:       current.StoreID,
			SkuID:         current.SkuID,
			QuantityDelta: delta,
			BalanceBefore: result.Before.OnHand,
			BalanceAfter:  result.After.OnHand,
		}
		if err := s.txns.WithTx(tx).Append(ctx, []models.TransactionLogEntry{entry}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append adjustment entry")
		}

		now := time.Now().UTC()
		current.Status = enums.AdjustmentStatusCompleted
		current.Executor = &executor
		current.ExecutedAt = &now
		if err := s.repo.WithTx(tx).Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save adjustment")
		}
		adjustment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjustment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.AdjustmentRequest, error) {
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.AdjustmentRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id required")
	}
	adjustment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no adjustment %s", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load adjustment")
	}
	return adjustment, nil
}

func transitionError(from, to enums.AdjustmentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot transition adjustment from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}
