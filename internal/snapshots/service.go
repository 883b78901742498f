package snapshots

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// reservationReader is the slice of the reservations repository the purge
// guard needs.
type reservationReader interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Reservation, error)
}

// Service exposes the read and purge surface for BOM snapshots. Creation
// happens through the Repository inside the reservation transaction.
type Service interface {
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.BomSnapshot, error)
	Purge(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo         Repository
	reservations reservationReader
}

// NewService wires a snapshot service with its repository and the reservation
// lookup used to guard purges.
func NewService(repo Repository, reservations reservationReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("snapshots repository required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation reader required")
	}
	return &service{repo: repo, reservations: reservations}, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.BomSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	snapshot, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no snapshot for order %s", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load snapshot")
	}
	return snapshot, nil
}

// Purge removes the snapshot for an order whose reservation reached a
// terminal state. Purging an order that is still ACTIVE is refused: the
// snapshot is the only record of what fulfillment must deduct.
func (s *service) Purge(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	reservation, err := s.reservations.FindByOrderID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no reservation for order %s", orderID))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if !reservation.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot purge snapshot for an active reservation")
	}

	if err := s.repo.DeleteByOrderID(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge snapshot")
	}
	return nil
}
