package reservations

import (
	"context"
	"time"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Reservation, error)
	MarkCompleted(ctx context.Context, orderID uuid.UUID, at time.Time) error
	MarkCancelled(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	for i := range reservation.Components {
		if reservation.Components[i].ID == uuid.Nil {
			reservation.Components[i].ID = uuid.New()
		}
		reservation.Components[i].OrderID = reservation.OrderID
	}
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Components").
		Where("order_id = ?", orderID).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) MarkCompleted(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":       enums.ReservationStatusCompleted,
			"completed_at": at,
		}).Error
}

func (r *repository) MarkCancelled(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":       enums.ReservationStatusCancelled,
			"cancelled_at": at,
		}).Error
}
