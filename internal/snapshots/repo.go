package snapshots

import (
	"context"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for BOM snapshots. Snapshots are written
// once at reservation time and never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, snapshot *models.BomSnapshot) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.BomSnapshot, error)
	DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a snapshot repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, snapshot *models.BomSnapshot) error {
	for i := range snapshot.Lines {
		if snapshot.Lines[i].ID == uuid.Nil {
			snapshot.Lines[i].ID = uuid.New()
		}
		snapshot.Lines[i].OrderID = snapshot.OrderID
	}
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.BomSnapshot, error) {
	var snapshot models.BomSnapshot
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("order_id = ?", orderID).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.BomSnapshotLine{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.BomSnapshot{}).Error
}
