package ledger

import (
	"context"
	"errors"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for inventory ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error)
	GetOrCreate(ctx context.Context, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error)
	Save(ctx context.Context, row *models.InventoryLedgerRow) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error) {
	var row models.InventoryLedgerRow
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND sku_id = ?", storeID, skuID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetOrCreate returns the row, lazily inserting a zeroed one on first
// reference. Rows are never deleted.
func (r *repository) GetOrCreate(ctx context.Context, storeID, skuID uuid.UUID) (*models.InventoryLedgerRow, error) {
	row, err := r.Find(ctx, storeID, skuID)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.InventoryLedgerRow{StoreID: storeID, SkuID: skuID}
	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *repository) Save(ctx context.Context, row *models.InventoryLedgerRow) error {
	return r.db.WithContext(ctx).Save(row).Error
}
