package transactions

import (
	"context"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for transaction log entries. The log is
// append-only; there is no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entries []models.TransactionLogEntry) error
	List(ctx context.Context, opts listQuery) ([]models.TransactionLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transaction log repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entries []models.TransactionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) List(ctx context.Context, opts listQuery) ([]models.TransactionLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionLogEntry{})

	if opts.referenceOrderID != nil {
		query = query.Where("reference_order_id = ?", *opts.referenceOrderID)
	}
	if opts.entryType != nil {
		query = query.Where("type = ?", *opts.entryType)
	}
	if opts.storeID != nil {
		query = query.Where("store_id = ?", *opts.storeID)
	}
	if opts.skuID != nil {
		query = query.Where("sku_id = ?", *opts.skuID)
	}
	if opts.dateFrom != nil {
		query = query.Where("created_at >= ?", *opts.dateFrom)
	}
	if opts.dateTo != nil {
		query = query.Where("created_at <= ?", *opts.dateTo)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.TransactionLogEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
