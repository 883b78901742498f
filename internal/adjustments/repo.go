package adjustments

import (
	"context"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for adjustment requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, adjustment *models.AdjustmentRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdjustmentRequest, error)
	Save(ctx context.Context, adjustment *models.AdjustmentRequest) error
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from enums.AdjustmentStatus, fields map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an adjustments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, adjustment *models.AdjustmentRequest) error {
	if adjustment.ID == uuid.Nil {
		adjustment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(adjustment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdjustmentRequest, error) {
	var adjustment models.AdjustmentRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&adjustment).Error
	if err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func (r *repository) Save(ctx context.Context, adjustment *models.AdjustmentRequest) error {
	return r.db.WithContext(ctx).Save(adjustment).Error
}

// UpdateStatusFrom applies fields only when the row still holds the expected
// status. The status predicate makes concurrent decisions mutually exclusive.
func (r *repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from enums.AdjustmentStatus, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdjustmentRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
