package recipes

import (
	"context"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for recipe versions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateVersion(ctx context.Context, version *models.RecipeVersion) error
	FindLatestVersion(ctx context.Context, productID uuid.UUID) (*models.RecipeVersion, error)
	MaxVersion(ctx context.Context, productID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a recipes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateVersion(ctx context.Context, version *models.RecipeVersion) error {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	for i := range version.Components {
		if version.Components[i].ID == uuid.Nil {
			version.Components[i].ID = uuid.New()
		}
		version.Components[i].RecipeVersionID = version.ID
	}
	return r.db.WithContext(ctx).Create(version).Error
}

func (r *repository) FindLatestVersion(ctx context.Context, productID uuid.UUID) (*models.RecipeVersion, error) {
	var version models.RecipeVersion
	err := r.db.WithContext(ctx).
		Preload("Components").
		Where("product_id = ?", productID).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *repository) MaxVersion(ctx context.Context, productID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.RecipeVersion{}).
		Where("product_id = ?", productID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
