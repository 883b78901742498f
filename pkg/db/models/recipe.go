package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/pkg/enums"
)

// RecipeVersion is one immutable published revision of a finished product's
// bill of materials. Editing a recipe publishes a new version; history is
// never mutated.
type RecipeVersion struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index:idx_recipe_product_version,unique,priority:1"`
	Version    int               `gorm:"column:version;not null;index:idx_recipe_product_version,unique,priority:2"`
	Components []RecipeComponent `gorm:"foreignKey:RecipeVersionID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default pluralization.
func (RecipeVersion) TableName() string {
	return "recipe_versions"
}

// RecipeComponent maps one raw-material SKU and its per-unit quantity into a
// recipe version.
type RecipeComponent struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeVersionID uuid.UUID       `gorm:"column:recipe_version_id;type:uuid;not null;index"`
	ComponentSkuID  uuid.UUID       `gorm:"column:component_sku_id;type:uuid;not null"`
	QuantityPerUnit decimal.Decimal `gorm:"column:quantity_per_unit;type:decimal(18,4);not null"`
	Unit            enums.Unit      `gorm:"column:unit;type:text;not null"`
}

// TableName overrides the GORM default pluralization.
func (RecipeComponent) TableName() string {
	return "recipe_components"
}
