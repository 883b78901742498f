package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/pkg/enums"
)

// BomSnapshot freezes the resolved component quantities for an order at the
// moment the reservation is taken, so later fulfillment is immune to recipe
// edits. Written once, read-only afterward.
type BomSnapshot struct {
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;primaryKey"`
	StoreID   uuid.UUID         `gorm:"column:store_id;type:uuid;not null"`
	Lines     []BomSnapshotLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default pluralization.
func (BomSnapshot) TableName() string {
	return "bom_snapshots"
}

// BomSnapshotLine carries one component of one order line, with the quantity
// already multiplied by the ordered quantity.
type BomSnapshotLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	LineNumber      int             `gorm:"column:line_number;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	RecipeVersionID uuid.UUID       `gorm:"column:recipe_version_id;type:uuid;not null"`
	ComponentSkuID  uuid.UUID       `gorm:"column:component_sku_id;type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:decimal(18,4);not null"`
	Unit            enums.Unit      `gorm:"column:unit;type:text;not null"`
}

// TableName overrides the GORM default pluralization.
func (BomSnapshotLine) TableName() string {
	return "bom_snapshot_lines"
}
