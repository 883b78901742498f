package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLedgerRow holds the authoritative stock quantities for one SKU at
// one store. Rows are created lazily with zeroed quantities and never deleted;
// every quantity change flows through the ledger apply primitive.
type InventoryLedgerRow struct {
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;primaryKey"`
	SkuID       uuid.UUID       `gorm:"column:sku_id;type:uuid;primaryKey"`
	OnHand      decimal.Decimal `gorm:"column:on_hand;type:decimal(18,4);not null;default:0"`
	Reserved    decimal.Decimal `gorm:"column:reserved;type:decimal(18,4);not null;default:0"`
	InTransit   decimal.Decimal `gorm:"column:in_transit;type:decimal(18,4);not null;default:0"`
	SafetyStock decimal.Decimal `gorm:"column:safety_stock;type:decimal(18,4);not null;default:0"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default pluralization.
func (InventoryLedgerRow) TableName() string {
	return "inventory_ledger_rows"
}

// Available returns the sellable remainder: on-hand minus reserved.
func (r InventoryLedgerRow) Available() decimal.Decimal {
	return r.OnHand.Sub(r.Reserved)
}
