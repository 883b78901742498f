package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/pkg/enums"
)

// TransactionLogEntry is one append-only record of a ledger mutation. Entries
// are never updated or deleted; they are the sole audit trail.
type TransactionLogEntry struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Type             enums.TransactionType `gorm:"column:type;type:text;not null;index"`
	StoreID          uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	SkuID            uuid.UUID             `gorm:"column:sku_id;type:uuid;not null;index"`
	QuantityDelta    decimal.Decimal       `gorm:"column:quantity_delta;type:decimal(18,4);not null"`
	BalanceBefore    decimal.Decimal       `gorm:"column:balance_before;type:decimal(18,4);not null"`
	BalanceAfter     decimal.Decimal       `gorm:"column:balance_after;type:decimal(18,4);not null"`
	ReferenceOrderID *uuid.UUID            `gorm:"column:reference_order_id;type:uuid;index"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName overrides the GORM default pluralization.
func (TransactionLogEntry) TableName() string {
	return "transaction_log_entries"
}
