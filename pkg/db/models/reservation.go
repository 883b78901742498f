package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/pkg/enums"
)

// Reservation is the per-order commitment against raw-material stock. Exactly
// one row exists per order id; terminal states are immutable.
type Reservation struct {
	OrderID     uuid.UUID               `gorm:"column:order_id;type:uuid;primaryKey"`
	StoreID     uuid.UUID               `gorm:"column:store_id;type:uuid;not null"`
	Status      enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	Components  []ReservationComponent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt *time.Time              `gorm:"column:completed_at"`
	CancelledAt *time.Time              `gorm:"column:cancelled_at"`
}

// TableName overrides the GORM default pluralization.
func (Reservation) TableName() string {
	return "reservations"
}

// ReservationComponent records the quantity reserved for one component SKU,
// aggregated across every order line that shares the component.
type ReservationComponent struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ComponentSkuID   uuid.UUID       `gorm:"column:component_sku_id;type:uuid;not null"`
	ReservedQuantity decimal.Decimal `gorm:"column:reserved_quantity;type:decimal(18,4);not null"`
}

// TableName overrides the GORM default pluralization.
func (ReservationComponent) TableName() string {
	return "reservation_components"
}
