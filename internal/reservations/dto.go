package reservations

import (
	"time"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one ordered finished product.
type LineItem struct {
	SkuID    uuid.UUID
	Quantity decimal.Decimal
	Unit     enums.Unit
}

// ReserveInput is the full reservation request for one order.
type ReserveInput struct {
	OrderID uuid.UUID
	StoreID uuid.UUID
	Items   []LineItem
}

// ComponentReservation reports the quantity committed for one raw material.
type ComponentReservation struct {
	ComponentSkuID   uuid.UUID       `json:"component_sku_id"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
}

// ReservationResult is the outward shape of a reservation, returned by both
// fresh executions and idempotent replays.
type ReservationResult struct {
	OrderID    uuid.UUID               `json:"order_id"`
	StoreID    uuid.UUID               `json:"store_id"`
	Status     enums.ReservationStatus `json:"status"`
	Components []ComponentReservation  `json:"components"`
	CreatedAt  time.Time               `json:"created_at"`
	Replayed   bool                    `json:"replayed,omitempty"`
}

func resultFromModel(reservation *models.Reservation, replayed bool) *ReservationResult {
	components := make([]ComponentReservation, len(reservation.Components))
	for i, component := range reservation.Components {
		components[i] = ComponentReservation{
			ComponentSkuID:   component.ComponentSkuID,
			ReservedQuantity: component.ReservedQuantity,
		}
	}
	return &ReservationResult{
		OrderID:    reservation.OrderID,
		StoreID:    reservation.StoreID,
		Status:     reservation.Status,
		Components: components,
		CreatedAt:  reservation.CreatedAt,
		Replayed:   replayed,
	}
}
