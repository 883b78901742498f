package transactions

import (
	"time"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgpagination "github.com/barflowhq/barflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilters describe the inputs supported by the transaction log list.
type ListFilters struct {
	ReferenceOrderID *uuid.UUID
	Type             *enums.TransactionType
	StoreID          *uuid.UUID
	SkuID            *uuid.UUID
	DateFrom         *time.Time
	DateTo           *time.Time
}

// ListParams combine filters with cursor pagination inputs.
type ListParams struct {
	Filters ListFilters
	pkgpagination.Params
}

// ListResult is one page of log entries, newest first.
type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

// ListItem is the outward shape of one transaction log entry.
type ListItem struct {
	ID               uuid.UUID             `json:"id"`
	Type             enums.TransactionType `json:"type"`
	StoreID          uuid.UUID             `json:"store_id"`
	SkuID            uuid.UUID             `json:"sku_id"`
	QuantityDelta    decimal.Decimal       `json:"quantity_delta"`
	BalanceBefore    decimal.Decimal       `json:"balance_before"`
	BalanceAfter     decimal.Decimal       `json:"balance_after"`
	ReferenceOrderID *uuid.UUID            `json:"reference_order_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type listQuery struct {
	referenceOrderID *uuid.UUID
	entryType        *enums.TransactionType
	storeID          *uuid.UUID
	skuID            *uuid.UUID
	dateFrom         *time.Time
	dateTo           *time.Time
	limit            int
	cursor           *pkgpagination.Cursor
}

func toListItem(m models.TransactionLogEntry) ListItem {
	return ListItem{
		ID:               m.ID,
		Type:             m.Type,
		StoreID:          m.StoreID,
		SkuID:            m.SkuID,
		QuantityDelta:    m.QuantityDelta,
		BalanceBefore:    m.BalanceBefore,
		BalanceAfter:     m.BalanceAfter,
		ReferenceOrderID: m.ReferenceOrderID,
		CreatedAt:        m.CreatedAt,
	}
}
