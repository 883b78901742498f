package enums

import "fmt"

// StockStatus classifies a ledger row by its sellable remainder.
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StockStatusLow        StockStatus = "LOW"
	StockStatusNormal     StockStatus = "NORMAL"
	StockStatusHigh       StockStatus = "HIGH"
)

var validStockStatuses = []StockStatus{
	StockStatusOutOfStock,
	StockStatusLow,
	StockStatusNormal,
	StockStatusHigh,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}
