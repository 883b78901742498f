package enums

import "fmt"

// TransactionType labels an entry in the append-only inventory transaction log.
type TransactionType string

const (
	TransactionTypeReserve            TransactionType = "RESERVE"
	TransactionTypeBomDeduction       TransactionType = "BOM_DEDUCTION"
	TransactionTypeReservationRelease TransactionType = "RESERVATION_RELEASE"
	TransactionTypeManualAdjustment   TransactionType = "MANUAL_ADJUSTMENT"
	TransactionTypeStockReceipt       TransactionType = "STOCK_RECEIPT"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeReserve,
	TransactionTypeBomDeduction,
	TransactionTypeReservationRelease,
	TransactionTypeManualAdjustment,
	TransactionTypeStockReceipt,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
