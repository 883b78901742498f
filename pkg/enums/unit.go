package enums

import "fmt"

// Unit is the measurement unit attached to recipe components and order lines.
type Unit string

const (
	UnitMilliliter Unit = "ml"
	UnitCentiliter Unit = "cl"
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitPiece      Unit = "piece"
)

var validUnits = []Unit{
	UnitMilliliter,
	UnitCentiliter,
	UnitGram,
	UnitKilogram,
	UnitPiece,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Unit.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
