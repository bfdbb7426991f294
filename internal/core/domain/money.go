package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of fractional digits carried by amounts.
const MinorUnitDigits = 2

var (
	errMalformedAmount   = errors.New("malformed amount")
	errAmountPrecision   = errors.New("amount has more than 2 decimal places")
	errAmountNotPositive = errors.New("amount must be positive")
	errAmountOverflow    = errors.New("amount out of range")
)

var maxMinorUnits = decimal.NewFromInt(1<<63 - 1)

// ParseAmount converts a decimal string such as "150.25" into minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errMalformedAmount
	}
	if !d.Equal(d.Truncate(MinorUnitDigits)) {
		return 0, errAmountPrecision
	}
	if !d.IsPositive() {
		return 0, errAmountNotPositive
	}
	minor := d.Shift(MinorUnitDigits)
	if minor.GreaterThan(maxMinorUnits) {
		return 0, errAmountOverflow
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a fixed two-decimal string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -MinorUnitDigits).StringFixed(MinorUnitDigits)
}
