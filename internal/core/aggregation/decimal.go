package aggregation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the fixed-point scale of every persisted amount.
const MoneyPlaces = 2

// ParseAmount parses a decimal string as sent by the upstream API.
// Empty and malformed values report false so callers can skip just that field.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// NullAmount parses s into a nullable amount.
func NullAmount(s string) decimal.NullDecimal {
	d, ok := ParseAmount(s)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Money rounds to the persisted scale.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// OrZero treats an absent amount as zero for summation.
func OrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
