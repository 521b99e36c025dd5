package domain

import (
	"math"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Column limits shared by both SQL dialects.
const (
	MaxTextLength = 100
	MaxCount      = math.MaxInt32
)

// MaxAmount is the exclusive upper bound of a NUMERIC(10,2) column.
var MaxAmount = decimal.New(1, 8)

func init() {
	// Prices and totals go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ValidAmount reports whether d fits a non-negative NUMERIC(10,2) without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(MaxAmount) && d.Equal(d.Round(2))
}

func tooLong(s string) bool {
	return utf8.RuneCountInString(s) > MaxTextLength
}
