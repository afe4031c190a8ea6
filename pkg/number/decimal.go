package number

import (
	"github.com/shopspring/decimal"
)

// Decimal parse v, zero when it is not a number
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// Ceil round d up to precision decimal places
func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// Floor round d down to precision decimal places
func Floor(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Floor().Shift(-precision)
}
