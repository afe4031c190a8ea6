package lending

import (
	"github.com/shopspring/decimal"
)

var (
	// MaxPrecision max precision of stored amounts, units and ratios
	MaxPrecision int32 = 16
	// SecondsPerYear seconds per year
	SecondsPerYear = decimal.NewFromInt(31536000)
	// Epsilon values below this are treated as zero
	Epsilon = decimal.New(1, -9)
	// MaxLTV ltv reported for a position with debt and no discounted collateral
	MaxLTV = decimal.New(1, 38)

	one = decimal.NewFromInt(1)
)

// IsDust value is within Epsilon of zero
func IsDust(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// InUnitRange d in [0, 1]
func InUnitRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}
