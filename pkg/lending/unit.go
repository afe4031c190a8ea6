package lending

import (
	"github.com/shopspring/decimal"
)

// UnitRatio units outstanding / underlying total, 1 for an empty book
func UnitRatio(units, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !units.IsPositive() {
		return one
	}

	return units.Div(amount).Truncate(MaxPrecision)
}

// ToUnits convert an amount to units at ratio, rounded half to even
func ToUnits(amount, ratio decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratio).RoundBank(MaxPrecision)
}

// ToAmount convert units to an amount at ratio, rounded half to even
func ToAmount(units, ratio decimal.Decimal) decimal.Decimal {
	if !ratio.IsPositive() {
		return decimal.Zero
	}

	return units.Div(ratio).RoundBank(MaxPrecision)
}
