package lending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUnitRatio(t *testing.T) {
	assert.Equal(t, "1", UnitRatio(decimal.Zero, decimal.Zero).String())
	assert.Equal(t, "1", UnitRatio(d("100"), decimal.Zero).String())
	assert.Equal(t, "0.98", UnitRatio(d("980"), d("1000")).String())
}

func TestUnitRoundTrip(t *testing.T) {
	units := ToUnits(d("1000"), UnitRatio(decimal.Zero, decimal.Zero))
	assert.Equal(t, "1000", units.String())

	amount := ToAmount(d("980"), d("0.98"))
	assert.Equal(t, "1000", amount.String())
}

func TestToUnitsRoundsHalfToEven(t *testing.T) {
	assert.Equal(t, "0.0000000000000002", ToUnits(d("0.00000000000000025"), one).String())
	assert.Equal(t, "0.0000000000000004", ToUnits(d("0.00000000000000035"), one).String())
}

func TestToAmountZeroRatio(t *testing.T) {
	assert.True(t, ToAmount(d("10"), decimal.Zero).IsZero())
}

func TestIsDust(t *testing.T) {
	assert.True(t, IsDust(d("0.0000000001")))
	assert.True(t, IsDust(d("-0.0000000001")))
	assert.False(t, IsDust(d("0.000001")))
}
