package lending

import (
	"cdplend/core"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateStrategy each break point must be non-negative, which keeps the curve
// monotonically non-decreasing in utilization
func ValidateStrategy(s core.InterestStrategy) error {
	if s.BaseRate.IsNegative() || s.Slope1.IsNegative() || s.Slope2.IsNegative() {
		return fmt.Errorf("interest strategy break points must be non-negative: %w", core.ErrInvalidRate)
	}

	return nil
}

// BorrowRate yearly borrow rate at utilization u
//
//	u <  optimal: base + u/optimal * slope1
//	u >= optimal: base + slope1 + (u-optimal)/(1-optimal) * slope2
func BorrowRate(s core.InterestStrategy, u, optimal decimal.Decimal) (decimal.Decimal, error) {
	if !InUnitRange(u) {
		return decimal.Zero, fmt.Errorf("utilization %s out of [0,1]: %w", u, core.ErrInvalidRate)
	}

	if !InUnitRange(optimal) || optimal.IsZero() {
		return decimal.Zero, fmt.Errorf("optimal utilization %s out of (0,1]: %w", optimal, core.ErrInvalidRate)
	}

	if u.LessThan(optimal) {
		return s.BaseRate.Add(u.Div(optimal).Mul(s.Slope1)).Truncate(MaxPrecision), nil
	}

	rate := s.BaseRate.Add(s.Slope1)
	if optimal.Equal(one) {
		return rate, nil
	}

	excess := u.Sub(optimal).Div(one.Sub(optimal))
	return rate.Add(excess.Mul(s.Slope2)).Truncate(MaxPrecision), nil
}

// SupplyRate yearly rate earned by depositors
// supply_rate = utilization * borrow_rate * (1 - protocol_fee_rate)
func SupplyRate(borrowRate, utilization, protocolFeeRate decimal.Decimal) decimal.Decimal {
	return utilization.Mul(borrowRate).Mul(one.Sub(protocolFeeRate)).Truncate(MaxPrecision)
}

// Utilization total_loan / total_deposit, zero without deposits and capped at 1
func Utilization(totalLoan, totalDeposit decimal.Decimal) decimal.Decimal {
	if !totalDeposit.IsPositive() || !totalLoan.IsPositive() {
		return decimal.Zero
	}

	u := totalLoan.Div(totalDeposit).Truncate(MaxPrecision)
	if u.GreaterThan(one) {
		return one
	}

	return u
}

var daysPerYear = decimal.NewFromInt(365)

// APY compound a yearly rate daily
func APY(rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}

	daily := one.Add(rate.Div(daysPerYear))
	return daily.Pow(daysPerYear).Sub(one).Truncate(MaxPrecision)
}

// Accrual interest accumulated over one refresh period
type Accrual struct {
	LoanInterest    decimal.Decimal
	DepositInterest decimal.Decimal
	Reserve         decimal.Decimal
}

// Accrue compute the interest accumulated over elapsed seconds
//
//	loan_interest    = rate * total_loan * elapsed / seconds_per_year
//	deposit_interest = utilization * rate * (1 - protocol_fee_rate) * total_deposit * elapsed / seconds_per_year
//	reserve          = loan_interest - deposit_interest
//
// Deposit interest never exceeds loan interest; when rounding or a utilization
// above 1 would make it do so, depositors receive the loan interest and the
// reserve takes nothing.
func Accrue(totalLoan, totalDeposit, rate, protocolFeeRate decimal.Decimal, elapsedSeconds int64) Accrual {
	if elapsedSeconds <= 0 || !rate.IsPositive() || !totalLoan.IsPositive() {
		return Accrual{}
	}

	period := decimal.NewFromInt(elapsedSeconds).Div(SecondsPerYear)
	loanInterest := totalLoan.Mul(rate).Mul(period).Truncate(MaxPrecision)

	utilization := Utilization(totalLoan, totalDeposit)
	depositInterest := utilization.Mul(rate).Mul(one.Sub(protocolFeeRate)).
		Mul(totalDeposit).Mul(period).Truncate(MaxPrecision)

	if depositInterest.GreaterThan(loanInterest) {
		depositInterest = loanInterest
	}

	return Accrual{
		LoanInterest:    loanInterest,
		DepositInterest: depositInterest,
		Reserve:         loanInterest.Sub(depositInterest),
	}
}
