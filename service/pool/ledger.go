package pool

import (
	"context"
	"fmt"

	"cdplend/core"
	"cdplend/pkg/lending"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount %s: %w", amount, core.ErrInvalidAmount)
	}
	return nil
}

// Contribute deposit amount into the underlying pool, returns the minted deposit units
func (e *Engine) Contribute(ctx context.Context, p *core.Pool, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}

	total := p.TotalDeposit.Add(amount)
	if p.Config.DepositLimit.Exceeded(total, total) {
		return decimal.Zero, fmt.Errorf("deposit %s of %s: %w", amount, p.AssetID, core.ErrDepositLimitExceeded)
	}

	units, err := p.Liquidity.Contribute(ctx, amount)
	if err != nil {
		return decimal.Zero, err
	}

	p.TotalDeposit = total
	p.TotalDepositUnit = p.TotalDepositUnit.Add(units)
	return units, e.syncRate(p)
}

// FreeUnits deposit units neither locked as collateral nor held as reserve
func FreeUnits(p *core.Pool) decimal.Decimal {
	return p.TotalDepositUnit.Sub(p.CollateralUnits).Sub(p.ReserveUnits)
}

// Redeem burn deposit units for the underlying amount
func (e *Engine) Redeem(ctx context.Context, p *core.Pool, units decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(units); err != nil {
		return decimal.Zero, err
	}

	if units.GreaterThan(FreeUnits(p)) {
		return decimal.Zero, fmt.Errorf("redeem %s units of %s: %w", units, p.AssetID, core.ErrInsufficientPosition)
	}

	amount, err := p.Liquidity.Redeem(ctx, units)
	if err != nil {
		return decimal.Zero, err
	}

	p.TotalDeposit = p.TotalDeposit.Sub(amount)
	p.TotalDepositUnit = p.TotalDepositUnit.Sub(units)
	if lending.IsDust(p.TotalDeposit) && p.TotalDeposit.IsNegative() {
		p.TotalDeposit = decimal.Zero
	}

	return amount, e.syncRate(p)
}

// LockCollateral move free deposit units into the collateral holding area
func (e *Engine) LockCollateral(p *core.Pool, units decimal.Decimal) error {
	if err := requirePositive(units); err != nil {
		return err
	}

	if units.GreaterThan(FreeUnits(p)) {
		return fmt.Errorf("lock %s units of %s: %w", units, p.AssetID, core.ErrInsufficientPosition)
	}

	p.CollateralUnits = p.CollateralUnits.Add(units)
	return nil
}

// UnlockCollateral release deposit units from the collateral holding area
func (e *Engine) UnlockCollateral(p *core.Pool, units decimal.Decimal) error {
	if err := requirePositive(units); err != nil {
		return err
	}

	if units.GreaterThan(p.CollateralUnits) {
		return fmt.Errorf("unlock %s units of %s, only %s locked: %w", units, p.AssetID, p.CollateralUnits, core.ErrInvariantViolated)
	}

	p.CollateralUnits = p.CollateralUnits.Sub(units)
	return nil
}

// KeepReserveUnits retain deposit units released from collateral as protocol reserve
func (e *Engine) KeepReserveUnits(p *core.Pool, units decimal.Decimal) {
	if units.IsPositive() {
		p.ReserveUnits = p.ReserveUnits.Add(units)
	}
}

// Borrow withdraw amount for a loan after the borrow and utilization limits
// pass, returns the amount actually sent and the loan units minted for it
func (e *Engine) Borrow(ctx context.Context, p *core.Pool, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	total := p.TotalLoan.Add(amount)
	if p.Config.BorrowLimit.Exceeded(total, p.TotalDeposit) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("borrow %s of %s: %w", amount, p.AssetID, core.ErrBorrowLimitExceeded)
	}

	if limit := p.Config.UtilizationLimit; limit.IsPositive() {
		if !p.TotalDeposit.IsPositive() || total.Div(p.TotalDeposit).GreaterThan(limit) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("borrow %s of %s: %w", amount, p.AssetID, core.ErrUtilizationLimitExceeded)
		}
	}

	ratio := LoanRatio(p)
	sent, err := p.Liquidity.ProtectedWithdraw(ctx, amount, core.WithdrawBorrow, core.WithdrawRounded)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if !sent.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("borrow %s of %s rounds to zero: %w", amount, p.AssetID, core.ErrInvalidAmount)
	}

	units := lending.ToUnits(sent, ratio)
	p.TotalLoan = p.TotalLoan.Add(sent)
	p.TotalLoanUnit = p.TotalLoanUnit.Add(units)
	return sent, units, e.syncRate(p)
}

// Repay pay back at most amount against a loan of maxUnits, returns the amount
// consumed and the loan units burned. Paying the whole debt burns every unit.
func (e *Engine) Repay(ctx context.Context, p *core.Pool, amount, maxUnits decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if !maxUnits.IsPositive() {
		return decimal.Zero, decimal.Zero, nil
	}

	ratio := LoanRatio(p)
	owed := lending.ToAmount(maxUnits, ratio)

	paid, units := owed, maxUnits
	if amount.LessThan(owed) {
		paid = amount
		units = decimal.Min(lending.ToUnits(amount, ratio), maxUnits)
	}

	if !paid.IsPositive() {
		return decimal.Zero, decimal.Zero, nil
	}

	var share decimal.Decimal
	if p.PendingReserve.IsPositive() && p.TotalLoan.IsPositive() {
		share = paid.Mul(p.PendingReserve).Div(p.TotalLoan).Truncate(lending.MaxPrecision)
		share = decimal.Min(share, p.PendingReserve)
	}

	if err := p.Liquidity.ProtectedDeposit(ctx, paid.Sub(share), core.DepositRepay); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	p.TotalLoan = p.TotalLoan.Sub(paid)
	p.TotalLoanUnit = p.TotalLoanUnit.Sub(units)
	p.PendingReserve = p.PendingReserve.Sub(share)
	p.ReserveBalance = p.ReserveBalance.Add(share)

	if p.TotalLoanUnit.IsZero() {
		// the whole book is repaid, what is left is rounding
		if lending.IsDust(p.TotalLoan) {
			p.TotalLoan = decimal.Zero
		}
		p.PendingReserve = decimal.Zero
	}

	return paid, units, e.syncRate(p)
}

// WriteOff drop units of unrecoverable debt from the pool, returns the amount
// written off. Interest stops on it and the loss net of its pending reserve
// share is taken from depositors.
func (e *Engine) WriteOff(ctx context.Context, p *core.Pool, units decimal.Decimal) (decimal.Decimal, error) {
	units = decimal.Min(units, p.TotalLoanUnit)
	if !units.IsPositive() {
		return decimal.Zero, nil
	}

	amount := p.TotalLoan
	if units.LessThan(p.TotalLoanUnit) {
		amount = decimal.Min(LoanAmount(p, units), p.TotalLoan)
	}

	share := p.PendingReserve
	if units.LessThan(p.TotalLoanUnit) && p.TotalLoan.IsPositive() {
		share = amount.Mul(p.PendingReserve).Div(p.TotalLoan).Truncate(lending.MaxPrecision)
		share = decimal.Min(share, p.PendingReserve)
	}

	loss := decimal.Min(amount.Sub(share), p.TotalDeposit)
	if err := p.Liquidity.DecreaseExternalLiquidity(ctx, loss); err != nil {
		return decimal.Zero, err
	}

	p.TotalLoan = p.TotalLoan.Sub(amount)
	p.TotalLoanUnit = p.TotalLoanUnit.Sub(units)
	p.PendingReserve = p.PendingReserve.Sub(share)
	p.TotalDeposit = p.TotalDeposit.Sub(loss)
	p.BadDebt = p.BadDebt.Add(loss)

	logger.FromContext(ctx).WithField("asset", p.AssetID).Infof(
		"write off %s loan units, amount %s, depositor loss %s", units, amount, loss,
	)

	return amount, e.syncRate(p)
}

// TakeFlashloan withdraw amount for a same transaction loan, returns the fee due on top
func (e *Engine) TakeFlashloan(ctx context.Context, p *core.Pool, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}

	if _, err := p.Liquidity.ProtectedWithdraw(ctx, amount, core.WithdrawFlashloan, core.WithdrawExact); err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(p.Config.FlashloanFeeRate).Truncate(lending.MaxPrecision), nil
}

// RepayFlashloan return the principal and split the fee between liquidity providers and the reserve
func (e *Engine) RepayFlashloan(ctx context.Context, p *core.Pool, loan, fee decimal.Decimal) error {
	if err := p.Liquidity.ProtectedDeposit(ctx, loan, core.DepositFlashloan); err != nil {
		return err
	}

	reserve := fee.Mul(p.Config.ProtocolFlashloanFeeRate).Truncate(lending.MaxPrecision)
	lpFee := fee.Sub(reserve)
	if lpFee.IsPositive() {
		if err := p.Liquidity.ProtectedDeposit(ctx, lpFee, core.DepositFee); err != nil {
			return err
		}

		p.TotalDeposit = p.TotalDeposit.Add(lpFee)
	}

	p.ReserveBalance = p.ReserveBalance.Add(reserve)
	return e.syncRate(p)
}

// SweepReserve hand over the collected reserve: the underlying amount, which
// never entered the vault, and the deposit units kept from liquidation fees.
// The units stay in the deposit supply and are redeemed like any other.
func (e *Engine) SweepReserve(p *core.Pool) core.Bucket {
	b := core.Bucket{
		AssetID: p.AssetID,
		Amount:  p.ReserveBalance,
		Unit:    p.ReserveUnits,
	}

	p.ReserveBalance = decimal.Zero
	p.ReserveUnits = decimal.Zero
	return b
}
