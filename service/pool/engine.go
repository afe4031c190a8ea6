package pool

import (
	"context"
	"fmt"
	"time"

	"cdplend/core"
	"cdplend/pkg/lending"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// Engine keeps pool state consistent: debounced price and interest refresh,
// unit accounting and the liquidity moves behind borrow, repay and flash loans.
// It mutates the *core.Pool it is handed and never stores pools itself.
type Engine struct {
	oracle    core.IPriceOracle
	clock     clock.Clock
	baseAsset string
}

// New new pool engine
func New(oracle core.IPriceOracle, clk clock.Clock, baseAsset string) *Engine {
	return &Engine{
		oracle:    oracle,
		clock:     clk,
		baseAsset: baseAsset,
	}
}

// Now engine wall clock
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Refresh update price and accrue interest, each step only runs once its
// configured period has elapsed unless bypassed
func (e *Engine) Refresh(ctx context.Context, p *core.Pool, bypassPrice, bypassInterest bool) error {
	now := e.clock.Now()

	if err := e.refreshPrice(ctx, p, now, bypassPrice); err != nil {
		return err
	}

	return e.accrueInterest(ctx, p, now, bypassInterest)
}

// AccrueInterest settle interest due so far without touching the price
func (e *Engine) AccrueInterest(ctx context.Context, p *core.Pool) error {
	return e.accrueInterest(ctx, p, e.clock.Now(), false)
}

func (e *Engine) refreshPrice(ctx context.Context, p *core.Pool, now time.Time, bypass bool) error {
	if p.AssetID == e.baseAsset {
		p.Price = decimal.NewFromInt(1)
		p.PriceUpdatedAt = now
		return nil
	}

	period := time.Duration(p.Config.PriceUpdatePeriod) * time.Minute
	if !bypass && !p.PriceUpdatedAt.IsZero() && now.Sub(p.PriceUpdatedAt) < period {
		return nil
	}

	feed := p.PriceFeed
	if feed == "" {
		feed = p.AssetID
	}

	price, ok, err := e.oracle.GetPrice(ctx, feed)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("price of %s: %w", feed, core.ErrPriceNotFound)
	}

	if !price.Price.IsPositive() {
		return fmt.Errorf("price of %s is %s: %w", feed, price.Price, core.ErrInvalidPrice)
	}

	if exp := time.Duration(p.Config.PriceExpirationPeriod) * time.Minute; exp > 0 && now.Sub(price.Timestamp) > exp {
		return fmt.Errorf("price of %s updated at %s: %w", feed, price.Timestamp.Format(time.RFC3339), core.ErrPriceExpired)
	}

	p.Price = price.Price.Truncate(lending.MaxPrecision)
	p.PriceUpdatedAt = now
	return nil
}

func (e *Engine) accrueInterest(ctx context.Context, p *core.Pool, now time.Time, bypass bool) error {
	if p.InterestUpdatedAt.IsZero() {
		p.InterestUpdatedAt = now
		return e.syncRate(p)
	}

	elapsed := int64(now.Sub(p.InterestUpdatedAt) / time.Second)
	if elapsed <= 0 || (!bypass && elapsed < p.Config.InterestUpdatePeriod) {
		return nil
	}

	accrual := lending.Accrue(p.TotalLoan, p.TotalDeposit, p.InterestRate, p.Config.ProtocolInterestFeeRate, elapsed)
	if accrual.LoanInterest.IsPositive() {
		if err := p.Liquidity.IncreaseExternalLiquidity(ctx, accrual.DepositInterest); err != nil {
			return err
		}

		p.TotalLoan = p.TotalLoan.Add(accrual.LoanInterest)
		p.TotalDeposit = p.TotalDeposit.Add(accrual.DepositInterest)
		p.PendingReserve = p.PendingReserve.Add(accrual.Reserve)

		logger.FromContext(ctx).WithField("asset", p.AssetID).Debugf(
			"accrue interest %s over %ds, deposit %s, reserve %s",
			accrual.LoanInterest, elapsed, accrual.DepositInterest, accrual.Reserve,
		)
	}

	p.InterestUpdatedAt = now
	return e.syncRate(p)
}

// Sync recompute utilization and rate after the strategy or config changed
func (e *Engine) Sync(p *core.Pool) error {
	return e.syncRate(p)
}

// syncRate recompute utilization and the borrow rate after totals changed
func (e *Engine) syncRate(p *core.Pool) error {
	if err := checkTotals(p); err != nil {
		return err
	}

	p.Utilization = lending.Utilization(p.TotalLoan, p.TotalDeposit)
	rate, err := lending.BorrowRate(p.Strategy, p.Utilization, p.Config.OptimalUsage)
	if err != nil {
		return err
	}

	p.InterestRate = rate
	return nil
}

// checkTotals zero dust totals once their units are gone, anything negative or
// a unit supply outpacing its backing beyond recorded bad debt is an accounting bug
func checkTotals(p *core.Pool) error {
	if p.TotalLoanUnit.IsZero() && lending.IsDust(p.TotalLoan) {
		p.TotalLoan = decimal.Zero
	}

	if p.TotalDepositUnit.IsZero() {
		if lending.IsDust(p.TotalDeposit) {
			p.TotalDeposit = decimal.Zero
		}
		// every depositor has left, the loss is settled
		p.BadDebt = decimal.Zero
	}

	for name, v := range map[string]decimal.Decimal{
		"total_loan":         p.TotalLoan,
		"total_loan_unit":    p.TotalLoanUnit,
		"total_deposit":      p.TotalDeposit,
		"total_deposit_unit": p.TotalDepositUnit,
		"collateral_units":   p.CollateralUnits,
		"pending_reserve":    p.PendingReserve,
		"bad_debt":           p.BadDebt,
	} {
		if v.IsNegative() {
			return fmt.Errorf("pool %s %s is negative (%s): %w", p.AssetID, name, v, core.ErrInvariantViolated)
		}
	}

	if p.TotalLoanUnit.Sub(p.TotalLoan).GreaterThan(lending.Epsilon) {
		return fmt.Errorf("pool %s loan units %s exceed total loan %s: %w", p.AssetID, p.TotalLoanUnit, p.TotalLoan, core.ErrInvariantViolated)
	}

	// units only outgrow the backing by what written off debt took from it
	if p.TotalDepositUnit.Sub(p.TotalDeposit).Sub(p.BadDebt).GreaterThan(lending.Epsilon) {
		return fmt.Errorf("pool %s deposit units %s exceed total deposit %s: %w", p.AssetID, p.TotalDepositUnit, p.TotalDeposit, core.ErrInvariantViolated)
	}

	return nil
}

// DepositRatio deposit units per underlying amount
func DepositRatio(p *core.Pool) decimal.Decimal {
	return lending.UnitRatio(p.TotalDepositUnit, p.TotalDeposit)
}

// LoanRatio loan units per underlying amount
func LoanRatio(p *core.Pool) decimal.Decimal {
	return lending.UnitRatio(p.TotalLoanUnit, p.TotalLoan)
}

// DepositAmount underlying amount of deposit units
func DepositAmount(p *core.Pool, units decimal.Decimal) decimal.Decimal {
	return lending.ToAmount(units, DepositRatio(p))
}

// DepositUnits deposit units worth amount
func DepositUnits(p *core.Pool, amount decimal.Decimal) decimal.Decimal {
	return lending.ToUnits(amount, DepositRatio(p))
}

// LoanAmount underlying amount owed for loan units
func LoanAmount(p *core.Pool, units decimal.Decimal) decimal.Decimal {
	return lending.ToAmount(units, LoanRatio(p))
}

// Value amount priced at the pool's current price
func Value(p *core.Pool, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.Price).Truncate(lending.MaxPrecision)
}
