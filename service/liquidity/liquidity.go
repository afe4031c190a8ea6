package liquidity

import (
	"context"
	"fmt"
	"sync"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/pkg/number"

	"github.com/shopspring/decimal"
)

// Pool in-memory single asset vault. Value is available cash plus liquidity
// lent out, units are minted and burned at supply / value.
type Pool struct {
	mu        sync.Mutex
	assetID   string
	precision int32
	available decimal.Decimal
	external  decimal.Decimal
	supply    decimal.Decimal
}

// New new vault for asset, precision is the asset divisibility
func New(assetID string, precision int32) *Pool {
	return &Pool{
		assetID:   assetID,
		precision: precision,
	}
}

// AssetID vault asset
func (p *Pool) AssetID() string {
	return p.assetID
}

func (p *Pool) ratio() decimal.Decimal {
	return lending.UnitRatio(p.supply, p.available.Add(p.external))
}

// Contribute deposit amount and mint units
func (p *Pool) Contribute(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("contribute %s: %w", amount, core.ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	units := lending.ToUnits(amount, p.ratio())
	p.supply = p.supply.Add(units)
	p.available = p.available.Add(amount)
	return units, nil
}

// Redeem burn units for the underlying amount
func (p *Pool) Redeem(ctx context.Context, units decimal.Decimal) (decimal.Decimal, error) {
	if !units.IsPositive() {
		return decimal.Zero, fmt.Errorf("redeem %s: %w", units, core.ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if units.GreaterThan(p.supply) {
		return decimal.Zero, fmt.Errorf("redeem %s of %s units: %w", units, p.supply, core.ErrInsufficientPosition)
	}

	amount := lending.ToAmount(units, p.ratio())
	if units.Equal(p.supply) {
		// last holder takes everything, lent out dust left by rounding is written off
		amount = p.available.Add(p.external)
		if lending.IsDust(p.external) {
			amount = p.available
			p.external = decimal.Zero
		}
	}

	if amount.GreaterThan(p.available) {
		return decimal.Zero, fmt.Errorf("redeem %s %s, %s available: %w", amount, p.assetID, p.available, core.ErrInsufficientLiquidity)
	}

	p.supply = p.supply.Sub(units)
	p.available = p.available.Sub(amount)
	return amount, nil
}

// ProtectedDeposit add funds without minting units
func (p *Pool) ProtectedDeposit(ctx context.Context, amount decimal.Decimal, kind core.DepositType) error {
	if amount.IsNegative() {
		return fmt.Errorf("deposit %s: %w", amount, core.ErrInvalidAmount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.available = p.available.Add(amount)
	if kind == core.DepositRepay {
		p.external = decimal.Max(decimal.Zero, p.external.Sub(amount))
	}

	return nil
}

// ProtectedWithdraw take funds out without burning units, returns the amount sent
func (p *Pool) ProtectedWithdraw(ctx context.Context, amount decimal.Decimal, kind core.WithdrawType, strategy core.WithdrawStrategy) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("withdraw %s: %w", amount, core.ErrInvalidAmount)
	}

	if strategy == core.WithdrawRounded {
		amount = number.Floor(amount, p.precision)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if amount.GreaterThan(p.available) {
		return decimal.Zero, fmt.Errorf("withdraw %s %s, %s available: %w", amount, p.assetID, p.available, core.ErrInsufficientLiquidity)
	}

	p.available = p.available.Sub(amount)
	if kind == core.WithdrawBorrow {
		p.external = p.external.Add(amount)
	}

	return amount, nil
}

// IncreaseExternalLiquidity grow the lent out liquidity by accrued interest
func (p *Pool) IncreaseExternalLiquidity(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("increase external liquidity %s: %w", amount, core.ErrInvalidAmount)
	}

	p.mu.Lock()
	p.external = p.external.Add(amount)
	p.mu.Unlock()
	return nil
}

// DecreaseExternalLiquidity write off lent out liquidity that will never come back
func (p *Pool) DecreaseExternalLiquidity(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("decrease external liquidity %s: %w", amount, core.ErrInvalidAmount)
	}

	p.mu.Lock()
	p.external = decimal.Max(decimal.Zero, p.external.Sub(amount))
	p.mu.Unlock()
	return nil
}

// UnitRatio units per underlying amount
func (p *Pool) UnitRatio(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ratio(), nil
}

// PooledAmount cash available and liquidity lent out
func (p *Pool) PooledAmount(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.available, p.external, nil
}

// Supply units outstanding
func (p *Pool) Supply() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.supply
}

// Snapshot capture the vault balances, restore puts them back
func (p *Pool) Snapshot() func() {
	p.mu.Lock()
	available, external, supply := p.available, p.external, p.supply
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.available, p.external, p.supply = available, external, supply
		p.mu.Unlock()
	}
}
