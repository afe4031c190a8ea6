package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// DepositType why funds return to a liquidity pool without minting units
type DepositType int

const (
	// DepositRepay loan principal and interest coming back
	DepositRepay DepositType = iota + 1
	// DepositFlashloan flash loan principal coming back
	DepositFlashloan
	// DepositFee fee earned by the liquidity providers
	DepositFee
)

// WithdrawType why funds leave a liquidity pool without burning units
type WithdrawType int

const (
	// WithdrawBorrow funds lent to a cdp
	WithdrawBorrow WithdrawType = iota + 1
	// WithdrawFlashloan funds lent within one transaction
	WithdrawFlashloan
)

// WithdrawStrategy how a withdraw amount is rounded
type WithdrawStrategy int

const (
	// WithdrawExact exactly the requested amount
	WithdrawExact WithdrawStrategy = iota
	// WithdrawRounded requested amount rounded down to the asset divisibility
	WithdrawRounded
)

// ILiquidityPool single asset vault minting and burning ownership units
type ILiquidityPool interface {
	Contribute(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	Redeem(ctx context.Context, units decimal.Decimal) (decimal.Decimal, error)
	ProtectedDeposit(ctx context.Context, amount decimal.Decimal, kind DepositType) error
	ProtectedWithdraw(ctx context.Context, amount decimal.Decimal, kind WithdrawType, strategy WithdrawStrategy) (decimal.Decimal, error)
	IncreaseExternalLiquidity(ctx context.Context, amount decimal.Decimal) error
	DecreaseExternalLiquidity(ctx context.Context, amount decimal.Decimal) error
	UnitRatio(ctx context.Context) (decimal.Decimal, error)
	PooledAmount(ctx context.Context) (available, borrowed decimal.Decimal, err error)
}

// Snapshotter a stateful collaborator able to undo every change made after Snapshot
type Snapshotter interface {
	Snapshot() (restore func())
}
