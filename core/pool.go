package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LimitType how a deposit or borrow limit is expressed
type LimitType string

const (
	// LimitNone no limit
	LimitNone LimitType = "none"
	// LimitAmount absolute amount of the underlying asset
	LimitAmount LimitType = "amount"
	// LimitSupplyRatio fraction of the total deposit
	LimitSupplyRatio LimitType = "supply_ratio"
)

// Limit deposit or borrow cap
type Limit struct {
	Type  LimitType       `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Exceeded reports whether total breaks the limit, supply is the pool's total deposit
func (l Limit) Exceeded(total, supply decimal.Decimal) bool {
	switch l.Type {
	case LimitAmount:
		return total.GreaterThan(l.Value)
	case LimitSupplyRatio:
		return total.GreaterThan(supply.Mul(l.Value))
	default:
		return false
	}
}

// PoolConfig per pool risk and fee parameters
type PoolConfig struct {
	// seconds between two interest accruals
	InterestUpdatePeriod int64 `json:"interest_update_period"`
	// minutes between two oracle reads
	PriceUpdatePeriod int64 `json:"price_update_period"`
	// minutes after which an oracle price is rejected
	PriceExpirationPeriod int64 `json:"price_expiration_period"`
	// optimal utilization of the interest curve, (0, 1]
	OptimalUsage decimal.Decimal `json:"optimal_usage"`
	// share of borrow interest kept by the protocol
	ProtocolInterestFeeRate decimal.Decimal `json:"protocol_interest_fee_rate"`
	FlashloanFeeRate        decimal.Decimal `json:"flashloan_fee_rate"`
	// share of the flash loan fee kept by the protocol
	ProtocolFlashloanFeeRate decimal.Decimal `json:"protocol_flashloan_fee_rate"`
	// collateral markup paid to liquidators
	LiquidationBonusRate decimal.Decimal `json:"liquidation_bonus_rate"`
	// share of the liquidation bonus kept by the protocol
	ProtocolLiquidationFeeRate decimal.Decimal `json:"protocol_liquidation_fee_rate"`
	// fraction of a loan a liquidator may repay at once
	LoanCloseFactor  decimal.Decimal `json:"loan_close_factor"`
	DepositLimit     Limit           `json:"deposit_limit"`
	BorrowLimit      Limit           `json:"borrow_limit"`
	UtilizationLimit decimal.Decimal `json:"utilization_limit"`
}

// Pool state of one listed asset
type Pool struct {
	AssetID   string `json:"asset_id"`
	AssetType string `json:"asset_type"`
	// underlying vault holding the asset, never serialized
	Liquidity ILiquidityPool `json:"-"`
	PriceFeed string         `json:"price_feed"`

	// deposit units locked as CDP collateral
	CollateralUnits decimal.Decimal `json:"collateral_units"`
	// protocol share of accrued borrow interest not repaid yet
	PendingReserve decimal.Decimal `json:"pending_reserve"`
	// protocol reserve held in the underlying asset
	ReserveBalance decimal.Decimal `json:"reserve_balance"`
	// deposit units kept from liquidation fees
	ReserveUnits decimal.Decimal `json:"reserve_units"`
	// written off debt depositors absorbed, cleared once they all redeemed
	BadDebt decimal.Decimal `json:"bad_debt"`

	Price             decimal.Decimal `json:"price"`
	PriceUpdatedAt    time.Time       `json:"price_updated_at"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	InterestUpdatedAt time.Time       `json:"interest_updated_at"`
	Utilization       decimal.Decimal `json:"utilization"`

	TotalLoan        decimal.Decimal `json:"total_loan"`
	TotalLoanUnit    decimal.Decimal `json:"total_loan_unit"`
	TotalDeposit     decimal.Decimal `json:"total_deposit"`
	TotalDepositUnit decimal.Decimal `json:"total_deposit_unit"`

	Config    PoolConfig           `json:"config"`
	Threshold LiquidationThreshold `json:"threshold"`
	Strategy  InterestStrategy     `json:"strategy"`
	Status    OperatingStatus      `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone copy pool, the liquidity handle is shared
func (p *Pool) Clone() *Pool {
	c := *p
	c.Threshold = p.Threshold.Clone()
	c.Status = p.Status.Clone()
	return &c
}

// IPoolStore pool arena
type IPoolStore interface {
	Save(ctx context.Context, pool *Pool) error
	Find(ctx context.Context, assetID string) (*Pool, error)
	All(ctx context.Context) ([]*Pool, error)
}

// PoolStats aggregated pool statistics
type PoolStats struct {
	AssetID           string          `json:"asset_id"`
	Price             decimal.Decimal `json:"price"`
	TotalDeposit      decimal.Decimal `json:"total_deposit"`
	TotalLoan         decimal.Decimal `json:"total_loan"`
	TVL               decimal.Decimal `json:"tvl"`
	LoanValue         decimal.Decimal `json:"loan_value"`
	Available         decimal.Decimal `json:"available"`
	Utilization       decimal.Decimal `json:"utilization"`
	BorrowAPR         decimal.Decimal `json:"borrow_apr"`
	SupplyAPR         decimal.Decimal `json:"supply_apr"`
	BorrowAPY         decimal.Decimal `json:"borrow_apy"`
	SupplyAPY         decimal.Decimal `json:"supply_apy"`
	DepositUnitRatio  decimal.Decimal `json:"deposit_unit_ratio"`
	LoanUnitRatio     decimal.Decimal `json:"loan_unit_ratio"`
	DepositLimit      Limit           `json:"deposit_limit"`
	BorrowLimit       Limit           `json:"borrow_limit"`
	UtilizationLimit  decimal.Decimal `json:"utilization_limit"`
	ReserveBalance    decimal.Decimal `json:"reserve_balance"`
	ReserveUnits      decimal.Decimal `json:"reserve_units"`
	BadDebt           decimal.Decimal `json:"bad_debt"`
	CollateralUnits   decimal.Decimal `json:"collateral_units"`
	InterestUpdatedAt time.Time       `json:"interest_updated_at"`
}

// MarketStats market wide statistics
type MarketStats struct {
	Pools          []*PoolStats    `json:"pools"`
	TotalDeposit   decimal.Decimal `json:"total_deposit_value"`
	TotalLoan      decimal.Decimal `json:"total_loan_value"`
	CDPCount       int             `json:"cdp_count"`
	LiquidatingCDP int             `json:"liquidatable_cdp_count"`
}
