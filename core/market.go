package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketConfig market wide parameters
type MarketConfig struct {
	// max collateral plus loan entries of one cdp, 0 means unlimited
	MaxCDPPosition int `json:"max_cdp_position"`
	// cap on the loan value repaid by one liquidation
	MaxLiquidableValue decimal.NullDecimal `json:"max_liquidable_value"`
	DelegationEnabled  bool                `json:"delegation_enabled"`
	// max delegatees per delegator, 0 means unlimited
	MaxDelegateeCount int `json:"max_delegatee_count"`
	// ltv from which a third party may refinance a cdp
	RefinanceLTV decimal.Decimal `json:"refinance_ltv"`
}

// RefinanceRequest position handed over to a refinancer
type RefinanceRequest struct {
	CDPID uint64 `json:"cdp_id"`
	// collateral removed from the cdp, in deposit units
	Collaterals []Bucket `json:"collaterals"`
	// debt to settle, in underlying amounts
	Loans []Bucket `json:"loans"`
}

// Refinancer another lending venue taking over a cdp's debt, returns the repayment buckets
type Refinancer interface {
	Refinance(ctx context.Context, req *RefinanceRequest) ([]Bucket, error)
}
