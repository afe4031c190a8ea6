package health

import (
	"context"
	"fmt"
	"sort"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/service/pool"

	"github.com/shopspring/decimal"
)

// PoolGetter yields refreshed pools
type PoolGetter interface {
	Pool(ctx context.Context, assetID string) (*core.Pool, error)
}

// Asset one collateral or loan entry valued at the current price
type Asset struct {
	AssetID string          `json:"asset_id"`
	Units   decimal.Decimal `json:"units"`
	Amount  decimal.Decimal `json:"amount"`
	Value   decimal.Decimal `json:"value"`
}

// Loan loan entry with the collateral value discounted for it
type Loan struct {
	Asset
	DiscountedCollateralValue decimal.Decimal `json:"discounted_collateral_value"`
	SelfClosableValue         decimal.Decimal `json:"self_closable_value"`
}

// Health valuation snapshot of a cdp group
type Health struct {
	CDPs                      []uint64        `json:"cdps"`
	Collaterals               []*Asset        `json:"collaterals"`
	Loans                     []*Loan         `json:"loans"`
	CollateralValue           decimal.Decimal `json:"collateral_value"`
	LoanValue                 decimal.Decimal `json:"loan_value"`
	DiscountedCollateralValue decimal.Decimal `json:"discounted_collateral_value"`
	LTV                       decimal.Decimal `json:"ltv"`
	SelfClosableLoanValue     decimal.Decimal `json:"self_closable_loan_value"`
}

// Evaluate value the collaterals and loans of cdps taken together
func Evaluate(ctx context.Context, pools PoolGetter, cdps ...*core.CDP) (*Health, error) {
	collaterals := map[string]decimal.Decimal{}
	loans := map[string]decimal.Decimal{}

	h := &Health{}
	for _, cdp := range cdps {
		h.CDPs = append(h.CDPs, cdp.ID)
		for asset, units := range cdp.Collaterals {
			collaterals[asset] = collaterals[asset].Add(units)
		}
		for asset, units := range cdp.Loans {
			loans[asset] = loans[asset].Add(units)
		}
	}

	collateralPools := map[string]*core.Pool{}
	for _, asset := range sortedKeys(collaterals) {
		units := collaterals[asset]
		if !units.IsPositive() {
			continue
		}

		p, err := pools.Pool(ctx, asset)
		if err != nil {
			return nil, err
		}

		amount := pool.DepositAmount(p, units)
		a := &Asset{AssetID: asset, Units: units, Amount: amount, Value: pool.Value(p, amount)}
		h.Collaterals = append(h.Collaterals, a)
		h.CollateralValue = h.CollateralValue.Add(a.Value)
		collateralPools[asset] = p
	}

	weighted := decimal.Zero
	for _, asset := range sortedKeys(loans) {
		units := loans[asset]
		if !units.IsPositive() {
			continue
		}

		p, err := pools.Pool(ctx, asset)
		if err != nil {
			return nil, err
		}

		amount := pool.LoanAmount(p, units)
		l := &Loan{Asset: Asset{AssetID: asset, Units: units, Amount: amount, Value: pool.Value(p, amount)}}

		for _, c := range h.Collaterals {
			cp := collateralPools[c.AssetID]
			threshold := lending.ResolveThreshold(cp.Threshold, core.AssetPair{
				CollateralAsset: cp.AssetID,
				CollateralType:  cp.AssetType,
				LoanAsset:       p.AssetID,
				LoanType:        p.AssetType,
			})

			factor := lending.DiscountFactor(threshold, cp.Config.LiquidationBonusRate)
			l.DiscountedCollateralValue = l.DiscountedCollateralValue.Add(c.Value.Mul(factor))
		}

		l.DiscountedCollateralValue = l.DiscountedCollateralValue.Truncate(lending.MaxPrecision)
		l.SelfClosableValue = l.Value.Mul(p.Config.LoanCloseFactor).Truncate(lending.MaxPrecision)

		h.Loans = append(h.Loans, l)
		h.LoanValue = h.LoanValue.Add(l.Value)
		h.SelfClosableLoanValue = h.SelfClosableLoanValue.Add(l.SelfClosableValue)
		weighted = weighted.Add(l.DiscountedCollateralValue.Mul(l.Value))
	}

	switch {
	case h.LoanValue.LessThan(lending.Epsilon):
		h.LTV = decimal.Zero
	default:
		h.DiscountedCollateralValue = weighted.Div(h.LoanValue).Truncate(lending.MaxPrecision)
		if h.DiscountedCollateralValue.IsPositive() {
			h.LTV = h.LoanValue.Div(h.DiscountedCollateralValue).Truncate(lending.MaxPrecision)
		} else {
			h.LTV = lending.MaxLTV
		}
	}

	return h, nil
}

// CheckCDP fails when the group is insolvent
func (h *Health) CheckCDP() error {
	if h.LTV.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("cdp %v ltv %s: %w", h.CDPs, h.LTV, core.ErrInsufficientCollateral)
	}
	return nil
}

// CanLiquidate fails unless the group is insolvent
func (h *Health) CanLiquidate() error {
	if !h.LTV.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("cdp %v ltv %s: %w", h.CDPs, h.LTV, core.ErrNotLiquidatable)
	}
	return nil
}

// Liquidatable ltv above 1
func (h *Health) Liquidatable() bool {
	return h.CanLiquidate() == nil
}

// Loan loan entry of asset
func (h *Health) Loan(assetID string) (*Loan, bool) {
	for _, l := range h.Loans {
		if l.AssetID == assetID {
			return l, true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
