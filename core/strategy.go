package core

import "github.com/shopspring/decimal"

// InterestStrategy kinked borrow rate curve, all rates per year
type InterestStrategy struct {
	// rate at zero utilization
	BaseRate decimal.Decimal `json:"base_rate"`
	// added linearly until the optimal utilization is reached
	Slope1 decimal.Decimal `json:"slope1"`
	// added linearly between the optimal utilization and 1
	Slope2 decimal.Decimal `json:"slope2"`
}

// LiquidationThreshold discount ratios applied to collateral when it backs a loan.
// It is configured on the collateral pool; overrides are keyed by the loan asset
// and the loan asset type.
type LiquidationThreshold struct {
	IdenticalResource  decimal.NullDecimal        `json:"identical_resource"`
	IdenticalAssetType decimal.NullDecimal        `json:"identical_asset_type"`
	Resources          map[string]decimal.Decimal `json:"resources,omitempty"`
	AssetTypes         map[string]decimal.Decimal `json:"asset_types,omitempty"`
	Default            decimal.Decimal            `json:"default"`
}

// Clone deep copy the override maps
func (t LiquidationThreshold) Clone() LiquidationThreshold {
	c := t
	c.Resources = cloneDecimals(t.Resources)
	c.AssetTypes = cloneDecimals(t.AssetTypes)
	return c
}

// AssetPair collateral and loan identity used to resolve a threshold
type AssetPair struct {
	CollateralAsset string
	CollateralType  string
	LoanAsset       string
	LoanType        string
}

func cloneDecimals(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return nil
	}

	c := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
