package lending

import (
	"cdplend/core"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateThreshold every configured ratio must lie in [0, 1]
func ValidateThreshold(t core.LiquidationThreshold) error {
	check := func(name string, d decimal.Decimal) error {
		if !InUnitRange(d) {
			return fmt.Errorf("liquidation threshold %s = %s out of [0,1]: %w", name, d, core.ErrInvalidRate)
		}
		return nil
	}

	if err := check("default", t.Default); err != nil {
		return err
	}

	if t.IdenticalResource.Valid {
		if err := check("identical_resource", t.IdenticalResource.Decimal); err != nil {
			return err
		}
	}

	if t.IdenticalAssetType.Valid {
		if err := check("identical_asset_type", t.IdenticalAssetType.Decimal); err != nil {
			return err
		}
	}

	for asset, ratio := range t.Resources {
		if err := check("resource "+asset, ratio); err != nil {
			return err
		}
	}

	for typ, ratio := range t.AssetTypes {
		if err := check("asset type "+typ, ratio); err != nil {
			return err
		}
	}

	return nil
}

// ResolveThreshold pick the ratio for a collateral/loan pair, first match wins:
// identical resource (0 when unset), identical asset type, loan resource
// override, loan asset type override, default.
func ResolveThreshold(t core.LiquidationThreshold, pair core.AssetPair) decimal.Decimal {
	if pair.CollateralAsset == pair.LoanAsset {
		if t.IdenticalResource.Valid {
			return t.IdenticalResource.Decimal
		}

		return decimal.Zero
	}

	if t.IdenticalAssetType.Valid && pair.CollateralType != "" && pair.CollateralType == pair.LoanType {
		return t.IdenticalAssetType.Decimal
	}

	if ratio, ok := t.Resources[pair.LoanAsset]; ok {
		return ratio
	}

	if ratio, ok := t.AssetTypes[pair.LoanType]; ok {
		return ratio
	}

	return t.Default
}

// DiscountFactor weight of collateral value counted as safety backing:
// min(threshold, 1 - liquidation_bonus_rate)
func DiscountFactor(threshold, liquidationBonusRate decimal.Decimal) decimal.Decimal {
	return decimal.Min(threshold, one.Sub(liquidationBonusRate))
}
