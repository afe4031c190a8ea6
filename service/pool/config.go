package pool

import (
	"fmt"

	"cdplend/core"
	"cdplend/pkg/lending"

	"github.com/shopspring/decimal"
)

// ValidateConfig check every pool parameter is in range
func ValidateConfig(cfg core.PoolConfig) error {
	if cfg.InterestUpdatePeriod < 0 || cfg.PriceUpdatePeriod < 0 || cfg.PriceExpirationPeriod < 0 {
		return fmt.Errorf("update periods must not be negative: %w", core.ErrInvalidArgument)
	}

	if !cfg.OptimalUsage.IsPositive() || !lending.InUnitRange(cfg.OptimalUsage) {
		return fmt.Errorf("optimal_usage %s out of (0,1]: %w", cfg.OptimalUsage, core.ErrInvalidRate)
	}

	if !cfg.LoanCloseFactor.IsPositive() || !lending.InUnitRange(cfg.LoanCloseFactor) {
		return fmt.Errorf("loan_close_factor %s out of (0,1]: %w", cfg.LoanCloseFactor, core.ErrInvalidRate)
	}

	if cfg.LiquidationBonusRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("liquidation_bonus_rate %s must be below 1: %w", cfg.LiquidationBonusRate, core.ErrInvalidRate)
	}

	for name, rate := range map[string]decimal.Decimal{
		"protocol_interest_fee_rate":    cfg.ProtocolInterestFeeRate,
		"flashloan_fee_rate":            cfg.FlashloanFeeRate,
		"protocol_flashloan_fee_rate":   cfg.ProtocolFlashloanFeeRate,
		"liquidation_bonus_rate":        cfg.LiquidationBonusRate,
		"protocol_liquidation_fee_rate": cfg.ProtocolLiquidationFeeRate,
		"utilization_limit":             cfg.UtilizationLimit,
	} {
		if !lending.InUnitRange(rate) {
			return fmt.Errorf("%s %s out of [0,1]: %w", name, rate, core.ErrInvalidRate)
		}
	}

	if err := validateLimit("deposit_limit", cfg.DepositLimit, false); err != nil {
		return err
	}

	return validateLimit("borrow_limit", cfg.BorrowLimit, true)
}

func validateLimit(name string, l core.Limit, allowRatio bool) error {
	switch l.Type {
	case "", core.LimitNone:
		return nil
	case core.LimitAmount:
		if l.Value.IsNegative() {
			return fmt.Errorf("%s %s: %w", name, l.Value, core.ErrInvalidAmount)
		}
		return nil
	case core.LimitSupplyRatio:
		if !allowRatio {
			return fmt.Errorf("%s can not be a supply ratio: %w", name, core.ErrInvalidArgument)
		}
		if !lending.InUnitRange(l.Value) {
			return fmt.Errorf("%s %s out of [0,1]: %w", name, l.Value, core.ErrInvalidRate)
		}
		return nil
	default:
		return fmt.Errorf("%s type %q: %w", name, l.Type, core.ErrInvalidArgument)
	}
}
