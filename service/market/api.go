package market

import (
	"context"

	"cdplend/core"
	"cdplend/service/health"

	"github.com/shopspring/decimal"
)

// CreateCDP see Session.CreateCDP
func (m *Market) CreateCDP(ctx context.Context, actor string, meta core.CDPMeta, deposits []core.Bucket) (id uint64, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		id, err = s.CreateCDP(ctx, actor, meta, deposits)
		return err
	})
	return
}

// UpdateMeta see Session.UpdateMeta
func (m *Market) UpdateMeta(ctx context.Context, actor string, id uint64, meta core.CDPMeta) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdateMeta(ctx, actor, id, meta)
	})
}

// CreateDelegatee see Session.CreateDelegatee
func (m *Market) CreateDelegatee(ctx context.Context, actor string, delegatorID uint64, meta core.CDPMeta, maxLoanValue, maxLoanValueRatio decimal.NullDecimal) (id uint64, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		id, err = s.CreateDelegatee(ctx, actor, delegatorID, meta, maxLoanValue, maxLoanValueRatio)
		return err
	})
	return
}

// LinkDelegatee see Session.LinkDelegatee
func (m *Market) LinkDelegatee(ctx context.Context, actor string, delegatorID, delegateeID uint64, maxLoanValue, maxLoanValueRatio decimal.NullDecimal) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.LinkDelegatee(ctx, actor, delegatorID, delegateeID, maxLoanValue, maxLoanValueRatio)
	})
}

// UnlinkDelegatee see Session.UnlinkDelegatee
func (m *Market) UnlinkDelegatee(ctx context.Context, actor string, delegatorID, delegateeID uint64) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UnlinkDelegatee(ctx, actor, delegatorID, delegateeID)
	})
}

// Contribute see Session.Contribute
func (m *Market) Contribute(ctx context.Context, actor, assetID string, amount decimal.Decimal) (out core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.Contribute(ctx, actor, assetID, amount)
		return err
	})
	return
}

// Redeem see Session.Redeem
func (m *Market) Redeem(ctx context.Context, actor, assetID string, units decimal.Decimal) (out core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.Redeem(ctx, actor, assetID, units)
		return err
	})
	return
}

// AddCollateral see Session.AddCollateral
func (m *Market) AddCollateral(ctx context.Context, actor string, id uint64, deposits []core.Bucket) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.AddCollateral(ctx, actor, id, deposits)
	})
}

// RemoveCollateral see Session.RemoveCollateral
func (m *Market) RemoveCollateral(ctx context.Context, actor string, id uint64, assetID string, units decimal.Decimal) (out core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.RemoveCollateral(ctx, actor, id, assetID, units)
		return err
	})
	return
}

// Borrow see Session.Borrow
func (m *Market) Borrow(ctx context.Context, actor string, id uint64, assetID string, amount decimal.Decimal) (out core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.Borrow(ctx, actor, id, assetID, amount)
		return err
	})
	return
}

// Repay see Session.Repay
func (m *Market) Repay(ctx context.Context, actor string, id uint64, payments []core.Bucket) (leftovers []core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		leftovers, err = s.Repay(ctx, actor, id, payments)
		return err
	})
	return
}

// FlashloanFunc uses the borrowed funds and returns the repayment
type FlashloanFunc func(ctx context.Context, s *Session, funds []core.Bucket) ([]core.Bucket, error)

// Flashloan borrow loans, hand them to use and repay the receipt with what
// use returns, all in one transaction
func (m *Market) Flashloan(ctx context.Context, actor string, loans []core.Bucket, use FlashloanFunc) (leftovers []core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		receipt, funds, err := s.TakeFlashloan(ctx, actor, loans)
		if err != nil {
			return err
		}

		payments, err := use(ctx, s, funds)
		if err != nil {
			return err
		}

		leftovers, err = s.RepayFlashloan(ctx, actor, receipt, payments)
		return err
	})
	return
}

// FastLiquidation see Session.FastLiquidation
func (m *Market) FastLiquidation(ctx context.Context, actor string, id uint64, payments []core.Bucket, collaterals []string) (seized, leftovers []core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		seized, leftovers, err = s.FastLiquidation(ctx, actor, id, payments, collaterals)
		return err
	})
	return
}

// Refinance see Session.Refinance
func (m *Market) Refinance(ctx context.Context, actor string, id uint64, refinancer core.Refinancer) (leftovers []core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		leftovers, err = s.Refinance(ctx, actor, id, refinancer)
		return err
	})
	return
}

// ListPool see Session.ListPool
func (m *Market) ListPool(ctx context.Context, actor string, listing core.PoolListing, liquidity core.ILiquidityPool) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.ListPool(ctx, actor, listing, liquidity)
	})
}

// UpdatePoolConfig see Session.UpdatePoolConfig
func (m *Market) UpdatePoolConfig(ctx context.Context, actor, assetID string, cfg core.PoolConfig) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdatePoolConfig(ctx, actor, assetID, cfg)
	})
}

// UpdateThreshold see Session.UpdateThreshold
func (m *Market) UpdateThreshold(ctx context.Context, actor, assetID string, threshold core.LiquidationThreshold) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdateThreshold(ctx, actor, assetID, threshold)
	})
}

// UpdateStrategy see Session.UpdateStrategy
func (m *Market) UpdateStrategy(ctx context.Context, actor, assetID string, strategy core.InterestStrategy) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdateStrategy(ctx, actor, assetID, strategy)
	})
}

// UpdatePriceFeed see Session.UpdatePriceFeed
func (m *Market) UpdatePriceFeed(ctx context.Context, actor, assetID, feed string) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdatePriceFeed(ctx, actor, assetID, feed)
	})
}

// UpdateMarketConfig see Session.UpdateMarketConfig
func (m *Market) UpdateMarketConfig(ctx context.Context, actor string, cfg core.MarketConfig) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.UpdateMarketConfig(ctx, actor, cfg)
	})
}

// SetMarketStatus see Session.SetMarketStatus
func (m *Market) SetMarketStatus(ctx context.Context, actor string, service core.Service, enabled bool) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.SetMarketStatus(ctx, actor, service, enabled)
	})
}

// SetPoolStatus see Session.SetPoolStatus
func (m *Market) SetPoolStatus(ctx context.Context, actor, assetID string, service core.Service, enabled bool) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.SetPoolStatus(ctx, actor, assetID, service, enabled)
	})
}

// SetCDPMaxLiquidableValue see Session.SetCDPMaxLiquidableValue
func (m *Market) SetCDPMaxLiquidableValue(ctx context.Context, actor string, id uint64, value decimal.NullDecimal) error {
	return m.Transact(ctx, func(s *Session) error {
		return s.SetCDPMaxLiquidableValue(ctx, actor, id, value)
	})
}

// SweepReserve see Session.SweepReserve
func (m *Market) SweepReserve(ctx context.Context, actor string) (out []core.Bucket, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.SweepReserve(ctx, actor)
		return err
	})
	return
}

// Stats see Session.Stats
func (m *Market) Stats(ctx context.Context) (stats *core.MarketStats, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		stats, err = s.Stats(ctx)
		return err
	})
	return
}

// ListLiquidatable see Session.ListLiquidatable
func (m *Market) ListLiquidatable(ctx context.Context) (out []*LiquidatableCDP, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		out, err = s.ListLiquidatable(ctx)
		return err
	})
	return
}

// CDP cdp id
func (m *Market) CDP(ctx context.Context, id uint64) (c *core.CDP, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		c, err = s.CDP(ctx, id)
		return err
	})
	return
}

// Health health of the group cdp id belongs to
func (m *Market) Health(ctx context.Context, id uint64) (h *health.Health, err error) {
	err = m.Transact(ctx, func(s *Session) error {
		h, err = s.Health(ctx, id)
		return err
	})
	return
}
