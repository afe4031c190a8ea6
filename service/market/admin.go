package market

import (
	"context"
	"errors"
	"fmt"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/service/pool"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

type poolUpdate struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

type statusUpdate struct {
	Service core.Service `json:"service"`
	Enabled bool         `json:"enabled"`
	ByAdmin bool         `json:"by_admin"`
}

func validateAssetID(id string) error {
	if !govalidator.StringLength(id, "1", "64") || !govalidator.IsPrintableASCII(id) {
		return fmt.Errorf("asset id %q: %w", id, core.ErrInvalidArgument)
	}
	return nil
}

// ListPool list a new asset backed by liquidity, which must be empty
func (s *Session) ListPool(ctx context.Context, actor string, listing core.PoolListing, liquidity core.ILiquidityPool) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	if err := validateAssetID(listing.AssetID); err != nil {
		return err
	}

	if listing.PriceFeed != "" {
		if err := validateAssetID(listing.PriceFeed); err != nil {
			return err
		}
	}

	if liquidity == nil {
		return fmt.Errorf("pool %s without liquidity: %w", listing.AssetID, core.ErrInvalidArgument)
	}

	if _, err := s.Pool(ctx, listing.AssetID); err == nil {
		return fmt.Errorf("pool %s: %w", listing.AssetID, core.ErrPoolExists)
	} else if !errors.Is(err, core.ErrPoolNotFound) {
		return err
	}

	if err := pool.ValidateConfig(listing.Config); err != nil {
		return err
	}

	if err := lending.ValidateThreshold(listing.Threshold); err != nil {
		return err
	}

	if err := lending.ValidateStrategy(listing.Strategy); err != nil {
		return err
	}

	available, external, err := liquidity.PooledAmount(ctx)
	if err != nil {
		return err
	}

	if !available.IsZero() || !external.IsZero() {
		return fmt.Errorf("liquidity of %s is not empty: %w", listing.AssetID, core.ErrInvalidArgument)
	}

	p := &core.Pool{
		AssetID:   listing.AssetID,
		AssetType: listing.AssetType,
		Liquidity: liquidity,
		PriceFeed: listing.PriceFeed,
		Config:    listing.Config,
		Threshold: listing.Threshold.Clone(),
		Strategy:  listing.Strategy,
		Status:    core.OperatingStatus{},
		CreatedAt: s.now,
	}

	s.addPool(p)
	if err := s.m.engine.Refresh(ctx, p, true, true); err != nil {
		return err
	}

	s.emit(core.EventListPool, 0, actor, p.AssetID, listing)
	return nil
}

// adminPool pool copy for a parameter change. The price feed is not read so
// a dead feed never blocks its own repair, interest is settled at the old rate.
func (s *Session) adminPool(ctx context.Context, actor, assetID string) (*core.Pool, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	p, err := s.loadPool(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if err := s.m.engine.AccrueInterest(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// UpdatePoolConfig replace the risk and fee parameters of a pool
func (s *Session) UpdatePoolConfig(ctx context.Context, actor, assetID string, cfg core.PoolConfig) error {
	p, err := s.adminPool(ctx, actor, assetID)
	if err != nil {
		return err
	}

	if err := pool.ValidateConfig(cfg); err != nil {
		return err
	}

	p.Config = cfg
	if err := s.m.engine.Sync(p); err != nil {
		return err
	}

	s.emit(core.EventUpdatePool, 0, actor, assetID, poolUpdate{Field: "config", Value: cfg})
	return nil
}

// UpdateThreshold replace the liquidation threshold of a collateral pool
func (s *Session) UpdateThreshold(ctx context.Context, actor, assetID string, threshold core.LiquidationThreshold) error {
	p, err := s.adminPool(ctx, actor, assetID)
	if err != nil {
		return err
	}

	if err := lending.ValidateThreshold(threshold); err != nil {
		return err
	}

	p.Threshold = threshold.Clone()
	s.emit(core.EventUpdatePool, 0, actor, assetID, poolUpdate{Field: "threshold", Value: threshold})
	return nil
}

// UpdateStrategy replace the interest strategy, the new rate applies from now on
func (s *Session) UpdateStrategy(ctx context.Context, actor, assetID string, strategy core.InterestStrategy) error {
	p, err := s.adminPool(ctx, actor, assetID)
	if err != nil {
		return err
	}

	if err := lending.ValidateStrategy(strategy); err != nil {
		return err
	}

	p.Strategy = strategy
	if err := s.m.engine.Sync(p); err != nil {
		return err
	}

	s.emit(core.EventUpdatePool, 0, actor, assetID, poolUpdate{Field: "strategy", Value: strategy})
	return nil
}

// UpdatePriceFeed point a pool at another oracle feed and read it right away
func (s *Session) UpdatePriceFeed(ctx context.Context, actor, assetID, feed string) error {
	p, err := s.adminPool(ctx, actor, assetID)
	if err != nil {
		return err
	}

	if feed != "" {
		if err := validateAssetID(feed); err != nil {
			return err
		}
	}

	p.PriceFeed = feed
	if err := s.m.engine.Refresh(ctx, p, true, false); err != nil {
		return err
	}
	delete(s.stale, assetID)

	s.emit(core.EventUpdatePool, 0, actor, assetID, poolUpdate{Field: "price_feed", Value: feed})
	return nil
}

func validateMarketConfig(cfg core.MarketConfig) error {
	if cfg.MaxCDPPosition < 0 || cfg.MaxDelegateeCount < 0 {
		return fmt.Errorf("market limits must not be negative: %w", core.ErrInvalidArgument)
	}

	if cfg.MaxLiquidableValue.Valid && !cfg.MaxLiquidableValue.Decimal.IsPositive() {
		return fmt.Errorf("max liquidable value %s: %w", cfg.MaxLiquidableValue.Decimal, core.ErrInvalidAmount)
	}

	if cfg.RefinanceLTV.IsNegative() {
		return fmt.Errorf("refinance ltv %s: %w", cfg.RefinanceLTV, core.ErrInvalidRate)
	}

	return nil
}

// UpdateMarketConfig replace the market wide parameters
func (s *Session) UpdateMarketConfig(ctx context.Context, actor string, cfg core.MarketConfig) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	if err := validateMarketConfig(cfg); err != nil {
		return err
	}

	s.config = cfg
	s.configChanged = true
	s.emit(core.EventUpdateMarket, 0, actor, "", cfg)
	return nil
}

func (s *Session) requireModerator(actor string) (bool, error) {
	if !s.m.roles.IsModerator(actor) {
		return false, fmt.Errorf("%s is not moderator: %w", actor, core.ErrUnauthorized)
	}
	return s.m.roles.IsAdmin(actor), nil
}

// SetMarketStatus switch a service market wide
func (s *Session) SetMarketStatus(ctx context.Context, actor string, service core.Service, enabled bool) error {
	byAdmin, err := s.requireModerator(actor)
	if err != nil {
		return err
	}

	if err := s.status.Set(service, enabled, byAdmin); err != nil {
		return err
	}

	s.emit(core.EventUpdateMarket, 0, actor, "", statusUpdate{Service: service, Enabled: enabled, ByAdmin: byAdmin})
	return nil
}

// SetPoolStatus switch a service for one pool
func (s *Session) SetPoolStatus(ctx context.Context, actor, assetID string, service core.Service, enabled bool) error {
	byAdmin, err := s.requireModerator(actor)
	if err != nil {
		return err
	}

	p, err := s.loadPool(ctx, assetID)
	if err != nil {
		return err
	}

	if p.Status == nil {
		p.Status = core.OperatingStatus{}
	}

	if err := p.Status.Set(service, enabled, byAdmin); err != nil {
		return err
	}

	s.emit(core.EventUpdatePool, 0, actor, assetID, poolUpdate{
		Field: "status",
		Value: statusUpdate{Service: service, Enabled: enabled, ByAdmin: byAdmin},
	})
	return nil
}

// SetCDPMaxLiquidableValue cap the loan value one liquidation of cdp id may repay
func (s *Session) SetCDPMaxLiquidableValue(ctx context.Context, actor string, id uint64, value decimal.NullDecimal) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	if value.Valid && !value.Decimal.IsPositive() {
		return fmt.Errorf("max liquidable value %s: %w", value.Decimal, core.ErrInvalidAmount)
	}

	pos, err := s.Position(ctx, id)
	if err != nil {
		return err
	}

	pos.SetMaxLiquidableValue(value)
	if err := s.save(ctx, pos); err != nil {
		return err
	}

	s.emit(core.EventUpdateMeta, id, actor, "", map[string]interface{}{"max_liquidable_value": value})
	return nil
}

// SweepReserve hand every pool's collected reserve to a reserve collector
func (s *Session) SweepReserve(ctx context.Context, actor string) ([]core.Bucket, error) {
	if !s.m.roles.IsReserveCollector(actor) {
		return nil, fmt.Errorf("%s is not reserve collector: %w", actor, core.ErrUnauthorized)
	}

	pools, err := s.AllPools(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Bucket
	for _, p := range pools {
		b := s.m.engine.SweepReserve(p)
		if b.IsEmpty() {
			continue
		}

		out = append(out, b)
		s.emit(core.EventSweepReserve, 0, actor, p.AssetID, b)
	}

	return out, nil
}
