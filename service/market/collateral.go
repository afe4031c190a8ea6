package market

import (
	"context"
	"fmt"

	"cdplend/core"
	"cdplend/service/position"

	"github.com/shopspring/decimal"
)

type collateralData struct {
	Buckets []core.Bucket `json:"buckets"`
}

// Contribute deposit amount into the pool of asset, returns the deposit units
func (s *Session) Contribute(ctx context.Context, actor, assetID string, amount decimal.Decimal) (core.Bucket, error) {
	p, err := s.Pool(ctx, assetID)
	if err != nil {
		return core.Bucket{}, err
	}

	if err := s.gate(core.ServiceContribute, p); err != nil {
		return core.Bucket{}, err
	}

	units, err := s.m.engine.Contribute(ctx, p, amount)
	if err != nil {
		return core.Bucket{}, err
	}

	b := core.Bucket{AssetID: assetID, Amount: amount, Unit: units}
	s.emit(core.EventContribute, 0, actor, assetID, b)
	return core.Bucket{AssetID: assetID, Unit: units}, nil
}

// Redeem burn deposit units for the underlying asset
func (s *Session) Redeem(ctx context.Context, actor, assetID string, units decimal.Decimal) (core.Bucket, error) {
	p, err := s.Pool(ctx, assetID)
	if err != nil {
		return core.Bucket{}, err
	}

	if err := s.gate(core.ServiceRedeem, p); err != nil {
		return core.Bucket{}, err
	}

	amount, err := s.m.engine.Redeem(ctx, p, units)
	if err != nil {
		return core.Bucket{}, err
	}

	s.emit(core.EventRedeem, 0, actor, assetID, core.Bucket{AssetID: assetID, Amount: amount, Unit: units})
	return core.Bucket{AssetID: assetID, Amount: amount}, nil
}

func (s *Session) addCollateral(ctx context.Context, actor string, pos *position.Position, deposits []core.Bucket) error {
	var locked []core.Bucket
	for _, b := range core.MergeBuckets(deposits) {
		p, err := s.Pool(ctx, b.AssetID)
		if err != nil {
			return err
		}

		if err := s.gate(core.ServiceAddCollateral, p); err != nil {
			return err
		}

		units := b.Unit
		if b.Amount.IsPositive() {
			minted, err := s.Contribute(ctx, actor, b.AssetID, b.Amount)
			if err != nil {
				return err
			}
			units = units.Add(minted.Unit)
		}

		if err := s.m.engine.LockCollateral(p, units); err != nil {
			return err
		}

		pos.AddCollateral(b.AssetID, units)
		locked = append(locked, core.Bucket{AssetID: b.AssetID, Unit: units})
	}

	if len(locked) == 0 {
		return fmt.Errorf("no collateral: %w", core.ErrInvalidAmount)
	}

	s.emit(core.EventAddCollateral, pos.ID(), actor, "", collateralData{Buckets: locked})
	return nil
}

// AddCollateral lock deposits into cdp id, see CreateCDP for the bucket forms
func (s *Session) AddCollateral(ctx context.Context, actor string, id uint64, deposits []core.Bucket) error {
	pos, err := s.Position(ctx, id)
	if err != nil {
		return err
	}

	if err := requireOwner(actor, pos); err != nil {
		return err
	}

	if err := s.addCollateral(ctx, actor, pos, deposits); err != nil {
		return err
	}

	if err := s.save(ctx, pos); err != nil {
		return err
	}

	return s.checkSolvent(ctx, id)
}

// RemoveCollateral unlock deposit units from cdp id
func (s *Session) RemoveCollateral(ctx context.Context, actor string, id uint64, assetID string, units decimal.Decimal) (core.Bucket, error) {
	if !units.IsPositive() {
		return core.Bucket{}, fmt.Errorf("units %s: %w", units, core.ErrInvalidAmount)
	}

	pos, err := s.Position(ctx, id)
	if err != nil {
		return core.Bucket{}, err
	}

	if err := requireOwner(actor, pos); err != nil {
		return core.Bucket{}, err
	}

	p, err := s.Pool(ctx, assetID)
	if err != nil {
		return core.Bucket{}, err
	}

	if err := s.gate(core.ServiceRemoveCollateral, p); err != nil {
		return core.Bucket{}, err
	}

	if err := pos.RemoveCollateral(assetID, units); err != nil {
		return core.Bucket{}, err
	}

	if err := s.m.engine.UnlockCollateral(p, units); err != nil {
		return core.Bucket{}, err
	}

	if err := s.save(ctx, pos); err != nil {
		return core.Bucket{}, err
	}

	if err := s.checkSolvent(ctx, id); err != nil {
		return core.Bucket{}, err
	}

	b := core.Bucket{AssetID: assetID, Unit: units}
	s.emit(core.EventRemoveCollateral, id, actor, assetID, collateralData{Buckets: []core.Bucket{b}})
	return b, nil
}
