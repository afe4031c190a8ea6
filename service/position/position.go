package position

import (
	"context"
	"fmt"
	"time"

	"cdplend/core"

	"github.com/shopspring/decimal"
)

type field uint8

const (
	fieldType field = 1 << iota
	fieldCollateral
	fieldLoan
	fieldLiquidated
	fieldMeta
)

// Patcher writes changed cdp fields
type Patcher interface {
	Patch(ctx context.Context, id uint64, patch *core.CDPPatch) error
}

// Position in-memory copy of a cdp for one operation, remembers which field
// groups changed so Save only writes those
type Position struct {
	cdp   *core.CDP
	dirty field
}

// Wrap copy cdp into a position
func Wrap(cdp *core.CDP) *Position {
	c := cdp.Clone()
	if c.Collaterals == nil {
		c.Collaterals = map[string]decimal.Decimal{}
	}
	if c.Loans == nil {
		c.Loans = map[string]decimal.Decimal{}
	}
	if c.Liquidated == nil {
		c.Liquidated = map[string]decimal.Decimal{}
	}

	return &Position{cdp: c}
}

// CDP current state, read only
func (p *Position) CDP() *core.CDP {
	return p.cdp
}

// ID cdp id
func (p *Position) ID() uint64 {
	return p.cdp.ID
}

// Owner cdp owner
func (p *Position) Owner() string {
	return p.cdp.Owner
}

// Type cdp type
func (p *Position) Type() core.CDPType {
	return p.cdp.Type
}

// Dirty any field changed
func (p *Position) Dirty() bool {
	return p.dirty != 0
}

// Collateral deposit units of asset
func (p *Position) Collateral(assetID string) decimal.Decimal {
	return p.cdp.Collaterals[assetID]
}

// Loan loan units of asset
func (p *Position) Loan(assetID string) decimal.Decimal {
	return p.cdp.Loans[assetID]
}

// AddCollateral credit deposit units
func (p *Position) AddCollateral(assetID string, units decimal.Decimal) {
	if !units.IsPositive() {
		return
	}

	p.cdp.Collaterals[assetID] = p.cdp.Collaterals[assetID].Add(units)
	p.dirty |= fieldCollateral
}

// RemoveCollateral debit deposit units, the entry is dropped once empty
func (p *Position) RemoveCollateral(assetID string, units decimal.Decimal) error {
	held := p.cdp.Collaterals[assetID]
	if units.GreaterThan(held) {
		return fmt.Errorf("cdp %d holds %s units of %s: %w", p.cdp.ID, held, assetID, core.ErrInsufficientPosition)
	}

	if left := held.Sub(units); left.IsPositive() {
		p.cdp.Collaterals[assetID] = left
	} else {
		delete(p.cdp.Collaterals, assetID)
	}

	p.dirty |= fieldCollateral
	return nil
}

// AddLoan credit loan units
func (p *Position) AddLoan(assetID string, units decimal.Decimal) {
	if !units.IsPositive() {
		return
	}

	p.cdp.Loans[assetID] = p.cdp.Loans[assetID].Add(units)
	p.dirty |= fieldLoan
}

// RemoveLoan debit loan units, the entry is dropped once empty
func (p *Position) RemoveLoan(assetID string, units decimal.Decimal) error {
	owed := p.cdp.Loans[assetID]
	if units.GreaterThan(owed) {
		return fmt.Errorf("cdp %d owes %s units of %s: %w", p.cdp.ID, owed, assetID, core.ErrInsufficientPosition)
	}

	if left := owed.Sub(units); left.IsPositive() {
		p.cdp.Loans[assetID] = left
	} else {
		delete(p.cdp.Loans, assetID)
	}

	p.dirty |= fieldLoan
	return nil
}

// MoveLoansToLiquidated write off every remaining loan into the liquidated bucket
func (p *Position) MoveLoansToLiquidated() {
	if len(p.cdp.Loans) == 0 {
		return
	}

	for asset, units := range p.cdp.Loans {
		p.cdp.Liquidated[asset] = p.cdp.Liquidated[asset].Add(units)
	}

	p.cdp.Loans = map[string]decimal.Decimal{}
	p.dirty |= fieldLoan | fieldLiquidated
}

// SetMeta replace metadata
func (p *Position) SetMeta(meta core.CDPMeta) {
	p.cdp.Meta = meta
	p.dirty |= fieldMeta
}

// SetMaxLiquidableValue cap the loan value one liquidation may repay
func (p *Position) SetMaxLiquidableValue(v decimal.NullDecimal) {
	p.cdp.MaxLiquidableValue = v
	p.dirty |= fieldMeta
}

// AddDelegatee link a delegatee, turning a standard cdp into a delegator
func (p *Position) AddDelegatee(id uint64) {
	info := p.cdp.Delegator
	if info == nil {
		info = &core.DelegatorInfo{}
	}

	info.Delegatees = append(info.Delegatees, id)
	info.Count = len(info.Delegatees)
	p.cdp.Delegator = info
	p.cdp.Type = core.CDPTypeDelegator
	p.dirty |= fieldType
}

// RemoveDelegatee unlink a delegatee, a delegator left without delegatees becomes standard
func (p *Position) RemoveDelegatee(id uint64) bool {
	info := p.cdp.Delegator
	if info == nil {
		return false
	}

	idx := -1
	for i, d := range info.Delegatees {
		if d == id {
			idx = i
			break
		}
	}

	if idx < 0 {
		return false
	}

	info.Delegatees = append(info.Delegatees[:idx], info.Delegatees[idx+1:]...)
	info.Count = len(info.Delegatees)
	if info.Count == 0 {
		p.cdp.Delegator = nil
		p.cdp.Type = core.CDPTypeStandard
	}

	p.dirty |= fieldType
	return true
}

// SetDelegatee make the cdp borrow against a delegator
func (p *Position) SetDelegatee(info *core.DelegateeInfo) {
	p.cdp.Delegatee = info
	p.cdp.Type = core.CDPTypeDelegatee
	p.dirty |= fieldType
}

// ClearDelegatee turn a delegatee back into a standard cdp
func (p *Position) ClearDelegatee() {
	p.cdp.Delegatee = nil
	p.cdp.Type = core.CDPTypeStandard
	p.dirty |= fieldType
}

// Patch changed fields stamped with now, nil when nothing changed
func (p *Position) Patch(now time.Time) *core.CDPPatch {
	if p.dirty == 0 {
		return nil
	}

	patch := &core.CDPPatch{UpdatedAt: now}
	if p.dirty&fieldType != 0 {
		typ := p.cdp.Type
		snapshot := p.cdp.Clone()
		delegator, delegatee := snapshot.Delegator, snapshot.Delegatee
		patch.Type = &typ
		patch.Delegator = &delegator
		patch.Delegatee = &delegatee
	}
	if p.dirty&fieldCollateral != 0 {
		patch.Collaterals = copyUnits(p.cdp.Collaterals)
	}
	if p.dirty&fieldLoan != 0 {
		patch.Loans = copyUnits(p.cdp.Loans)
	}
	if p.dirty&fieldLiquidated != 0 {
		patch.Liquidated = copyUnits(p.cdp.Liquidated)
	}
	if p.dirty&fieldMeta != 0 {
		meta, limit := p.cdp.Meta, p.cdp.MaxLiquidableValue
		patch.Meta = &meta
		patch.MaxLiquidableValue = &limit
	}

	return patch
}

// Save commit the changed fields, the position count is checked whenever
// collaterals or loans changed. maxPosition 0 means unlimited.
func (p *Position) Save(ctx context.Context, w Patcher, now time.Time, maxPosition int) error {
	if p.dirty == 0 {
		return nil
	}

	if p.dirty&(fieldCollateral|fieldLoan) != 0 && maxPosition > 0 && p.cdp.PositionCount() > maxPosition {
		return fmt.Errorf("cdp %d has %d positions, max %d: %w", p.cdp.ID, p.cdp.PositionCount(), maxPosition, core.ErrPositionLimitExceeded)
	}

	if err := w.Patch(ctx, p.cdp.ID, p.Patch(now)); err != nil {
		return err
	}

	p.cdp.UpdatedAt = now
	p.dirty = 0
	return nil
}

func copyUnits(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	c := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
