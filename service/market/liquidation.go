package market

import (
	"context"
	"fmt"
	"sort"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/service/health"
	"cdplend/service/pool"
	"cdplend/service/position"

	"github.com/shopspring/decimal"
)

type seizable struct {
	holder  int
	pos     *position.Position
	assetID string
	units   decimal.Decimal
	value   decimal.Decimal
	rank    int
}

type liquidationData struct {
	Receipt    *core.LiquidationReceipt   `json:"receipt"`
	Seized     []core.Bucket              `json:"seized,omitempty"`
	Repaid     decimal.Decimal            `json:"repaid"`
	Leftovers  []core.Bucket              `json:"leftovers,omitempty"`
	Liquidated map[string]decimal.Decimal `json:"liquidated,omitempty"`
	WrittenOff []core.Bucket              `json:"written_off,omitempty"`
	Liquidator string                     `json:"liquidator"`
}

// liquidationCap largest loan value one liquidation of c may repay
func (s *Session) liquidationCap(ctx context.Context, c *core.CDP, requested decimal.Decimal) (decimal.Decimal, error) {
	own, err := health.Evaluate(ctx, s, &core.CDP{ID: c.ID, Loans: c.Loans})
	if err != nil {
		return decimal.Zero, err
	}

	limit := decimal.Min(own.SelfClosableLoanValue, requested)
	if s.config.MaxLiquidableValue.Valid {
		limit = decimal.Min(limit, s.config.MaxLiquidableValue.Decimal)
	}
	if c.MaxLiquidableValue.Valid {
		limit = decimal.Min(limit, c.MaxLiquidableValue.Decimal)
	}

	return limit, nil
}

// StartLiquidation seize collateral of an insolvent cdp worth up to value plus
// the liquidation bonus. The returned receipt must be ended with payments
// worth exactly its expected value in the same transaction. collaterals
// optionally orders the assets to seize first, otherwise the most valuable
// collateral goes first. A delegatee's delegator collateral is seized after
// its own.
func (s *Session) StartLiquidation(ctx context.Context, actor string, id uint64, value decimal.Decimal, collaterals []string) (*core.LiquidationReceipt, []core.Bucket, error) {
	if !value.IsPositive() {
		return nil, nil, fmt.Errorf("liquidation value %s: %w", value, core.ErrInvalidAmount)
	}

	if err := s.status.Check(core.ServiceLiquidate); err != nil {
		return nil, nil, err
	}

	pos, err := s.Position(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c := pos.CDP()
	if !c.HasLoan() {
		return nil, nil, fmt.Errorf("cdp %d has no loan: %w", id, core.ErrNothingToLiquidate)
	}

	h, err := s.groupHealth(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	if err := h.CanLiquidate(); err != nil {
		return nil, nil, err
	}

	for asset := range c.Loans {
		p, err := s.Pool(ctx, asset)
		if err != nil {
			return nil, nil, err
		}

		if err := s.gate(core.ServiceLiquidate, p); err != nil {
			return nil, nil, err
		}
	}

	remaining, err := s.liquidationCap(ctx, c, value)
	if err != nil {
		return nil, nil, err
	}

	holders := []*position.Position{pos}
	if c.Type == core.CDPTypeDelegatee && c.Delegatee != nil {
		delegator, err := s.Position(ctx, c.Delegatee.Delegator)
		if err != nil {
			return nil, nil, err
		}
		holders = append(holders, delegator)
	}

	candidates, err := s.seizable(ctx, holders, collaterals)
	if err != nil {
		return nil, nil, err
	}

	var (
		seized   []core.Bucket
		expected decimal.Decimal
	)

	for _, cand := range candidates {
		if remaining.LessThan(lending.Epsilon) {
			break
		}

		p, err := s.Pool(ctx, cand.assetID)
		if err != nil {
			return nil, nil, err
		}

		if err := s.gate(core.ServiceLiquidate, p); err != nil {
			return nil, nil, err
		}

		markup := decimal.NewFromInt(1).Add(p.Config.LiquidationBonusRate)
		need := remaining.Mul(markup)

		units, take, covered := cand.units, cand.value, cand.value.Div(markup).Truncate(lending.MaxPrecision)
		if need.LessThan(cand.value) {
			take = need
			covered = remaining
			units = decimal.Min(cand.units, pool.DepositUnits(p, take.Div(p.Price)))
		}

		if !units.IsPositive() {
			continue
		}

		fee := take.Sub(covered).Mul(p.Config.ProtocolLiquidationFeeRate)
		feeUnits := units.Mul(fee).Div(take).Truncate(lending.MaxPrecision)

		if err := cand.pos.RemoveCollateral(cand.assetID, units); err != nil {
			return nil, nil, err
		}

		if err := s.m.engine.UnlockCollateral(p, units); err != nil {
			return nil, nil, err
		}

		s.m.engine.KeepReserveUnits(p, feeUnits)

		seized = append(seized, core.Bucket{AssetID: cand.assetID, Unit: units.Sub(feeUnits)})
		expected = expected.Add(covered)
		remaining = remaining.Sub(covered)
	}

	if !expected.IsPositive() {
		return nil, nil, fmt.Errorf("cdp %d: %w", id, core.ErrNothingToLiquidate)
	}

	if err := s.save(ctx, holders...); err != nil {
		return nil, nil, err
	}

	receipt := &core.LiquidationReceipt{
		ID:            core.NewReceiptID(),
		CDPID:         id,
		ExpectedValue: expected,
	}
	seized = core.MergeBuckets(seized)
	s.liquidations[receipt.ID] = receipt
	s.seized[receipt.ID] = seized

	return receipt, seized, nil
}

func (s *Session) seizable(ctx context.Context, holders []*position.Position, order []string) ([]*seizable, error) {
	rank := map[string]int{}
	for i, asset := range order {
		if _, ok := rank[asset]; !ok {
			rank[asset] = i
		}
	}

	var out []*seizable
	for idx, holder := range holders {
		for asset, units := range holder.CDP().Collaterals {
			if !units.IsPositive() {
				continue
			}

			p, err := s.Pool(ctx, asset)
			if err != nil {
				return nil, err
			}

			r, ok := rank[asset]
			if !ok {
				r = len(order)
			}

			out = append(out, &seizable{
				holder:  idx,
				pos:     holder,
				assetID: asset,
				units:   units,
				value:   pool.Value(p, pool.DepositAmount(p, units)),
				rank:    r,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.holder != b.holder {
			return a.holder < b.holder
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if !a.value.Equal(b.value) {
			return a.value.GreaterThan(b.value)
		}
		return a.assetID < b.assetID
	})

	return out, nil
}

func (s *Session) openLiquidation(receipt *core.LiquidationReceipt) error {
	if receipt == nil {
		return core.ErrInvalidReceipt
	}

	if s.burned[receipt.ID] {
		return fmt.Errorf("liquidation %s: %w", receipt.ID, core.ErrReceiptBurned)
	}

	if open, ok := s.liquidations[receipt.ID]; !ok || open != receipt {
		return fmt.Errorf("liquidation %s: %w", receipt.ID, core.ErrInvalidReceipt)
	}

	return nil
}

// EndLiquidation repay the liquidated cdp's loans with payments worth the
// receipt's expected value and burn the receipt. Returns what was not needed.
func (s *Session) EndLiquidation(ctx context.Context, actor string, receipt *core.LiquidationReceipt, payments []core.Bucket) ([]core.Bucket, error) {
	if err := s.openLiquidation(receipt); err != nil {
		return nil, err
	}

	pos, err := s.Position(ctx, receipt.CDPID)
	if err != nil {
		return nil, err
	}

	leftovers, repaid, err := s.repayLoans(ctx, pos, payments, receipt.ExpectedValue)
	if err != nil {
		return nil, err
	}

	if repaid.Sub(receipt.ExpectedValue).Abs().GreaterThan(lending.Epsilon) {
		return nil, fmt.Errorf("liquidation %s repaid %s, expected %s: %w", receipt.ID, repaid, receipt.ExpectedValue, core.ErrLiquidationValueMismatch)
	}

	data := liquidationData{
		Receipt:    receipt,
		Seized:     s.seized[receipt.ID],
		Repaid:     repaid,
		Leftovers:  leftovers,
		Liquidator: actor,
	}

	if pos.CDP().HasLoan() {
		exhausted, err := s.collateralExhausted(ctx, pos.CDP())
		if err != nil {
			return nil, err
		}

		if exhausted {
			data.Liquidated = map[string]decimal.Decimal{}
			for asset, units := range pos.CDP().Loans {
				p, err := s.Pool(ctx, asset)
				if err != nil {
					return nil, err
				}

				amount, err := s.m.engine.WriteOff(ctx, p, units)
				if err != nil {
					return nil, err
				}

				data.Liquidated[asset] = units
				data.WrittenOff = append(data.WrittenOff, core.Bucket{AssetID: asset, Amount: amount, Unit: units})
			}
			sort.Slice(data.WrittenOff, func(i, j int) bool {
				return data.WrittenOff[i].AssetID < data.WrittenOff[j].AssetID
			})
			pos.MoveLoansToLiquidated()
		}
	}

	if err := s.save(ctx, pos); err != nil {
		return nil, err
	}

	delete(s.liquidations, receipt.ID)
	delete(s.seized, receipt.ID)
	s.burned[receipt.ID] = true

	s.emit(core.EventLiquidate, receipt.CDPID, actor, "", data)
	return leftovers, nil
}

// collateralExhausted no collateral left to back c, its delegator's included
func (s *Session) collateralExhausted(ctx context.Context, c *core.CDP) (bool, error) {
	if len(c.Collaterals) > 0 {
		return false, nil
	}

	if c.Type == core.CDPTypeDelegatee && c.Delegatee != nil {
		delegator, err := s.findCDP(ctx, c.Delegatee.Delegator)
		if err != nil {
			return false, err
		}
		return len(delegator.Collaterals) == 0, nil
	}

	return true, nil
}

// FastLiquidation start and end a liquidation in one call, the liquidation
// value is the value of the payments matching the cdp's loans, each capped
// by its loan's close factor
func (s *Session) FastLiquidation(ctx context.Context, actor string, id uint64, payments []core.Bucket, collaterals []string) ([]core.Bucket, []core.Bucket, error) {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	value := decimal.Zero
	for _, b := range core.MergeBuckets(payments) {
		if !c.Loans[b.AssetID].IsPositive() {
			continue
		}

		p, err := s.Pool(ctx, b.AssetID)
		if err != nil {
			return nil, nil, err
		}

		amount := decimal.Min(b.Amount, closableAmount(p, c.Loans[b.AssetID]))
		value = value.Add(pool.Value(p, amount))
	}

	receipt, seized, err := s.StartLiquidation(ctx, actor, id, value, collaterals)
	if err != nil {
		return nil, nil, err
	}

	leftovers, err := s.EndLiquidation(ctx, actor, receipt, payments)
	if err != nil {
		return nil, nil, err
	}

	return seized, leftovers, nil
}
