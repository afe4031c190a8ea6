package market

import (
	"context"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/service/pool"
	"cdplend/service/position"

	"github.com/shopspring/decimal"
)

type loanData struct {
	Amount decimal.Decimal `json:"amount"`
	Units  decimal.Decimal `json:"units"`
}

// Borrow lend amount of asset to cdp id
func (s *Session) Borrow(ctx context.Context, actor string, id uint64, assetID string, amount decimal.Decimal) (core.Bucket, error) {
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

	if err := s.gate(core.ServiceBorrow, p); err != nil {
		return core.Bucket{}, err
	}

	sent, units, err := s.m.engine.Borrow(ctx, p, amount)
	if err != nil {
		return core.Bucket{}, err
	}

	pos.AddLoan(assetID, units)
	if err := s.save(ctx, pos); err != nil {
		return core.Bucket{}, err
	}

	if err := s.checkSolvent(ctx, id); err != nil {
		return core.Bucket{}, err
	}

	s.emit(core.EventBorrow, id, actor, assetID, loanData{Amount: sent, Units: units})
	return core.Bucket{AssetID: assetID, Amount: sent}, nil
}

// closableAmount largest amount of a loan of units one liquidation may repay
func closableAmount(p *core.Pool, units decimal.Decimal) decimal.Decimal {
	return pool.LoanAmount(p, units).Mul(p.Config.LoanCloseFactor).Truncate(lending.MaxPrecision)
}

// repayLoans apply payments to the loans of pos. When maxValue is positive the
// payments are capped at maxValue in total and each at its loan's close factor.
// Unused parts are returned.
func (s *Session) repayLoans(ctx context.Context, pos *position.Position, payments []core.Bucket, maxValue decimal.Decimal) ([]core.Bucket, decimal.Decimal, error) {
	var (
		leftovers []core.Bucket
		value     decimal.Decimal
		capped    = maxValue.IsPositive()
		remaining = maxValue
	)

	for _, b := range core.MergeBuckets(payments) {
		owed := pos.Loan(b.AssetID)
		if !owed.IsPositive() || !b.Amount.IsPositive() || (capped && !remaining.IsPositive()) {
			leftovers = append(leftovers, b)
			continue
		}

		p, err := s.Pool(ctx, b.AssetID)
		if err != nil {
			return nil, decimal.Zero, err
		}

		amount := b.Amount
		if capped {
			limit := remaining.Div(p.Price).Truncate(lending.MaxPrecision)
			amount = decimal.Min(amount, limit, closableAmount(p, owed))
		}

		if !amount.IsPositive() {
			leftovers = append(leftovers, b)
			continue
		}

		paid, units, err := s.m.engine.Repay(ctx, p, amount, owed)
		if err != nil {
			return nil, decimal.Zero, err
		}

		if err := pos.RemoveLoan(b.AssetID, units); err != nil {
			return nil, decimal.Zero, err
		}

		paidValue := pool.Value(p, paid)
		value = value.Add(paidValue)
		remaining = remaining.Sub(paidValue)

		if left := b.Amount.Sub(paid); left.IsPositive() {
			leftovers = append(leftovers, core.Bucket{AssetID: b.AssetID, Amount: left})
		}
	}

	return leftovers, value, nil
}

// Repay pay back loans of cdp id, anyone may repay. Returns what was not needed.
func (s *Session) Repay(ctx context.Context, actor string, id uint64, payments []core.Bucket) ([]core.Bucket, error) {
	pos, err := s.Position(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, b := range payments {
		p, err := s.Pool(ctx, b.AssetID)
		if err != nil {
			return nil, err
		}

		if err := s.gate(core.ServiceRepay, p); err != nil {
			return nil, err
		}
	}

	leftovers, value, err := s.repayLoans(ctx, pos, payments, decimal.Zero)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, pos); err != nil {
		return nil, err
	}

	s.emit(core.EventRepay, id, actor, "", repayData{Payments: payments, Leftovers: leftovers, Value: value})
	return leftovers, nil
}

type repayData struct {
	Payments  []core.Bucket   `json:"payments"`
	Leftovers []core.Bucket   `json:"leftovers,omitempty"`
	Value     decimal.Decimal `json:"value"`
}
