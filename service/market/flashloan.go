package market

import (
	"context"
	"fmt"

	"cdplend/core"

	"github.com/shopspring/decimal"
)

// TakeFlashloan borrow several assets at once, the receipt must be repaid
// within the same transaction
func (s *Session) TakeFlashloan(ctx context.Context, actor string, loans []core.Bucket) (*core.FlashloanReceipt, []core.Bucket, error) {
	loans = core.MergeBuckets(loans)
	if len(loans) == 0 {
		return nil, nil, fmt.Errorf("empty flash loan: %w", core.ErrInvalidAmount)
	}

	receipt := &core.FlashloanReceipt{ID: core.NewReceiptID()}
	out := make([]core.Bucket, 0, len(loans))
	for _, b := range loans {
		p, err := s.Pool(ctx, b.AssetID)
		if err != nil {
			return nil, nil, err
		}

		if err := s.gate(core.ServiceFlashloan, p); err != nil {
			return nil, nil, err
		}

		fee, err := s.m.engine.TakeFlashloan(ctx, p, b.Amount)
		if err != nil {
			return nil, nil, err
		}

		receipt.Terms = append(receipt.Terms, &core.FlashloanTerm{
			AssetID: b.AssetID,
			Loan:    b.Amount,
			Fee:     fee,
		})
		out = append(out, core.Bucket{AssetID: b.AssetID, Amount: b.Amount})
	}

	s.flashloans[receipt.ID] = receipt
	return receipt, out, nil
}

func (s *Session) openFlashloan(receipt *core.FlashloanReceipt) (*core.FlashloanReceipt, error) {
	if receipt == nil {
		return nil, core.ErrInvalidReceipt
	}

	if s.burned[receipt.ID] {
		return nil, fmt.Errorf("flash loan %s: %w", receipt.ID, core.ErrReceiptBurned)
	}

	open, ok := s.flashloans[receipt.ID]
	if !ok || open != receipt {
		return nil, fmt.Errorf("flash loan %s: %w", receipt.ID, core.ErrInvalidReceipt)
	}

	return open, nil
}

// RepayFlashloan settle every term of receipt from payments, fails unless all
// terms are paid back in full. Returns what was not needed.
func (s *Session) RepayFlashloan(ctx context.Context, actor string, receipt *core.FlashloanReceipt, payments []core.Bucket) ([]core.Bucket, error) {
	open, err := s.openFlashloan(receipt)
	if err != nil {
		return nil, err
	}

	paid := map[string]decimal.Decimal{}
	var leftovers []core.Bucket
	for _, b := range core.MergeBuckets(payments) {
		if b.Amount.IsNegative() {
			return nil, fmt.Errorf("flash loan payment %s %s: %w", b.Amount, b.AssetID, core.ErrInvalidAmount)
		}

		term, ok := open.Term(b.AssetID)
		if !ok || !b.Amount.IsPositive() {
			leftovers = append(leftovers, b)
			continue
		}

		due := term.Due()
		if b.Amount.LessThanOrEqual(due) {
			paid[term.AssetID] = b.Amount
			continue
		}

		paid[term.AssetID] = due
		leftovers = append(leftovers, core.Bucket{AssetID: b.AssetID, Amount: b.Amount.Sub(due)})
	}

	for _, term := range open.Terms {
		if due := term.Due().Sub(paid[term.AssetID]); due.IsPositive() {
			return nil, fmt.Errorf("flash loan %s of %s owes %s: %w", open.ID, term.AssetID, due, core.ErrFlashloanNotRepaid)
		}
	}

	for _, term := range open.Terms {
		p, err := s.Pool(ctx, term.AssetID)
		if err != nil {
			return nil, err
		}

		if err := s.m.engine.RepayFlashloan(ctx, p, term.Loan, term.Fee); err != nil {
			return nil, err
		}

		term.Paid = term.Paid.Add(paid[term.AssetID])
		term.PaidBack = true
	}

	delete(s.flashloans, open.ID)
	s.burned[open.ID] = true

	s.emit(core.EventFlashloan, 0, actor, "", open)
	return leftovers, nil
}
