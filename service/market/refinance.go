package market

import (
	"context"
	"fmt"
	"sort"

	"cdplend/core"
	"cdplend/service/pool"

	"github.com/shopspring/decimal"
)

type refinanceData struct {
	Request   *core.RefinanceRequest `json:"request"`
	LTV       decimal.Decimal        `json:"ltv"`
	Repaid    decimal.Decimal        `json:"repaid"`
	Leftovers []core.Bucket          `json:"leftovers,omitempty"`
}

func (s *Session) canRefinance(ltv decimal.Decimal) bool {
	if ltv.GreaterThan(decimal.NewFromInt(1)) {
		return true
	}

	limit := s.config.RefinanceLTV
	return limit.IsPositive() && ltv.GreaterThanOrEqual(limit)
}

// Refinance hand the collateral of cdp id over to refinancer, which must pay
// back every loan of the cdp. Returns the payments that were not needed.
func (s *Session) Refinance(ctx context.Context, actor string, id uint64, refinancer core.Refinancer) ([]core.Bucket, error) {
	if refinancer == nil {
		return nil, fmt.Errorf("nil refinancer: %w", core.ErrInvalidArgument)
	}

	if err := s.status.Check(core.ServiceRefinance); err != nil {
		return nil, err
	}

	pos, err := s.Position(ctx, id)
	if err != nil {
		return nil, err
	}

	if !pos.CDP().HasLoan() {
		return nil, fmt.Errorf("cdp %d has no loan: %w", id, core.ErrRefinanceNotAllowed)
	}

	h, err := s.groupHealth(ctx, pos.CDP())
	if err != nil {
		return nil, err
	}

	if !s.canRefinance(h.LTV) {
		return nil, fmt.Errorf("cdp %d ltv %s: %w", id, h.LTV, core.ErrRefinanceNotAllowed)
	}

	req := &core.RefinanceRequest{CDPID: id}
	for _, asset := range sortedAssets(pos.CDP().Loans) {
		p, err := s.Pool(ctx, asset)
		if err != nil {
			return nil, err
		}

		if err := s.gate(core.ServiceRefinance, p); err != nil {
			return nil, err
		}

		req.Loans = append(req.Loans, core.Bucket{
			AssetID: asset,
			Amount:  pool.LoanAmount(p, pos.Loan(asset)),
		})
	}

	for _, asset := range sortedAssets(pos.CDP().Collaterals) {
		units := pos.Collateral(asset)
		p, err := s.Pool(ctx, asset)
		if err != nil {
			return nil, err
		}

		if err := s.gate(core.ServiceRefinance, p); err != nil {
			return nil, err
		}

		if err := pos.RemoveCollateral(asset, units); err != nil {
			return nil, err
		}

		if err := s.m.engine.UnlockCollateral(p, units); err != nil {
			return nil, err
		}

		req.Collaterals = append(req.Collaterals, core.Bucket{AssetID: asset, Unit: units})
	}

	payments, err := refinancer.Refinance(ctx, req)
	if err != nil {
		return nil, err
	}

	leftovers, repaid, err := s.repayLoans(ctx, pos, payments, decimal.Zero)
	if err != nil {
		return nil, err
	}

	if pos.CDP().HasLoan() {
		return nil, fmt.Errorf("cdp %d still owes %v: %w", id, pos.CDP().Loans, core.ErrRefinanceIncomplete)
	}

	if err := s.save(ctx, pos); err != nil {
		return nil, err
	}

	s.emit(core.EventRefinance, id, actor, "", refinanceData{
		Request:   req,
		LTV:       h.LTV,
		Repaid:    repaid,
		Leftovers: leftovers,
	})

	return leftovers, nil
}

func sortedAssets(m map[string]decimal.Decimal) []string {
	assets := make([]string, 0, len(m))
	for asset, units := range m {
		if units.IsPositive() {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)
	return assets
}
