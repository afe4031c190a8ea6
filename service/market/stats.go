package market

import (
	"context"

	"cdplend/core"
	"cdplend/service/health"
)

// LiquidatableCDP cdp whose group ltv is above 1
type LiquidatableCDP struct {
	CDP    *core.CDP      `json:"cdp"`
	Health *health.Health `json:"health"`
}

// Stats market statistics, every pool refreshed
func (s *Session) Stats(ctx context.Context) (*core.MarketStats, error) {
	pools, err := s.AllPools(ctx)
	if err != nil {
		return nil, err
	}

	stats := &core.MarketStats{}
	for _, p := range pools {
		ps, err := s.m.engine.Stats(ctx, p)
		if err != nil {
			return nil, err
		}

		stats.Pools = append(stats.Pools, ps)
		stats.TotalDeposit = stats.TotalDeposit.Add(ps.TVL)
		stats.TotalLoan = stats.TotalLoan.Add(ps.LoanValue)
	}

	liquidatable, err := s.ListLiquidatable(ctx)
	if err != nil {
		return nil, err
	}

	cdps, err := s.AllCDPs(ctx)
	if err != nil {
		return nil, err
	}

	stats.CDPCount = len(cdps)
	stats.LiquidatingCDP = len(liquidatable)
	return stats, nil
}

// ListLiquidatable every cdp with loans whose group ltv is above 1
func (s *Session) ListLiquidatable(ctx context.Context) ([]*LiquidatableCDP, error) {
	cdps, err := s.AllCDPs(ctx)
	if err != nil {
		return nil, err
	}

	var out []*LiquidatableCDP
	for _, c := range cdps {
		if !c.HasLoan() {
			continue
		}

		h, err := s.groupHealth(ctx, c)
		if err != nil {
			return nil, err
		}

		if h.Liquidatable() {
			out = append(out, &LiquidatableCDP{CDP: c.Clone(), Health: h})
		}
	}

	return out, nil
}
