package pool

import (
	"context"

	"cdplend/core"
	"cdplend/pkg/lending"
)

// Stats pool statistics at its last refresh
func (e *Engine) Stats(ctx context.Context, p *core.Pool) (*core.PoolStats, error) {
	available, _, err := p.Liquidity.PooledAmount(ctx)
	if err != nil {
		return nil, err
	}

	supplyAPR := lending.SupplyRate(p.InterestRate, p.Utilization, p.Config.ProtocolInterestFeeRate)

	return &core.PoolStats{
		AssetID:           p.AssetID,
		Price:             p.Price,
		TotalDeposit:      p.TotalDeposit,
		TotalLoan:         p.TotalLoan,
		TVL:               Value(p, p.TotalDeposit),
		LoanValue:         Value(p, p.TotalLoan),
		Available:         available,
		Utilization:       p.Utilization,
		BorrowAPR:         p.InterestRate,
		SupplyAPR:         supplyAPR,
		BorrowAPY:         lending.APY(p.InterestRate),
		SupplyAPY:         lending.APY(supplyAPR),
		DepositUnitRatio:  DepositRatio(p),
		LoanUnitRatio:     LoanRatio(p),
		DepositLimit:      p.Config.DepositLimit,
		BorrowLimit:       p.Config.BorrowLimit,
		UtilizationLimit:  p.Config.UtilizationLimit,
		ReserveBalance:    p.ReserveBalance,
		ReserveUnits:      p.ReserveUnits,
		BadDebt:           p.BadDebt,
		CollateralUnits:   p.CollateralUnits,
		InterestUpdatedAt: p.InterestUpdatedAt,
	}, nil
}
