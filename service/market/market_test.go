package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"cdplend/core"
	"cdplend/service/liquidity"
	"cdplend/service/pool"
	cdpstore "cdplend/store/cdp"
	poolstore "cdplend/store/pool"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func near(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Sub(d(want)).Abs().LessThan(d("0.000000001")), "want %s got %s", want, got)
}

type fakeOracle struct {
	clock  clock.Clock
	prices map[string]decimal.Decimal
}

func (o *fakeOracle) GetPrice(ctx context.Context, assetID string) (*core.Price, bool, error) {
	price, ok := o.prices[assetID]
	if !ok {
		return nil, false, nil
	}

	return &core.Price{AssetID: assetID, Price: price, Timestamp: o.clock.Now()}, true, nil
}

type memEvents struct {
	events []*core.Event
	fail   error
}

func (s *memEvents) Create(ctx context.Context, events []*core.Event) error {
	if s.fail != nil {
		return s.fail
	}

	for _, e := range events {
		e.ID = int64(len(s.events) + 1)
		s.events = append(s.events, e)
	}
	return nil
}

func (s *memEvents) ListByCDP(ctx context.Context, cdpID uint64, fromID int64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, e := range s.events {
		if e.CDPID == cdpID && e.ID > fromID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEvents) List(ctx context.Context, fromID int64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, e := range s.events {
		if e.ID > fromID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEvents) FindByTrace(ctx context.Context, traceID string) (*core.Event, error) {
	for _, e := range s.events {
		if e.TraceID == traceID {
			return e, nil
		}
	}
	return nil, core.ErrEventNotFound
}

func (s *memEvents) count(typ core.EventType) int {
	n := 0
	for _, e := range s.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type testMarket struct {
	*Market
	clock  *clock.Mock
	oracle *fakeOracle
	events *memEvents
	pools  core.IPoolStore
	cdps   core.ICDPStore
	vaults map[string]*liquidity.Pool
}

func testPoolConfig() core.PoolConfig {
	return core.PoolConfig{
		InterestUpdatePeriod:       60,
		PriceExpirationPeriod:      30,
		OptimalUsage:               d("0.8"),
		ProtocolInterestFeeRate:    d("0.1"),
		FlashloanFeeRate:           d("0.001"),
		ProtocolFlashloanFeeRate:   d("0.5"),
		LiquidationBonusRate:       d("0.05"),
		ProtocolLiquidationFeeRate: d("0.2"),
		LoanCloseFactor:            d("0.5"),
	}
}

func listing(assetID, threshold string) core.PoolListing {
	return core.PoolListing{
		AssetID:   assetID,
		Precision: 8,
		Config:    testPoolConfig(),
		Threshold: core.LiquidationThreshold{Default: d(threshold)},
		Strategy: core.InterestStrategy{
			BaseRate: d("0.01"),
			Slope1:   d("0.04"),
			Slope2:   d("0.75"),
		},
	}
}

// newTestMarket lists usd (base asset) and btc at 20000, lender supplies 100000 usd
func newTestMarket(t *testing.T) *testMarket {
	t.Helper()
	ctx := context.Background()

	clk := clock.NewMock()
	clk.Add(24 * time.Hour)
	oracle := &fakeOracle{clock: clk, prices: map[string]decimal.Decimal{"btc": d("20000")}}

	tm := &testMarket{
		clock:  clk,
		oracle: oracle,
		events: &memEvents{},
		pools:  poolstore.New(),
		cdps:   cdpstore.New(),
		vaults: map[string]*liquidity.Pool{},
	}

	tm.Market = New(
		tm.pools,
		tm.cdps,
		tm.events,
		pool.New(oracle, clk, "usd"),
		clk,
		core.Roles{
			Admins:            []string{"admin"},
			Moderators:        []string{"mod"},
			ReserveCollectors: []string{"collector"},
		},
		core.MarketConfig{DelegationEnabled: true},
	)

	for _, l := range []core.PoolListing{listing("usd", "0.8"), listing("btc", "0.45")} {
		vault := liquidity.New(l.AssetID, l.Precision)
		tm.vaults[l.AssetID] = vault
		require.NoError(t, tm.ListPool(ctx, "admin", l, vault))
	}

	_, err := tm.Contribute(ctx, "lender", "usd", d("100000"))
	require.NoError(t, err)
	return tm
}

func (tm *testMarket) openCDP(t *testing.T, owner, btc string) uint64 {
	t.Helper()
	id, err := tm.CreateCDP(context.Background(), owner, core.CDPMeta{Name: "test"}, []core.Bucket{
		{AssetID: "btc", Amount: d(btc)},
	})
	require.NoError(t, err)
	return id
}

func (tm *testMarket) available(t *testing.T, assetID string) decimal.Decimal {
	t.Helper()
	available, _, err := tm.vaults[assetID].PooledAmount(context.Background())
	require.NoError(t, err)
	return available
}

func (tm *testMarket) pool(t *testing.T, assetID string) *core.Pool {
	t.Helper()
	p, err := tm.pools.Find(context.Background(), assetID)
	require.NoError(t, err)
	return p
}

func (tm *testMarket) cdp(t *testing.T, id uint64) *core.CDP {
	t.Helper()
	c, err := tm.cdps.Find(context.Background(), id)
	require.NoError(t, err)
	return c
}

func TestBorrowRepay(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	out, err := tm.Borrow(ctx, "alice", id, "usd", d("8800"))
	require.NoError(t, err)
	assert.Equal(t, "8800", out.Amount.String())

	_, err = tm.Borrow(ctx, "alice", id, "usd", d("500"))
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral), err)
	assert.Equal(t, "91200", tm.available(t, "usd").String())
	assert.Equal(t, "8800", tm.pool(t, "usd").TotalLoan.String())
	assert.Equal(t, 1, tm.events.count(core.EventBorrow))

	_, err = tm.Borrow(ctx, "bob", id, "usd", d("1"))
	assert.True(t, errors.Is(err, core.ErrUnauthorized), err)

	h, err := tm.Health(ctx, id)
	require.NoError(t, err)
	near(t, "0.9777777777777778", h.LTV)

	leftovers, err := tm.Repay(ctx, "bob", id, []core.Bucket{{AssetID: "usd", Amount: d("10000")}})
	require.NoError(t, err)
	require.Len(t, leftovers, 1)
	assert.Equal(t, "1200", leftovers[0].Amount.String())

	assert.False(t, tm.cdp(t, id).HasLoan())
	assert.Equal(t, "100000", tm.available(t, "usd").String())
	assert.True(t, tm.pool(t, "usd").TotalLoan.IsZero())
	assert.Equal(t, 1, tm.events.count(core.EventRepay))
}

func TestCollateral(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	require.NoError(t, tm.AddCollateral(ctx, "alice", id, []core.Bucket{{AssetID: "btc", Amount: d("1")}}))
	assert.Equal(t, "2", tm.cdp(t, id).Collaterals["btc"].String())
	assert.Equal(t, "2", tm.pool(t, "btc").CollateralUnits.String())

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("10000"))
	require.NoError(t, err)

	_, err = tm.RemoveCollateral(ctx, "alice", id, "btc", d("1"))
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral), err)
	assert.Equal(t, "2", tm.cdp(t, id).Collaterals["btc"].String())

	out, err := tm.RemoveCollateral(ctx, "alice", id, "btc", d("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.5", out.Unit.String())
	assert.Equal(t, "1.5", tm.pool(t, "btc").CollateralUnits.String())

	redeemed, err := tm.Redeem(ctx, "alice", "btc", out.Unit)
	require.NoError(t, err)
	assert.Equal(t, "0.5", redeemed.Amount.String())

	_, err = tm.Redeem(ctx, "alice", "btc", d("1"))
	assert.True(t, errors.Is(err, core.ErrInsufficientPosition), err)
}

func TestUpdateMeta(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	require.NoError(t, tm.UpdateMeta(ctx, "alice", id, core.CDPMeta{Name: "vault", KeyImageURL: "https://example.com/a.png"}))
	assert.Equal(t, "vault", tm.cdp(t, id).Meta.Name)

	err := tm.UpdateMeta(ctx, "alice", id, core.CDPMeta{KeyImageURL: "not a url"})
	assert.True(t, errors.Is(err, core.ErrInvalidMetadata), err)

	err = tm.UpdateMeta(ctx, "bob", id, core.CDPMeta{})
	assert.True(t, errors.Is(err, core.ErrUnauthorized), err)
}

func TestFastLiquidation(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("8800"))
	require.NoError(t, err)

	_, _, err = tm.FastLiquidation(ctx, "liquidator", id, []core.Bucket{{AssetID: "usd", Amount: d("4400")}}, nil)
	assert.True(t, errors.Is(err, core.ErrNotLiquidatable), err)

	tm.oracle.prices["btc"] = d("19000")

	list, err := tm.ListLiquidatable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].CDP.ID)

	seized, leftovers, err := tm.FastLiquidation(ctx, "liquidator", id, []core.Bucket{{AssetID: "usd", Amount: d("10000")}}, nil)
	require.NoError(t, err)

	require.Len(t, seized, 1)
	assert.Equal(t, "btc", seized[0].AssetID)
	near(t, "0.2408421052631579", seized[0].Unit)

	require.Len(t, leftovers, 1)
	assert.Equal(t, "5600", leftovers[0].Amount.String())

	c := tm.cdp(t, id)
	assert.Equal(t, "4400", c.Loans["usd"].String())
	near(t, "0.7568421052631579", c.Collaterals["btc"])

	btc := tm.pool(t, "btc")
	near(t, "0.0023157894736842", btc.ReserveUnits)
	near(t, "0.7568421052631579", btc.CollateralUnits)
	assert.Equal(t, 1, tm.events.count(core.EventLiquidate))

	h, err := tm.Health(ctx, id)
	require.NoError(t, err)
	assert.False(t, h.Liquidatable())
}

func TestLiquidationCloseFactorPerLoan(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	_, err := tm.Contribute(ctx, "lender", "btc", d("10"))
	require.NoError(t, err)
	_, err = tm.Borrow(ctx, "alice", id, "usd", d("8000"))
	require.NoError(t, err)
	_, err = tm.Borrow(ctx, "alice", id, "btc", d("0.04"))
	require.NoError(t, err)

	tm.oracle.prices["btc"] = d("19000")

	t.Run("two phase", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.StartLiquidation(ctx, "liquidator", id, d("760"), nil)
			require.NoError(t, err)
			assert.Equal(t, "760", receipt.ExpectedValue.String())

			_, err = s.EndLiquidation(ctx, "liquidator", receipt, []core.Bucket{{AssetID: "btc", Amount: d("0.04")}})
			return err
		})
		assert.True(t, errors.Is(err, core.ErrLiquidationValueMismatch), err)
		assert.Equal(t, "0.04", tm.cdp(t, id).Loans["btc"].String())
	})

	t.Run("fast", func(t *testing.T) {
		_, leftovers, err := tm.FastLiquidation(ctx, "liquidator", id, []core.Bucket{{AssetID: "btc", Amount: d("0.04")}}, nil)
		require.NoError(t, err)

		require.Len(t, leftovers, 1)
		near(t, "0.02", leftovers[0].Amount)

		c := tm.cdp(t, id)
		near(t, "0.02", c.Loans["btc"])
		assert.Equal(t, "8000", c.Loans["usd"].String())
	})
}

func TestLiquidationWritesOffBadDebt(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("8800"))
	require.NoError(t, err)

	tm.oracle.prices["btc"] = d("4000")

	seized, _, err := tm.FastLiquidation(ctx, "liquidator", id, []core.Bucket{{AssetID: "usd", Amount: d("5000")}}, []string{"btc"})
	require.NoError(t, err)
	require.Len(t, seized, 1)

	c := tm.cdp(t, id)
	assert.Empty(t, c.Collaterals)
	assert.False(t, c.HasLoan())
	near(t, "4990.4761904761904762", c.Liquidated["usd"])

	p := tm.pool(t, "usd")
	assert.True(t, p.TotalLoan.IsZero())
	assert.True(t, p.TotalLoanUnit.IsZero())
	near(t, "4990.4761904761904762", p.BadDebt)
	near(t, "95009.5238095238095238", p.TotalDeposit)
	_, external, err := tm.vaults["usd"].PooledAmount(ctx)
	require.NoError(t, err)
	assert.True(t, external.IsZero(), external.String())

	t.Run("no interest on written off debt", func(t *testing.T) {
		tm.clock.Add(365 * 24 * time.Hour)
		stats, err := tm.Stats(ctx)
		require.NoError(t, err)

		for _, ps := range stats.Pools {
			if ps.AssetID != "usd" {
				continue
			}

			assert.True(t, ps.TotalLoan.IsZero())
			near(t, "95009.5238095238095238", ps.TotalDeposit)
			near(t, "4990.4761904761904762", ps.BadDebt)
		}
	})

	t.Run("depositors redeem what is left", func(t *testing.T) {
		out, err := tm.Redeem(ctx, "lender", "usd", d("100000"))
		require.NoError(t, err)
		near(t, "95009.5238095238095238", out.Amount)

		p := tm.pool(t, "usd")
		assert.True(t, p.TotalDeposit.IsZero())
		assert.True(t, p.TotalDepositUnit.IsZero())
		assert.True(t, p.BadDebt.IsZero())
		assert.True(t, tm.available(t, "usd").IsZero())
	})
}

func TestTwoPhaseLiquidation(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("8800"))
	require.NoError(t, err)
	tm.oracle.prices["btc"] = d("19000")

	t.Run("value mismatch", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.StartLiquidation(ctx, "liquidator", id, d("4400"), nil)
			require.NoError(t, err)

			_, err = s.EndLiquidation(ctx, "liquidator", receipt, []core.Bucket{{AssetID: "usd", Amount: d("1000")}})
			return err
		})
		assert.True(t, errors.Is(err, core.ErrLiquidationValueMismatch), err)
		assert.Equal(t, "1", tm.cdp(t, id).Collaterals["btc"].String())
		assert.Equal(t, "1", tm.pool(t, "btc").CollateralUnits.String())
		assert.Equal(t, "91200", tm.available(t, "usd").String())
	})

	t.Run("receipt outstanding", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			_, _, err := s.StartLiquidation(ctx, "liquidator", id, d("4400"), nil)
			return err
		})
		assert.True(t, errors.Is(err, core.ErrReceiptOutstanding), err)
		assert.Equal(t, "1", tm.cdp(t, id).Collaterals["btc"].String())
	})

	t.Run("receipt burned", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.StartLiquidation(ctx, "liquidator", id, d("1000"), nil)
			require.NoError(t, err)

			payments := []core.Bucket{{AssetID: "usd", Amount: d("1000")}}
			_, err = s.EndLiquidation(ctx, "liquidator", receipt, payments)
			require.NoError(t, err)

			_, err = s.EndLiquidation(ctx, "liquidator", receipt, payments)
			return err
		})
		assert.True(t, errors.Is(err, core.ErrReceiptBurned), err)
		assert.Equal(t, "8800", tm.cdp(t, id).Loans["usd"].String())
	})

	t.Run("capped by cdp max liquidable value", func(t *testing.T) {
		err := tm.SetCDPMaxLiquidableValue(ctx, "admin", id, decimal.NullDecimal{Decimal: d("1000"), Valid: true})
		require.NoError(t, err)

		err = tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.StartLiquidation(ctx, "liquidator", id, d("4400"), nil)
			require.NoError(t, err)
			assert.Equal(t, "1000", receipt.ExpectedValue.String())

			leftovers, err := s.EndLiquidation(ctx, "liquidator", receipt, []core.Bucket{{AssetID: "usd", Amount: d("4400")}})
			require.NoError(t, err)
			require.Len(t, leftovers, 1)
			assert.Equal(t, "3400", leftovers[0].Amount.String())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "7800", tm.cdp(t, id).Loans["usd"].String())
	})
}

func TestFlashloan(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	loans := []core.Bucket{{AssetID: "usd", Amount: d("1000")}}

	t.Run("repaid with fee", func(t *testing.T) {
		leftovers, err := tm.Flashloan(ctx, "bob", loans, func(ctx context.Context, s *Session, funds []core.Bucket) ([]core.Bucket, error) {
			require.Len(t, funds, 1)
			assert.Equal(t, "1000", funds[0].Amount.String())
			return []core.Bucket{{AssetID: "usd", Amount: d("1002")}}, nil
		})
		require.NoError(t, err)
		require.Len(t, leftovers, 1)
		assert.Equal(t, "1", leftovers[0].Amount.String())

		usd := tm.pool(t, "usd")
		assert.Equal(t, "0.5", usd.ReserveBalance.String())
		assert.Equal(t, "100000.5", usd.TotalDeposit.String())
		assert.Equal(t, "100000.5", tm.available(t, "usd").String())
	})

	t.Run("not repaid", func(t *testing.T) {
		_, err := tm.Flashloan(ctx, "bob", loans, func(ctx context.Context, s *Session, funds []core.Bucket) ([]core.Bucket, error) {
			return funds, nil
		})
		assert.True(t, errors.Is(err, core.ErrFlashloanNotRepaid), err)
		assert.Equal(t, "100000.5", tm.available(t, "usd").String())
	})

	t.Run("receipt burned", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.TakeFlashloan(ctx, "bob", loans)
			require.NoError(t, err)

			payments := []core.Bucket{{AssetID: "usd", Amount: d("1001")}}
			_, err = s.RepayFlashloan(ctx, "bob", receipt, payments)
			require.NoError(t, err)

			_, err = s.RepayFlashloan(ctx, "bob", receipt, payments)
			return err
		})
		assert.True(t, errors.Is(err, core.ErrReceiptBurned), err)
		assert.Equal(t, "0.5", tm.pool(t, "usd").ReserveBalance.String())
	})

	t.Run("negative payment", func(t *testing.T) {
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.TakeFlashloan(ctx, "bob", loans)
			require.NoError(t, err)

			_, err = s.RepayFlashloan(ctx, "bob", receipt, []core.Bucket{
				{AssetID: "usd", Amount: d("1001")},
				{AssetID: "btc", Amount: d("-1")},
			})
			return err
		})
		assert.True(t, errors.Is(err, core.ErrInvalidAmount), err)
		assert.Equal(t, "0.5", tm.pool(t, "usd").ReserveBalance.String())
		assert.Equal(t, "100000.5", tm.available(t, "usd").String())
	})

	t.Run("receipt of another transaction", func(t *testing.T) {
		var leaked *core.FlashloanReceipt
		abort := errors.New("abort")
		err := tm.Transact(ctx, func(s *Session) error {
			receipt, _, err := s.TakeFlashloan(ctx, "bob", loans)
			require.NoError(t, err)
			leaked = receipt
			return abort
		})
		assert.Equal(t, abort, err)

		err = tm.Transact(ctx, func(s *Session) error {
			_, err := s.RepayFlashloan(ctx, "bob", leaked, []core.Bucket{{AssetID: "usd", Amount: d("1001")}})
			return err
		})
		assert.True(t, errors.Is(err, core.ErrInvalidReceipt), err)
		assert.Equal(t, "100000.5", tm.available(t, "usd").String())
	})

	t.Run("sweep reserve", func(t *testing.T) {
		_, err := tm.SweepReserve(ctx, "bob")
		assert.True(t, errors.Is(err, core.ErrUnauthorized), err)

		out, err := tm.SweepReserve(ctx, "collector")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "usd", out[0].AssetID)
		assert.Equal(t, "0.5", out[0].Amount.String())

		out, err = tm.SweepReserve(ctx, "collector")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestOperatingStatus(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	err := tm.SetMarketStatus(ctx, "alice", core.ServiceBorrow, false)
	assert.True(t, errors.Is(err, core.ErrUnauthorized), err)

	require.NoError(t, tm.SetMarketStatus(ctx, "mod", core.ServiceBorrow, false))
	_, err = tm.Borrow(ctx, "alice", id, "usd", d("100"))
	assert.True(t, errors.Is(err, core.ErrServiceDisabled), err)

	require.NoError(t, tm.SetMarketStatus(ctx, "admin", core.ServiceBorrow, true))
	err = tm.SetMarketStatus(ctx, "mod", core.ServiceBorrow, false)
	assert.True(t, errors.Is(err, core.ErrUnauthorized), err)

	_, err = tm.Borrow(ctx, "alice", id, "usd", d("100"))
	require.NoError(t, err)

	require.NoError(t, tm.SetPoolStatus(ctx, "mod", "usd", core.ServiceRepay, false))
	_, err = tm.Repay(ctx, "alice", id, []core.Bucket{{AssetID: "usd", Amount: d("100")}})
	assert.True(t, errors.Is(err, core.ErrServiceDisabled), err)

	err = tm.SetPoolStatus(ctx, "mod", "usd", core.Service("teleport"), false)
	assert.True(t, errors.Is(err, core.ErrInvalidArgument), err)
}

func TestDelegation(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	delegator := tm.openCDP(t, "alice", "1")

	delegatee, err := tm.CreateDelegatee(ctx, "alice", delegator, core.CDPMeta{}, decimal.NullDecimal{Decimal: d("1000"), Valid: true}, decimal.NullDecimal{})
	require.NoError(t, err)
	assert.Equal(t, core.CDPTypeDelegatee, tm.cdp(t, delegatee).Type)
	assert.Equal(t, core.CDPTypeDelegator, tm.cdp(t, delegator).Type)

	_, err = tm.Borrow(ctx, "alice", delegatee, "usd", d("1500"))
	assert.True(t, errors.Is(err, core.ErrDelegateeLimitExceeded), err)

	_, err = tm.Borrow(ctx, "alice", delegatee, "usd", d("900"))
	require.NoError(t, err)

	h, err := tm.Health(ctx, delegatee)
	require.NoError(t, err)
	assert.Equal(t, "0.1", h.LTV.String())
	assert.ElementsMatch(t, []uint64{delegator, delegatee}, h.CDPs)

	_, err = tm.Borrow(ctx, "alice", delegator, "usd", d("8200"))
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral), err)

	_, err = tm.Borrow(ctx, "alice", delegator, "usd", d("8000"))
	require.NoError(t, err)

	_, err = tm.CreateDelegatee(ctx, "alice", delegatee, core.CDPMeta{}, decimal.NullDecimal{}, decimal.NullDecimal{})
	assert.True(t, errors.Is(err, core.ErrInvalidDelegation), err)

	err = tm.UnlinkDelegatee(ctx, "alice", delegator, delegatee)
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral), err)

	_, err = tm.Repay(ctx, "alice", delegatee, []core.Bucket{{AssetID: "usd", Amount: d("900")}})
	require.NoError(t, err)
	require.NoError(t, tm.UnlinkDelegatee(ctx, "alice", delegator, delegatee))
	assert.Equal(t, core.CDPTypeStandard, tm.cdp(t, delegatee).Type)
	assert.Equal(t, core.CDPTypeStandard, tm.cdp(t, delegator).Type)

	cfg := tm.Config()
	cfg.DelegationEnabled = false
	require.NoError(t, tm.UpdateMarketConfig(ctx, "admin", cfg))
	_, err = tm.CreateDelegatee(ctx, "alice", delegator, core.CDPMeta{}, decimal.NullDecimal{}, decimal.NullDecimal{})
	assert.True(t, errors.Is(err, core.ErrDelegationDisabled), err)
}

type fakeRefinancer struct {
	req *core.RefinanceRequest
}

func (r *fakeRefinancer) Refinance(ctx context.Context, req *core.RefinanceRequest) ([]core.Bucket, error) {
	r.req = req
	return req.Loans, nil
}

func TestRefinance(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("8800"))
	require.NoError(t, err)

	r := &fakeRefinancer{}
	_, err = tm.Refinance(ctx, "venue", id, r)
	assert.True(t, errors.Is(err, core.ErrRefinanceNotAllowed), err)

	cfg := tm.Config()
	cfg.RefinanceLTV = d("0.9")
	require.NoError(t, tm.UpdateMarketConfig(ctx, "admin", cfg))

	leftovers, err := tm.Refinance(ctx, "venue", id, r)
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	require.Len(t, r.req.Collaterals, 1)
	assert.Equal(t, "1", r.req.Collaterals[0].Unit.String())
	require.Len(t, r.req.Loans, 1)
	assert.Equal(t, "8800", r.req.Loans[0].Amount.String())

	c := tm.cdp(t, id)
	assert.False(t, c.HasLoan())
	assert.Empty(t, c.Collaterals)
	assert.True(t, tm.pool(t, "btc").CollateralUnits.IsZero())
	assert.Equal(t, 1, tm.events.count(core.EventRefinance))
}

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)

	err := tm.ListPool(ctx, "alice", listing("eth", "0.5"), liquidity.New("eth", 8))
	assert.True(t, errors.Is(err, core.ErrUnauthorized), err)

	err = tm.ListPool(ctx, "admin", listing("usd", "0.5"), liquidity.New("usd", 8))
	assert.True(t, errors.Is(err, core.ErrPoolExists), err)

	err = tm.ListPool(ctx, "admin", listing("eth", "0.5"), liquidity.New("eth", 8))
	assert.True(t, errors.Is(err, core.ErrPriceNotFound), err)

	cfg := testPoolConfig()
	cfg.OptimalUsage = decimal.Zero
	err = tm.UpdatePoolConfig(ctx, "admin", "usd", cfg)
	assert.True(t, errors.Is(err, core.ErrInvalidRate), err)

	err = tm.UpdateStrategy(ctx, "admin", "usd", core.InterestStrategy{BaseRate: d("-0.01")})
	assert.True(t, errors.Is(err, core.ErrInvalidRate), err)

	require.NoError(t, tm.UpdateThreshold(ctx, "admin", "btc", core.LiquidationThreshold{Default: d("0.7")}))
	assert.Equal(t, "0.7", tm.pool(t, "btc").Threshold.Default.String())

	tm.oracle.prices["btc-feed"] = d("21000")
	require.NoError(t, tm.UpdatePriceFeed(ctx, "admin", "btc", "btc-feed"))
	assert.Equal(t, "21000", tm.pool(t, "btc").Price.String())

	stats, err := tm.Stats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.Pools, 2)
	assert.Equal(t, "100000", stats.TotalDeposit.String())
	assert.Equal(t, 0, stats.CDPCount)
}

func TestAdminWithDeadPriceFeed(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	delete(tm.oracle.prices, "btc")
	tm.clock.Add(time.Hour)

	_, err := tm.Borrow(ctx, "alice", id, "usd", d("100"))
	require.True(t, errors.Is(err, core.ErrPriceNotFound), err)

	require.NoError(t, tm.SetPoolStatus(ctx, "mod", "btc", core.ServiceAddCollateral, false))
	assert.False(t, tm.pool(t, "btc").Status.Enabled(core.ServiceAddCollateral))

	require.NoError(t, tm.UpdateThreshold(ctx, "admin", "btc", core.LiquidationThreshold{Default: d("0.5")}))
	require.NoError(t, tm.UpdatePoolConfig(ctx, "admin", "btc", testPoolConfig()))
	require.NoError(t, tm.UpdateStrategy(ctx, "admin", "btc", listing("btc", "0.5").Strategy))

	err = tm.UpdatePriceFeed(ctx, "admin", "btc", "btc-missing")
	assert.True(t, errors.Is(err, core.ErrPriceNotFound), err)
	assert.Equal(t, "", tm.pool(t, "btc").PriceFeed)

	tm.oracle.prices["btc-feed"] = d("19000")
	require.NoError(t, tm.UpdatePriceFeed(ctx, "admin", "btc", "btc-feed"))

	p := tm.pool(t, "btc")
	assert.Equal(t, "btc-feed", p.PriceFeed)
	assert.Equal(t, "19000", p.Price.String())
	assert.Equal(t, "0.5", p.Threshold.Default.String())

	_, err = tm.Borrow(ctx, "alice", id, "usd", d("100"))
	require.NoError(t, err)
}

func TestPositionLimit(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)

	cfg := tm.Config()
	cfg.MaxCDPPosition = 1
	require.NoError(t, tm.UpdateMarketConfig(ctx, "admin", cfg))

	id := tm.openCDP(t, "alice", "1")
	_, err := tm.Borrow(ctx, "alice", id, "usd", d("100"))
	assert.True(t, errors.Is(err, core.ErrPositionLimitExceeded), err)
	assert.Equal(t, "100000", tm.available(t, "usd").String())
}

func TestCommitFailureRestoresLiquidity(t *testing.T) {
	ctx := context.Background()
	tm := newTestMarket(t)
	id := tm.openCDP(t, "alice", "1")

	tm.events.fail = errors.New("db down")
	_, err := tm.Borrow(ctx, "alice", id, "usd", d("1000"))
	assert.Equal(t, tm.events.fail, err)
	assert.Equal(t, "100000", tm.available(t, "usd").String())
	assert.False(t, tm.cdp(t, id).HasLoan())

	tm.events.fail = nil
	_, err = tm.Borrow(ctx, "alice", id, "usd", d("1000"))
	require.NoError(t, err)
	assert.Equal(t, "99000", tm.available(t, "usd").String())
}
