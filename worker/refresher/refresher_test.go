package refresher

import (
	"context"
	"errors"
	"testing"

	"cdplend/core"
	"cdplend/service/health"
	"cdplend/service/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	stats        *core.MarketStats
	err          error
	listCalls    int
	liquidatable []*market.LiquidatableCDP
}

func (m *fakeMarket) Stats(ctx context.Context) (*core.MarketStats, error) {
	return m.stats, m.err
}

func (m *fakeMarket) ListLiquidatable(ctx context.Context) ([]*market.LiquidatableCDP, error) {
	m.listCalls++
	return m.liquidatable, nil
}

type sink struct {
	stats *core.MarketStats
}

func (s *sink) SetStats(stats *core.MarketStats) {
	s.stats = stats
}

func TestRefresher(t *testing.T) {
	ctx := context.Background()

	t.Run("publish stats", func(t *testing.T) {
		m := &fakeMarket{stats: &core.MarketStats{CDPCount: 3}}
		s := &sink{}

		require.NoError(t, New("@every 1m", m, s).onWork(ctx))
		assert.Equal(t, 3, s.stats.CDPCount)
		assert.Equal(t, 0, m.listCalls)
	})

	t.Run("list liquidatable", func(t *testing.T) {
		m := &fakeMarket{
			stats: &core.MarketStats{CDPCount: 1, LiquidatingCDP: 1},
			liquidatable: []*market.LiquidatableCDP{{
				CDP:    &core.CDP{ID: 1},
				Health: &health.Health{LTV: decimal.NewFromFloat(1.2)},
			}},
		}

		require.NoError(t, New("@every 1m", m, &sink{}).onWork(ctx))
		assert.Equal(t, 1, m.listCalls)
	})

	t.Run("stats error", func(t *testing.T) {
		m := &fakeMarket{err: errors.New("boom")}
		s := &sink{}

		assert.Error(t, New("@every 1m", m, s).onWork(ctx))
		assert.Nil(t, s.stats)
	})
}
