package cmd

import (
	"context"
	"fmt"
	"time"

	"cdplend/core"
	"cdplend/metrics"
	"cdplend/service/liquidity"
	"cdplend/service/market"
	"cdplend/service/oracle"
	"cdplend/service/pool"
	"cdplend/store/cdp"
	"cdplend/store/event"
	poolstore "cdplend/store/pool"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/store/db"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideOracle() core.IPriceOracle {
	ttl := time.Duration(cfg.Oracle.CacheTTL) * time.Second
	return oracle.Cache(oracle.New(cfg.Oracle), ttl)
}

func provideEngine(o core.IPriceOracle, clk clock.Clock) *pool.Engine {
	return pool.New(o, clk, cfg.App.BaseAssetID)
}

func provideMarket(events core.IEventStore, engine *pool.Engine, clk clock.Clock, collector *metrics.Collector) *market.Market {
	m := market.New(poolstore.New(), cdp.New(), events, engine, clk, cfg.Roles, cfg.Market)
	if collector != nil {
		m.AddObserver(collector)
	}

	return m
}

func provideEventStore(database *db.DB) core.IEventStore {
	return event.New(database)
}

// listPools list every configured pool backed by a fresh vault
func listPools(ctx context.Context, m *market.Market) error {
	if len(cfg.Pools) == 0 {
		return nil
	}

	if len(cfg.Roles.Admins) == 0 {
		return fmt.Errorf("listing %d pools needs an admin: %w", len(cfg.Pools), core.ErrUnauthorized)
	}

	admin := cfg.Roles.Admins[0]
	for _, listing := range cfg.Pools {
		vault := liquidity.New(listing.AssetID, listing.Precision)
		if err := m.ListPool(ctx, admin, listing, vault); err != nil {
			return fmt.Errorf("list pool %s: %w", listing.AssetID, err)
		}
	}

	return nil
}
