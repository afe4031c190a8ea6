package oracle

import (
	"context"
	"time"

	"cdplend/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

type cacheOracle struct {
	core.IPriceOracle
	cache gcache.Cache
	exp   time.Duration
	sf    *singleflight.Group
}

// Cache keep prices fetched from oracle for exp, a missing price is not cached
func Cache(oracle core.IPriceOracle, exp time.Duration) core.IPriceOracle {
	return &cacheOracle{
		IPriceOracle: oracle,
		cache:        gcache.New(512).LRU().Build(),
		exp:          exp,
		sf:           &singleflight.Group{},
	}
}

type cachedPrice struct {
	price *core.Price
	ok    bool
}

func (o *cacheOracle) GetPrice(ctx context.Context, assetID string) (*core.Price, bool, error) {
	if v, err := o.cache.Get(assetID); err == nil {
		if price, ok := v.(*core.Price); ok {
			return price, true, nil
		}
	}

	v, err, _ := o.sf.Do(assetID, func() (interface{}, error) {
		price, ok, err := o.IPriceOracle.GetPrice(ctx, assetID)
		if err != nil {
			return nil, err
		}

		if ok && o.exp > 0 {
			_ = o.cache.SetWithExpire(assetID, price, o.exp)
		}

		return cachedPrice{price: price, ok: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}

	r := v.(cachedPrice)
	return r.price, r.ok, nil
}
