package rest

import (
	"fmt"
	"net/http"

	"cdplend/core"
	"cdplend/handler/render"
	"cdplend/handler/views"

	"github.com/go-chi/chi"
)

func marketHandler(m Market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := m.Stats(r.Context())
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.Market{
			MarketStats: stats,
			Config:      m.Config(),
			Status:      m.Status(),
		})
	}
}

func poolsHandler(m Market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := m.Stats(r.Context())
		if err != nil {
			render.Error(w, err)
			return
		}

		pools := stats.Pools
		if pools == nil {
			pools = []*core.PoolStats{}
		}

		render.JSON(w, pools)
	}
}

func poolHandler(m Market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset := chi.URLParam(r, "asset")

		stats, err := m.Stats(r.Context())
		if err != nil {
			render.Error(w, err)
			return
		}

		for _, p := range stats.Pools {
			if p.AssetID == asset {
				render.JSON(w, p)
				return
			}
		}

		render.Error(w, fmt.Errorf("pool %s: %w", asset, core.ErrPoolNotFound))
	}
}
