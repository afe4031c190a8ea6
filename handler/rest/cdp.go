package rest

import (
	"fmt"
	"net/http"

	"cdplend/core"
	"cdplend/handler/render"
	"cdplend/handler/views"

	"github.com/go-chi/chi"
	"github.com/spf13/cast"
)

func cdpID(r *http.Request) (uint64, error) {
	id, err := cast.ToUint64E(chi.URLParam(r, "id"))
	if err != nil || id == 0 {
		return 0, fmt.Errorf("cdp id %q: %w", chi.URLParam(r, "id"), core.ErrInvalidArgument)
	}

	return id, nil
}

func cdpHandler(m Market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := cdpID(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		c, err := m.CDP(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		h, err := m.Health(ctx, id)
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.CDP{CDP: c, Health: h})
	}
}

func liquidatableHandler(m Market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cdps, err := m.ListLiquidatable(r.Context())
		if err != nil {
			render.Error(w, err)
			return
		}

		out := make([]views.CDP, 0, len(cdps))
		for _, c := range cdps {
			out = append(out, views.CDP{CDP: c.CDP, Health: c.Health})
		}

		render.JSON(w, out)
	}
}
