package rest

import (
	"context"
	"errors"
	"net/http"

	"cdplend/core"
	"cdplend/handler/render"
	"cdplend/service/health"
	"cdplend/service/market"

	"github.com/go-chi/chi"
)

// Market read side of the market served over rest
type Market interface {
	Config() core.MarketConfig
	Status() core.OperatingStatus
	Stats(ctx context.Context) (*core.MarketStats, error)
	ListLiquidatable(ctx context.Context) ([]*market.LiquidatableCDP, error)
	CDP(ctx context.Context, id uint64) (*core.CDP, error)
	Health(ctx context.Context, id uint64) (*health.Health, error)
}

// Handle handle rest api request
func Handle(m Market, events core.IEventStore) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/market", marketHandler(m))
	router.Get("/pools", poolsHandler(m))
	router.Get("/pools/{asset}", poolHandler(m))
	router.Get("/cdps/liquidatable", liquidatableHandler(m))
	router.Get("/cdps/{id}", cdpHandler(m))
	router.Get("/cdps/{id}/events", cdpEventsHandler(events))
	router.Get("/events", eventsHandler(events))
	router.Get("/events/{trace}", eventHandler(events))

	return router
}
