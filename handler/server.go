package handler

import (
	"net/http"

	"cdplend/core"
	"cdplend/handler/hc"
	"cdplend/handler/rest"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
)

// Server server
type Server struct {
	version string
	market  rest.Market
	events  core.IEventStore
	metrics http.Handler
}

// New new server function, metrics may be nil
func New(
	version string,
	market rest.Market,
	events core.IEventStore,
	metrics http.Handler,
) Server {
	return Server{
		version: version,
		market:  market,
		events:  events,
		metrics: metrics,
	}
}

// Handler root handler with hc, rest api and metrics mounted
func (s Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(logger.WithRequestID)
	mux.Use(middleware.Logger)
	mux.Use(middleware.NewCompressor(5).Handler)

	mux.Mount("/hc", hc.Handle(s.version, s.market.Status))
	mux.Mount("/api", s.HandleRestAPI())

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	return mux
}

// HandleRestAPI handle restful apis
func (s Server) HandleRestAPI() http.Handler {
	return rest.Handle(s.market, s.events)
}
