package hc

import (
	"net/http"
	"time"

	"cdplend/core"
	"cdplend/handler/render"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// StatusFunc current market operating status
type StatusFunc func() core.OperatingStatus

// Handle handle hc request
func Handle(ver string, status StatusFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/", handle(ver, status))
	return r
}

func handle(version string, status StatusFunc) http.HandlerFunc {
	b := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		disabled := []core.Service{}
		if status != nil {
			s := status()
			for _, svc := range core.AllServices {
				if s.Check(svc) != nil {
					disabled = append(disabled, svc)
				}
			}
		}

		uptime := time.Since(b).Truncate(time.Millisecond)
		render.JSON(w, render.H{
			"uptime":            uptime.String(),
			"version":           version,
			"disabled_services": disabled,
		})
	}
}
