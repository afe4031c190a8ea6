package rest

import (
	"fmt"
	"net/http"

	"cdplend/core"
	"cdplend/handler/render"
	"cdplend/handler/views"

	"github.com/go-chi/chi"
	"github.com/gorilla/schema"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type pageQuery struct {
	From  int64 `schema:"from"`
	Limit int   `schema:"limit"`
}

func pagination(r *http.Request) (int64, int, error) {
	var q pageQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return 0, 0, fmt.Errorf("%v: %w", err, core.ErrInvalidArgument)
	}

	if q.Limit <= 0 {
		q.Limit = defaultEventLimit
	} else if q.Limit > maxEventLimit {
		q.Limit = maxEventLimit
	}

	return q.From, q.Limit, nil
}

func renderEvents(w http.ResponseWriter, events []*core.Event, limit int) {
	view := views.Events{Events: make([]*views.Event, 0, len(events))}
	for _, e := range events {
		view.Events = append(view.Events, views.NewEvent(e))
	}

	if len(events) == limit {
		view.NextID = events[len(events)-1].ID
	}

	render.JSON(w, view)
}

func eventsHandler(events core.IEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, limit, err := pagination(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		list, err := events.List(r.Context(), from, limit)
		if err != nil {
			render.Error(w, err)
			return
		}

		renderEvents(w, list, limit)
	}
}

func cdpEventsHandler(events core.IEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cdpID(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		from, limit, err := pagination(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		list, err := events.ListByCDP(r.Context(), id, from, limit)
		if err != nil {
			render.Error(w, err)
			return
		}

		renderEvents(w, list, limit)
	}
}

func eventHandler(events core.IEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := events.FindByTrace(r.Context(), chi.URLParam(r, "trace"))
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, views.NewEvent(e))
	}
}
