package rest

import (
	"context"
	"fmt"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cdplend/core"
	"cdplend/handler/views"
	"cdplend/service/health"
	"cdplend/service/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	cdps map[uint64]*core.CDP
}

func (m *fakeMarket) Config() core.MarketConfig {
	return core.MarketConfig{MaxCDPPosition: 10}
}

func (m *fakeMarket) Status() core.OperatingStatus {
	return core.OperatingStatus{}
}

func (m *fakeMarket) Stats(ctx context.Context) (*core.MarketStats, error) {
	return &core.MarketStats{
		Pools:    []*core.PoolStats{{AssetID: "usd", Price: decimal.NewFromInt(1)}},
		CDPCount: len(m.cdps),
	}, nil
}

func (m *fakeMarket) ListLiquidatable(ctx context.Context) ([]*market.LiquidatableCDP, error) {
	return []*market.LiquidatableCDP{{
		CDP:    m.cdps[1],
		Health: &health.Health{LTV: decimal.NewFromFloat(1.5)},
	}}, nil
}

func (m *fakeMarket) CDP(ctx context.Context, id uint64) (*core.CDP, error) {
	c, ok := m.cdps[id]
	if !ok {
		return nil, core.ErrCDPNotFound
	}

	return c, nil
}

func (m *fakeMarket) Health(ctx context.Context, id uint64) (*health.Health, error) {
	return &health.Health{CDPs: []uint64{id}, LTV: decimal.NewFromFloat(0.5)}, nil
}

type fakeEvents struct {
	events []*core.Event
}

func (s *fakeEvents) Create(ctx context.Context, events []*core.Event) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *fakeEvents) ListByCDP(ctx context.Context, cdpID uint64, fromID int64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, e := range s.events {
		if e.CDPID == cdpID && e.ID > fromID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEvents) List(ctx context.Context, fromID int64, limit int) ([]*core.Event, error) {
	var out []*core.Event
	for _, e := range s.events {
		if e.ID > fromID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEvents) FindByTrace(ctx context.Context, traceID string) (*core.Event, error) {
	for _, e := range s.events {
		if e.TraceID == traceID {
			return e, nil
		}
	}
	return nil, core.ErrEventNotFound
}

func serve(t *testing.T, h http.Handler, path string, status int, v interface{}) {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, status, w.Code, w.Body.String())

	if v != nil {
		require.NoError(t, json.NewDecoder(w.Body).Decode(v))
	}
}

func TestHandle(t *testing.T) {
	m := &fakeMarket{cdps: map[uint64]*core.CDP{
		1: {ID: 1, Owner: "alice"},
	}}

	events := &fakeEvents{}
	for i := int64(1); i <= 3; i++ {
		e := &core.Event{ID: i, TraceID: fmt.Sprintf("trace-%d", i), CDPID: 1, Type: core.EventBorrow}
		e.SetData(map[string]string{"asset_id": "usd"})
		events.events = append(events.events, e)
	}

	h := Handle(m, events)

	t.Run("market", func(t *testing.T) {
		var body struct {
			CDPCount int               `json:"cdp_count"`
			Config   core.MarketConfig `json:"config"`
		}
		serve(t, h, "/market", http.StatusOK, &body)
		assert.Equal(t, 1, body.CDPCount)
		assert.Equal(t, 10, body.Config.MaxCDPPosition)
	})

	t.Run("pool", func(t *testing.T) {
		var pool core.PoolStats
		serve(t, h, "/pools/usd", http.StatusOK, &pool)
		assert.Equal(t, "usd", pool.AssetID)

		serve(t, h, "/pools/btc", http.StatusNotFound, nil)
	})

	t.Run("cdp", func(t *testing.T) {
		var body struct {
			ID     uint64         `json:"id"`
			Owner  string         `json:"owner"`
			Health *health.Health `json:"health"`
		}
		serve(t, h, "/cdps/1", http.StatusOK, &body)
		assert.Equal(t, "alice", body.Owner)
		assert.Equal(t, []uint64{1}, body.Health.CDPs)

		serve(t, h, "/cdps/2", http.StatusNotFound, nil)
		serve(t, h, "/cdps/abc", http.StatusBadRequest, nil)
	})

	t.Run("liquidatable", func(t *testing.T) {
		var body []json.RawMessage
		serve(t, h, "/cdps/liquidatable", http.StatusOK, &body)
		assert.Len(t, body, 1)
	})

	t.Run("events", func(t *testing.T) {
		var page views.Events
		serve(t, h, "/events?limit=2", http.StatusOK, &page)
		require.Len(t, page.Events, 2)
		assert.EqualValues(t, 2, page.NextID)
		assert.JSONEq(t, `{"asset_id":"usd"}`, string(page.Events[0].Data))

		page = views.Events{}
		serve(t, h, "/cdps/1/events?from=2", http.StatusOK, &page)
		require.Len(t, page.Events, 1)
		assert.EqualValues(t, 3, page.Events[0].ID)
		assert.Zero(t, page.NextID)

		var e views.Event
		serve(t, h, "/events/trace-2", http.StatusOK, &e)
		assert.EqualValues(t, 2, e.ID)

		serve(t, h, "/events/missing", http.StatusNotFound, nil)
		serve(t, h, "/events?limit=abc", http.StatusBadRequest, nil)
	})
}
