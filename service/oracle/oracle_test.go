package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cdplend/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/prices/btc":
			_, _ = w.Write([]byte(`{"timestamp":1600000000,"price":"20000.5"}`))
		case "/prices/zero":
			_, _ = w.Write([]byte(`{"price":"1"}`))
		case "/prices/down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestHTTPOracle(t *testing.T) {
	ctx := context.Background()
	var hits int32
	srv := newTestServer(&hits)
	defer srv.Close()

	o := New(core.OracleConfig{EndPoint: srv.URL, Timeout: 5})

	price, ok, err := o.GetPrice(ctx, "btc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "20000.5", price.Price.String())
	assert.Equal(t, int64(1600000000), price.Timestamp.Unix())

	_, ok, err = o.GetPrice(ctx, "eth")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = o.GetPrice(ctx, "zero")
	assert.True(t, errors.Is(err, core.ErrInvalidPrice), err)

	_, _, err = o.GetPrice(ctx, "down")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	var hits int32
	srv := newTestServer(&hits)
	defer srv.Close()

	o := Cache(New(core.OracleConfig{EndPoint: srv.URL}), time.Minute)

	for i := 0; i < 3; i++ {
		price, ok, err := o.GetPrice(ctx, "btc")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "20000.5", price.Price.String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	for i := 0; i < 2; i++ {
		_, ok, err := o.GetPrice(ctx, "eth")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
