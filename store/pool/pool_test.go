package pool

import (
	"context"
	"errors"
	"testing"

	"cdplend/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Find(ctx, "btc")
	assert.True(t, errors.Is(err, core.ErrPoolNotFound))
	assert.Error(t, s.Save(ctx, &core.Pool{}))

	p := &core.Pool{AssetID: "btc", TotalDeposit: decimal.NewFromInt(10), Status: core.OperatingStatus{}}
	require.NoError(t, s.Save(ctx, p))
	require.NoError(t, s.Save(ctx, &core.Pool{AssetID: "eth"}))

	p.TotalDeposit = decimal.NewFromInt(20)
	require.NoError(t, p.Status.Set(core.ServiceBorrow, false, true))

	found, err := s.Find(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "10", found.TotalDeposit.String())
	assert.True(t, found.Status.Enabled(core.ServiceBorrow))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "btc", all[0].AssetID)
	assert.Equal(t, "eth", all[1].AssetID)
}
