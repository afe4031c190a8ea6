package config

import (
	"os"
	"path/filepath"
	"testing"

	"cdplend/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  addr: ":8080"
oracle:
  end_point: "http://localhost:9999"
roles:
  admins:
    - admin
pools:
  - asset_id: usd
    asset_type: stable
    precision: 8
worker:
  refresh: "@every 1m"
`

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	var cfg core.Config
	require.NoError(t, Load(file, &cfg))

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:9999", cfg.Oracle.EndPoint)
	assert.EqualValues(t, defaultOracleTimeout, cfg.Oracle.Timeout)
	assert.EqualValues(t, defaultOracleTTL, cfg.Oracle.CacheTTL)
	assert.Equal(t, defaultLocation, cfg.App.Location)
	assert.Equal(t, []string{"admin"}, cfg.Roles.Admins)

	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "usd", cfg.Pools[0].AssetID)
	assert.EqualValues(t, 8, cfg.Pools[0].Precision)
	assert.Equal(t, "@every 1m", cfg.Worker.Refresh)
}
