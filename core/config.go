package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config cdplend config
type Config struct {
	App    App            `json:"app"`
	DB     db.Config      `json:"db"`
	Server Server         `json:"server"`
	Oracle OracleConfig   `json:"oracle"`
	Market MarketConfig   `json:"market"`
	Pools  []PoolListing  `json:"pools"`
	Roles  Roles          `json:"roles"`
	Worker WorkerSchedule `json:"worker"`
}

// App app config
type App struct {
	Location string `json:"location"`
	// asset priced at 1 without asking the oracle
	BaseAssetID string `json:"base_asset_id"`
}

// Server http server config
type Server struct {
	Addr string `json:"addr"`
}

// OracleConfig http price oracle config
type OracleConfig struct {
	EndPoint string `json:"end_point"`
	// seconds a fetched price stays cached
	CacheTTL int64 `json:"cache_ttl"`
	// request timeout in seconds
	Timeout int64 `json:"timeout"`
}

// PoolListing pool listed at start up
type PoolListing struct {
	AssetID   string               `json:"asset_id"`
	AssetType string               `json:"asset_type"`
	PriceFeed string               `json:"price_feed"`
	Precision int32                `json:"precision"`
	Config    PoolConfig           `json:"config"`
	Threshold LiquidationThreshold `json:"threshold"`
	Strategy  InterestStrategy     `json:"strategy"`
}

// WorkerSchedule cron specs of the background workers, empty disables a worker
type WorkerSchedule struct {
	Refresh string `json:"refresh"`
	Reserve string `json:"reserve"`
	// identity the reserve worker sweeps as
	ReserveCollector string `json:"reserve_collector"`
}
