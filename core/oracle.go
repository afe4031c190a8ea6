package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Price oracle quote
type Price struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// IPriceOracle price source, ok is false when the oracle has no price for the asset
type IPriceOracle interface {
	GetPrice(ctx context.Context, assetID string) (price *Price, ok bool, err error)
}
