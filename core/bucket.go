package core

import "github.com/shopspring/decimal"

// Bucket a quantity of one asset moving in or out of the market.
// Amount is in the underlying asset, Unit in the pool's deposit units.
type Bucket struct {
	AssetID string          `json:"asset_id"`
	Amount  decimal.Decimal `json:"amount,omitempty"`
	Unit    decimal.Decimal `json:"unit,omitempty"`
}

// IsEmpty nothing in the bucket
func (b Bucket) IsEmpty() bool {
	return !b.Amount.IsPositive() && !b.Unit.IsPositive()
}

// MergeBuckets sum buckets per asset keeping first appearance order, empty buckets are dropped
func MergeBuckets(buckets []Bucket) []Bucket {
	var (
		merged []Bucket
		index  = map[string]int{}
	)

	for _, b := range buckets {
		if b.IsEmpty() {
			continue
		}

		if idx, ok := index[b.AssetID]; ok {
			merged[idx].Amount = merged[idx].Amount.Add(b.Amount)
			merged[idx].Unit = merged[idx].Unit.Add(b.Unit)
			continue
		}

		index[b.AssetID] = len(merged)
		merged = append(merged, b)
	}

	return merged
}
