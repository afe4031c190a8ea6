package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// FlashloanTerm one asset borrowed in a batch flash loan
type FlashloanTerm struct {
	AssetID  string          `json:"asset_id"`
	Loan     decimal.Decimal `json:"loan"`
	Fee      decimal.Decimal `json:"fee"`
	Paid     decimal.Decimal `json:"paid"`
	PaidBack bool            `json:"paid_back"`
}

// Due amount still owed on the term
func (t *FlashloanTerm) Due() decimal.Decimal {
	due := t.Loan.Add(t.Fee).Sub(t.Paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// FlashloanReceipt open batch flash loan obligation
type FlashloanReceipt struct {
	ID    uuid.UUID        `json:"id"`
	Terms []*FlashloanTerm `json:"terms"`
}

// Term find the term of asset
func (r *FlashloanReceipt) Term(assetID string) (*FlashloanTerm, bool) {
	for _, t := range r.Terms {
		if t.AssetID == assetID {
			return t, true
		}
	}
	return nil, false
}

// LiquidationReceipt open liquidation obligation
type LiquidationReceipt struct {
	ID    uuid.UUID `json:"id"`
	CDPID uint64    `json:"cdp_id"`
	// loan value the liquidator must repay
	ExpectedValue decimal.Decimal `json:"expected_value"`
}

// NewReceiptID random receipt id
func NewReceiptID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}
