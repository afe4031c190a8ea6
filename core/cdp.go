package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CDPType position type
type CDPType int

const (
	// CDPTypeStandard borrows against its own collateral
	CDPTypeStandard CDPType = iota
	// CDPTypeDelegator lends its collateral to delegatees
	CDPTypeDelegator
	// CDPTypeDelegatee borrows against its delegator's collateral
	CDPTypeDelegatee
)

func (t CDPType) String() string {
	switch t {
	case CDPTypeDelegator:
		return "delegator"
	case CDPTypeDelegatee:
		return "delegatee"
	default:
		return "standard"
	}
}

// DelegatorInfo delegatees linked to a delegator
type DelegatorInfo struct {
	Delegatees []uint64 `json:"delegatees"`
	Count      int      `json:"count"`
}

// DelegateeInfo link from a delegatee to its delegator with borrowing caps
type DelegateeInfo struct {
	Delegator uint64 `json:"delegator"`
	// absolute loan value cap
	MaxLoanValue decimal.NullDecimal `json:"max_loan_value"`
	// loan value cap as a fraction of the delegator's collateral value
	MaxLoanValueRatio decimal.NullDecimal `json:"max_loan_value_ratio"`
}

// CDPMeta user editable metadata
type CDPMeta struct {
	Name        string `json:"name,omitempty" valid:"stringlength(0|64)"`
	Description string `json:"description,omitempty" valid:"stringlength(0|512)"`
	KeyImageURL string `json:"key_image_url,omitempty" valid:"url,optional"`
}

// CDP collateralized debt position
type CDP struct {
	ID    uint64  `json:"id"`
	Owner string  `json:"owner"`
	Type  CDPType `json:"type"`
	Meta  CDPMeta `json:"meta"`
	// asset -> deposit units
	Collaterals map[string]decimal.Decimal `json:"collaterals"`
	// asset -> loan units
	Loans map[string]decimal.Decimal `json:"loans"`
	// asset -> loan units written off by a full liquidation
	Liquidated         map[string]decimal.Decimal `json:"liquidated"`
	MaxLiquidableValue decimal.NullDecimal        `json:"max_liquidable_value"`
	Delegator          *DelegatorInfo             `json:"delegator,omitempty"`
	Delegatee          *DelegateeInfo             `json:"delegatee,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// HasLoan any loan units outstanding
func (c *CDP) HasLoan() bool {
	for _, units := range c.Loans {
		if units.IsPositive() {
			return true
		}
	}
	return false
}

// PositionCount number of collateral and loan entries
func (c *CDP) PositionCount() int {
	return len(c.Collaterals) + len(c.Loans)
}

// Clone deep copy
func (c *CDP) Clone() *CDP {
	cp := *c
	cp.Collaterals = cloneDecimals(c.Collaterals)
	cp.Loans = cloneDecimals(c.Loans)
	cp.Liquidated = cloneDecimals(c.Liquidated)
	if c.Delegator != nil {
		d := *c.Delegator
		d.Delegatees = append([]uint64(nil), c.Delegator.Delegatees...)
		cp.Delegator = &d
	}
	if c.Delegatee != nil {
		d := *c.Delegatee
		cp.Delegatee = &d
	}
	return &cp
}

// CDPPatch changed fields of a cdp, nil fields are left untouched
type CDPPatch struct {
	Type               *CDPType
	Delegator          **DelegatorInfo
	Delegatee          **DelegateeInfo
	Collaterals        map[string]decimal.Decimal
	Loans              map[string]decimal.Decimal
	Liquidated         map[string]decimal.Decimal
	Meta               *CDPMeta
	MaxLiquidableValue *decimal.NullDecimal
	UpdatedAt          time.Time
}

// Apply write the patched fields into c
func (p *CDPPatch) Apply(c *CDP) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Delegator != nil {
		c.Delegator = *p.Delegator
	}
	if p.Delegatee != nil {
		c.Delegatee = *p.Delegatee
	}
	if p.Collaterals != nil {
		c.Collaterals = cloneDecimals(p.Collaterals)
	}
	if p.Loans != nil {
		c.Loans = cloneDecimals(p.Loans)
	}
	if p.Liquidated != nil {
		c.Liquidated = cloneDecimals(p.Liquidated)
	}
	if p.Meta != nil {
		c.Meta = *p.Meta
	}
	if p.MaxLiquidableValue != nil {
		c.MaxLiquidableValue = *p.MaxLiquidableValue
	}
	if !p.UpdatedAt.IsZero() {
		c.UpdatedAt = p.UpdatedAt
	}
}

// Merge fold a later patch into p
func (p *CDPPatch) Merge(later *CDPPatch) {
	if later.Type != nil {
		p.Type = later.Type
	}
	if later.Delegator != nil {
		p.Delegator = later.Delegator
	}
	if later.Delegatee != nil {
		p.Delegatee = later.Delegatee
	}
	if later.Collaterals != nil {
		p.Collaterals = later.Collaterals
	}
	if later.Loans != nil {
		p.Loans = later.Loans
	}
	if later.Liquidated != nil {
		p.Liquidated = later.Liquidated
	}
	if later.Meta != nil {
		p.Meta = later.Meta
	}
	if later.MaxLiquidableValue != nil {
		p.MaxLiquidableValue = later.MaxLiquidableValue
	}
	if !later.UpdatedAt.IsZero() {
		p.UpdatedAt = later.UpdatedAt
	}
}

// ICDPStore cdp arena
type ICDPStore interface {
	Create(ctx context.Context, cdp *CDP) error
	Find(ctx context.Context, id uint64) (*CDP, error)
	Patch(ctx context.Context, id uint64, patch *CDPPatch) error
	All(ctx context.Context) ([]*CDP, error)
	LastID(ctx context.Context) (uint64, error)
}
