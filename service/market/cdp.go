package market

import (
	"context"
	"fmt"

	"cdplend/core"
	"cdplend/pkg/lending"
	"cdplend/service/position"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

func validateMeta(meta core.CDPMeta) error {
	if _, err := govalidator.ValidateStruct(meta); err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrInvalidMetadata)
	}
	return nil
}

func validateDelegateeCaps(maxLoanValue, maxLoanValueRatio decimal.NullDecimal) error {
	if maxLoanValue.Valid && maxLoanValue.Decimal.IsNegative() {
		return fmt.Errorf("max loan value %s: %w", maxLoanValue.Decimal, core.ErrInvalidAmount)
	}

	if maxLoanValueRatio.Valid && !lending.InUnitRange(maxLoanValueRatio.Decimal) {
		return fmt.Errorf("max loan value ratio %s: %w", maxLoanValueRatio.Decimal, core.ErrInvalidRate)
	}

	return nil
}

// CreateCDP open a cdp for actor. Deposits carrying Unit are locked as is,
// deposits carrying Amount are contributed to their pool first.
func (s *Session) CreateCDP(ctx context.Context, actor string, meta core.CDPMeta, deposits []core.Bucket) (uint64, error) {
	if actor == "" {
		return 0, fmt.Errorf("empty owner: %w", core.ErrInvalidArgument)
	}

	if err := validateMeta(meta); err != nil {
		return 0, err
	}

	pos := s.newCDP(actor, meta)
	s.emit(core.EventCreateCDP, pos.ID(), actor, "", meta)

	if len(deposits) > 0 {
		if err := s.addCollateral(ctx, actor, pos, deposits); err != nil {
			return 0, err
		}
	}

	if err := s.save(ctx, pos); err != nil {
		return 0, err
	}

	return pos.ID(), nil
}

// UpdateMeta replace the metadata of a cdp
func (s *Session) UpdateMeta(ctx context.Context, actor string, id uint64, meta core.CDPMeta) error {
	pos, err := s.Position(ctx, id)
	if err != nil {
		return err
	}

	if err := requireOwner(actor, pos); err != nil {
		return err
	}

	if err := validateMeta(meta); err != nil {
		return err
	}

	pos.SetMeta(meta)
	if err := s.save(ctx, pos); err != nil {
		return err
	}

	s.emit(core.EventUpdateMeta, id, actor, "", meta)
	return nil
}

type delegationData struct {
	Delegator         uint64              `json:"delegator"`
	Delegatee         uint64              `json:"delegatee"`
	MaxLoanValue      decimal.NullDecimal `json:"max_loan_value"`
	MaxLoanValueRatio decimal.NullDecimal `json:"max_loan_value_ratio"`
}

func (s *Session) checkDelegator(delegator *position.Position) error {
	if !s.config.DelegationEnabled {
		return core.ErrDelegationDisabled
	}

	if delegator.Type() == core.CDPTypeDelegatee {
		return fmt.Errorf("cdp %d is a delegatee and can not delegate: %w", delegator.ID(), core.ErrInvalidDelegation)
	}

	if limit := s.config.MaxDelegateeCount; limit > 0 && delegator.CDP().Delegator != nil && delegator.CDP().Delegator.Count >= limit {
		return fmt.Errorf("cdp %d already has %d delegatees: %w", delegator.ID(), limit, core.ErrInvalidDelegation)
	}

	return nil
}

// CreateDelegatee open a cdp borrowing against delegatorID's collateral
func (s *Session) CreateDelegatee(ctx context.Context, actor string, delegatorID uint64, meta core.CDPMeta, maxLoanValue, maxLoanValueRatio decimal.NullDecimal) (uint64, error) {
	if err := validateDelegateeCaps(maxLoanValue, maxLoanValueRatio); err != nil {
		return 0, err
	}

	if err := validateMeta(meta); err != nil {
		return 0, err
	}

	delegator, err := s.Position(ctx, delegatorID)
	if err != nil {
		return 0, err
	}

	if err := requireOwner(actor, delegator); err != nil {
		return 0, err
	}

	if err := s.checkDelegator(delegator); err != nil {
		return 0, err
	}

	delegatee := s.newCDP(actor, meta)
	delegatee.SetDelegatee(&core.DelegateeInfo{
		Delegator:         delegatorID,
		MaxLoanValue:      maxLoanValue,
		MaxLoanValueRatio: maxLoanValueRatio,
	})
	delegator.AddDelegatee(delegatee.ID())

	if err := s.save(ctx, delegator, delegatee); err != nil {
		return 0, err
	}

	if err := s.checkSolvent(ctx, delegatorID); err != nil {
		return 0, err
	}

	s.emit(core.EventCreateCDP, delegatee.ID(), actor, "", meta)
	s.emit(core.EventLinkDelegatee, delegatorID, actor, "", delegationData{
		Delegator:         delegatorID,
		Delegatee:         delegatee.ID(),
		MaxLoanValue:      maxLoanValue,
		MaxLoanValueRatio: maxLoanValueRatio,
	})

	return delegatee.ID(), nil
}

// LinkDelegatee make an existing standard cdp a delegatee of delegatorID
func (s *Session) LinkDelegatee(ctx context.Context, actor string, delegatorID, delegateeID uint64, maxLoanValue, maxLoanValueRatio decimal.NullDecimal) error {
	if delegatorID == delegateeID {
		return fmt.Errorf("cdp %d can not delegate to itself: %w", delegatorID, core.ErrInvalidDelegation)
	}

	if err := validateDelegateeCaps(maxLoanValue, maxLoanValueRatio); err != nil {
		return err
	}

	delegator, err := s.Position(ctx, delegatorID)
	if err != nil {
		return err
	}

	delegatee, err := s.Position(ctx, delegateeID)
	if err != nil {
		return err
	}

	if err := requireOwner(actor, delegator); err != nil {
		return err
	}

	if err := requireOwner(actor, delegatee); err != nil {
		return err
	}

	if err := s.checkDelegator(delegator); err != nil {
		return err
	}

	if delegatee.Type() != core.CDPTypeStandard {
		return fmt.Errorf("cdp %d is a %s: %w", delegateeID, delegatee.Type(), core.ErrInvalidDelegation)
	}

	delegatee.SetDelegatee(&core.DelegateeInfo{
		Delegator:         delegatorID,
		MaxLoanValue:      maxLoanValue,
		MaxLoanValueRatio: maxLoanValueRatio,
	})
	delegator.AddDelegatee(delegateeID)

	if err := s.save(ctx, delegator, delegatee); err != nil {
		return err
	}

	if err := s.checkSolvent(ctx, delegateeID); err != nil {
		return err
	}

	s.emit(core.EventLinkDelegatee, delegatorID, actor, "", delegationData{
		Delegator:         delegatorID,
		Delegatee:         delegateeID,
		MaxLoanValue:      maxLoanValue,
		MaxLoanValueRatio: maxLoanValueRatio,
	})

	return nil
}

// UnlinkDelegatee detach a delegatee, both sides must stay solvent on their own
func (s *Session) UnlinkDelegatee(ctx context.Context, actor string, delegatorID, delegateeID uint64) error {
	if !s.config.DelegationEnabled {
		return core.ErrDelegationDisabled
	}

	delegator, err := s.Position(ctx, delegatorID)
	if err != nil {
		return err
	}

	delegatee, err := s.Position(ctx, delegateeID)
	if err != nil {
		return err
	}

	if err := requireOwner(actor, delegator); err != nil {
		return err
	}

	if err := requireOwner(actor, delegatee); err != nil {
		return err
	}

	info := delegatee.CDP().Delegatee
	if delegatee.Type() != core.CDPTypeDelegatee || info == nil || info.Delegator != delegatorID {
		return fmt.Errorf("cdp %d is not a delegatee of %d: %w", delegateeID, delegatorID, core.ErrInvalidDelegation)
	}

	if !delegator.RemoveDelegatee(delegateeID) {
		return fmt.Errorf("cdp %d does not list %d: %w", delegatorID, delegateeID, core.ErrInvalidDelegation)
	}
	delegatee.ClearDelegatee()

	if err := s.save(ctx, delegator, delegatee); err != nil {
		return err
	}

	if err := s.checkSolvent(ctx, delegatorID); err != nil {
		return err
	}

	if err := s.checkSolvent(ctx, delegateeID); err != nil {
		return err
	}

	s.emit(core.EventUnlinkDelegatee, delegatorID, actor, "", delegationData{
		Delegator: delegatorID,
		Delegatee: delegateeID,
	})

	return nil
}
