package market

import (
	"context"
	"fmt"

	"cdplend/core"
	"cdplend/service/health"
	"cdplend/service/position"
)

func requireOwner(actor string, p *position.Position) error {
	if actor == "" || p.Owner() != actor {
		return fmt.Errorf("%s does not own cdp %d: %w", actor, p.ID(), core.ErrUnauthorized)
	}
	return nil
}

func (s *Session) requireAdmin(actor string) error {
	if !s.m.roles.IsAdmin(actor) {
		return fmt.Errorf("%s is not admin: %w", actor, core.ErrUnauthorized)
	}
	return nil
}

// gate check the market and then each pool lets service run
func (s *Session) gate(service core.Service, pools ...*core.Pool) error {
	if err := s.status.Check(service); err != nil {
		return err
	}

	for _, p := range pools {
		if err := p.Status.Check(service); err != nil {
			return fmt.Errorf("pool %s: %w", p.AssetID, err)
		}
	}

	return nil
}

// group cdps whose collateral and loans are evaluated together with c:
// a delegator with all its delegatees
func (s *Session) group(ctx context.Context, c *core.CDP) ([]*core.CDP, error) {
	root := c
	if c.Type == core.CDPTypeDelegatee && c.Delegatee != nil {
		delegator, err := s.findCDP(ctx, c.Delegatee.Delegator)
		if err != nil {
			return nil, err
		}
		root = delegator
	}

	cdps := []*core.CDP{root}
	if root.Delegator != nil {
		for _, id := range root.Delegator.Delegatees {
			d, err := s.findCDP(ctx, id)
			if err != nil {
				return nil, err
			}
			cdps = append(cdps, d)
		}
	}

	return cdps, nil
}

// Health valuation of the group cdp id belongs to
func (s *Session) Health(ctx context.Context, id uint64) (*health.Health, error) {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.groupHealth(ctx, c)
}

func (s *Session) groupHealth(ctx context.Context, c *core.CDP) (*health.Health, error) {
	cdps, err := s.group(ctx, c)
	if err != nil {
		return nil, err
	}

	return health.Evaluate(ctx, s, cdps...)
}

// checkSolvent fails when the group of cdp id ends insolvent, delegatee caps included
func (s *Session) checkSolvent(ctx context.Context, id uint64) error {
	c, err := s.findCDP(ctx, id)
	if err != nil {
		return err
	}

	h, err := s.groupHealth(ctx, c)
	if err != nil {
		return err
	}

	if err := h.CheckCDP(); err != nil {
		return err
	}

	if c.Type == core.CDPTypeDelegatee && c.Delegatee != nil {
		return s.checkDelegateeCaps(ctx, c)
	}

	return nil
}

func (s *Session) checkDelegateeCaps(ctx context.Context, c *core.CDP) error {
	info := c.Delegatee
	if !info.MaxLoanValue.Valid && !info.MaxLoanValueRatio.Valid {
		return nil
	}

	own, err := health.Evaluate(ctx, s, c)
	if err != nil {
		return err
	}

	if info.MaxLoanValue.Valid && own.LoanValue.GreaterThan(info.MaxLoanValue.Decimal) {
		return fmt.Errorf("cdp %d loan value %s above %s: %w", c.ID, own.LoanValue, info.MaxLoanValue.Decimal, core.ErrDelegateeLimitExceeded)
	}

	if info.MaxLoanValueRatio.Valid {
		delegator, err := s.findCDP(ctx, info.Delegator)
		if err != nil {
			return err
		}

		backing, err := health.Evaluate(ctx, s, delegator)
		if err != nil {
			return err
		}

		limit := backing.CollateralValue.Mul(info.MaxLoanValueRatio.Decimal)
		if own.LoanValue.GreaterThan(limit) {
			return fmt.Errorf("cdp %d loan value %s above %s: %w", c.ID, own.LoanValue, limit, core.ErrDelegateeLimitExceeded)
		}
	}

	return nil
}
