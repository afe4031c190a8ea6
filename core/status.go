package core

import "fmt"

// Service operation guarded by the operating status gate
type Service string

const (
	// ServiceContribute deposit liquidity
	ServiceContribute Service = "contribute"
	// ServiceRedeem withdraw liquidity
	ServiceRedeem Service = "redeem"
	// ServiceAddCollateral lock collateral into a cdp
	ServiceAddCollateral Service = "add_collateral"
	// ServiceRemoveCollateral unlock collateral from a cdp
	ServiceRemoveCollateral Service = "remove_collateral"
	// ServiceBorrow borrow
	ServiceBorrow Service = "borrow"
	// ServiceRepay repay
	ServiceRepay Service = "repay"
	// ServiceLiquidate liquidate
	ServiceLiquidate Service = "liquidate"
	// ServiceFlashloan flash loan
	ServiceFlashloan Service = "flashloan"
	// ServiceRefinance refinance
	ServiceRefinance Service = "refinance"
)

// AllServices every gated service
var AllServices = []Service{
	ServiceContribute,
	ServiceRedeem,
	ServiceAddCollateral,
	ServiceRemoveCollateral,
	ServiceBorrow,
	ServiceRepay,
	ServiceLiquidate,
	ServiceFlashloan,
	ServiceRefinance,
}

func (s Service) String() string {
	return string(s)
}

// CheckService check service name
func CheckService(service string) bool {
	for _, s := range AllServices {
		if string(s) == service {
			return true
		}
	}

	return false
}

// StatusFlag enable flag of one service
type StatusFlag struct {
	Enabled    bool `json:"enabled"`
	SetByAdmin bool `json:"set_by_admin"`
}

// OperatingStatus per service flags, a missing service is enabled
type OperatingStatus map[Service]StatusFlag

// Check fails with ErrServiceDisabled when service is switched off
func (s OperatingStatus) Check(service Service) error {
	if flag, ok := s[service]; ok && !flag.Enabled {
		return fmt.Errorf("%s: %w", service, ErrServiceDisabled)
	}

	return nil
}

// Enabled service is switched on
func (s OperatingStatus) Enabled(service Service) bool {
	return s.Check(service) == nil
}

// Set switch a service, a flag last set by an admin can only be changed by an admin
func (s OperatingStatus) Set(service Service, enabled, byAdmin bool) error {
	if !CheckService(string(service)) {
		return fmt.Errorf("unknown service %q: %w", service, ErrInvalidArgument)
	}

	if flag, ok := s[service]; ok && flag.SetByAdmin && !byAdmin {
		return fmt.Errorf("%s was set by admin: %w", service, ErrUnauthorized)
	}

	s[service] = StatusFlag{Enabled: enabled, SetByAdmin: byAdmin}
	return nil
}

// Clone copy flags
func (s OperatingStatus) Clone() OperatingStatus {
	c := make(OperatingStatus, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
