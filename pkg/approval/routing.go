package approval

import (
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// RoutingConfig is the approval-routing tunables, loaded from pkg/config.
type RoutingConfig struct {
	DefaultApprovers       []string
	DefaultFallbackApprover string
	DefaultExpiry          time.Duration
	ElevatedExpiry         time.Duration
	MandatoryExpiry        time.Duration
	DefaultExpiredBehavior types.ExpiredBehavior
	DenyWhenNoApprovers    bool
}

// DefaultRoutingConfig reproduces the factory expiry windows: mandatory 4h,
// elevated 12h, standard/none 24h.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		DefaultExpiry:          24 * time.Hour,
		ElevatedExpiry:         12 * time.Hour,
		MandatoryExpiry:        4 * time.Hour,
		DefaultExpiredBehavior: types.ExpiredDeny,
		DenyWhenNoApprovers:    true,
	}
}

// ExpiryFor returns the expiry duration for the given approval level.
func (c RoutingConfig) ExpiryFor(level types.ApprovalLevel) time.Duration {
	switch level {
	case types.ApprovalLevelMandatory:
		return c.MandatoryExpiry
	case types.ApprovalLevelElevated:
		return c.ElevatedExpiry
	default:
		return c.DefaultExpiry
	}
}

// Route computes the eligible approver list and expiry for a new approval
// request. If both the configured approvers and fallback are empty and
// DenyWhenNoApprovers is set, it returns ErrNoEligibleApprovers.
func Route(cfg RoutingConfig, level types.ApprovalLevel, now time.Time) (approvers []string, expiresAt time.Time, err error) {
	approvers = cfg.DefaultApprovers
	if len(approvers) == 0 && cfg.DefaultFallbackApprover != "" {
		approvers = []string{cfg.DefaultFallbackApprover}
	}
	if len(approvers) == 0 && cfg.DenyWhenNoApprovers {
		return nil, time.Time{}, ErrNoEligibleApprovers
	}
	return approvers, now.Add(cfg.ExpiryFor(level)), nil
}
