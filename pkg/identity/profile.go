// Package identity resolves an IdentitySpec plus its candidate overlays and
// competence adjustments into a ResolvedIdentity for one evaluation.
package identity

import "github.com/Mindburn-Labs/actiongov/pkg/types"

// ApplyGovernanceProfile returns the risk-tolerance matrix and spend limits
// a governance profile forces as a baseline, before any overlay merge runs.
// guarded leaves the spec's matrix untouched (it names the default, it
// doesn't change it).
func ApplyGovernanceProfile(profile types.GovernanceProfile, matrix map[types.RiskCategory]types.ApprovalLevel, limits types.SpendLimits) (map[types.RiskCategory]types.ApprovalLevel, types.SpendLimits) {
	switch profile {
	case types.ProfileObserve:
		forced := map[types.RiskCategory]types.ApprovalLevel{}
		for cat := range matrix {
			forced[cat] = types.ApprovalLevelNone
		}
		return forced, limits
	case types.ProfileStrict:
		raised := map[types.RiskCategory]types.ApprovalLevel{}
		for cat, level := range matrix {
			raised[cat] = raiseOneLevel(level)
		}
		return raised, tightenLimits(limits, 0.5)
	case types.ProfileLocked:
		locked := map[types.RiskCategory]types.ApprovalLevel{}
		for cat := range matrix {
			locked[cat] = types.ApprovalLevelMandatory
		}
		zero := 0.0
		return locked, types.SpendLimits{PerAction: &zero}
	case types.ProfileGuarded:
		fallthrough
	default:
		return matrix, limits
	}
}

func raiseOneLevel(l types.ApprovalLevel) types.ApprovalLevel {
	switch l {
	case types.ApprovalLevelNone:
		return types.ApprovalLevelStandard
	case types.ApprovalLevelStandard:
		return types.ApprovalLevelElevated
	case types.ApprovalLevelElevated, types.ApprovalLevelMandatory:
		return types.ApprovalLevelMandatory
	default:
		return l
	}
}

func tightenLimits(limits types.SpendLimits, factor float64) types.SpendLimits {
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		scaled := *v * factor
		return &scaled
	}
	return types.SpendLimits{
		PerAction: scale(limits.PerAction),
		Daily:     scale(limits.Daily),
		Weekly:    scale(limits.Weekly),
		Monthly:   scale(limits.Monthly),
	}
}
