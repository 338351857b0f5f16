package identity

import "github.com/Mindburn-Labs/actiongov/pkg/types"

// Resolve computes a ResolvedIdentity from a base spec, its candidate
// overlays, and any competence adjustments relevant to this evaluation.
// Overlays are filtered to the ones active for ctx and merged in priority
// order on top of the governance-profile baseline.
func Resolve(spec *types.IdentitySpec, candidates []*types.RoleOverlay, adjustments []types.CompetenceAdjustment, ctx types.ActivationContext) types.ResolvedIdentity {
	baseMatrix, baseLimits := ApplyGovernanceProfile(spec.GovernanceProfile, spec.RiskTolerance, spec.SpendLimits)

	state := types.ResolvedIdentity{
		PrincipalID:                 spec.PrincipalID,
		EffectiveRiskTolerance:      cloneMatrix(baseMatrix),
		EffectiveSpendLimits:        baseLimits,
		EffectiveForbiddenBehaviors: append([]string{}, spec.ForbiddenBehaviors...),
		EffectiveTrustBehaviors:     append([]string{}, spec.TrustBehaviors...),
		ActiveGovernanceProfile:     spec.GovernanceProfile,
		DelegatedApprovers:          append([]string{}, spec.DelegatedApprovers...),
	}

	for _, overlay := range FilterActiveOverlays(candidates, ctx) {
		MergeOverlay(&state, overlay)
	}

	applyCompetence(&state, adjustments)

	return state
}

// applyCompetence folds competence adjustments into the effective trust and
// forbidden sets: a trusted (principal, actionType) pair is added to
// effective trust behaviors; a chronically-failing one is removed from
// trust and, if shouldDeny, promoted into effective forbidden behaviors.
func applyCompetence(state *types.ResolvedIdentity, adjustments []types.CompetenceAdjustment) {
	for _, adj := range adjustments {
		switch {
		case adj.ShouldTrust:
			if !contains(state.EffectiveTrustBehaviors, adj.ActionType) {
				state.EffectiveTrustBehaviors = append(state.EffectiveTrustBehaviors, adj.ActionType)
			}
		case adj.ShouldDeny:
			state.EffectiveTrustBehaviors = removeAll(state.EffectiveTrustBehaviors, []string{adj.ActionType})
			if !contains(state.EffectiveForbiddenBehaviors, adj.ActionType) {
				state.EffectiveForbiddenBehaviors = append(state.EffectiveForbiddenBehaviors, adj.ActionType)
			}
		}
	}
}

func cloneMatrix(m map[types.RiskCategory]types.ApprovalLevel) map[types.RiskCategory]types.ApprovalLevel {
	out := make(map[types.RiskCategory]types.ApprovalLevel, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
