package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func TestResolve_ObserveProfileForcesNoneAcrossBoard(t *testing.T) {
	spec := &types.IdentitySpec{
		PrincipalID: "p1",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
			types.RiskLow:      types.ApprovalLevelStandard,
			types.RiskCritical: types.ApprovalLevelMandatory,
		},
		GovernanceProfile: types.ProfileObserve,
	}
	resolved := Resolve(spec, nil, nil, types.ActivationContext{Now: time.Now()})
	for _, level := range resolved.EffectiveRiskTolerance {
		assert.Equal(t, types.ApprovalLevelNone, level)
	}
}

func TestResolve_LockedProfileForcesMandatoryAndZeroSpend(t *testing.T) {
	spec := &types.IdentitySpec{
		PrincipalID: "p1",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
			types.RiskLow: types.ApprovalLevelStandard,
		},
		GovernanceProfile: types.ProfileLocked,
	}
	resolved := Resolve(spec, nil, nil, types.ActivationContext{Now: time.Now()})
	assert.Equal(t, types.ApprovalLevelMandatory, resolved.EffectiveRiskTolerance[types.RiskLow])
	require.NotNil(t, resolved.EffectiveSpendLimits.PerAction)
	assert.Equal(t, 0.0, *resolved.EffectiveSpendLimits.PerAction)
}

func TestResolve_RestrictOverlayTakesMoreRestrictive(t *testing.T) {
	spec := &types.IdentitySpec{
		PrincipalID: "p1",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
			types.RiskMedium: types.ApprovalLevelStandard,
		},
		GovernanceProfile: types.ProfileGuarded,
	}
	overlay := &types.RoleOverlay{
		Active:   true,
		Priority: 1,
		Mode:     types.OverlayRestrict,
		Patch: types.OverridePatch{
			RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
				types.RiskMedium: types.ApprovalLevelElevated,
			},
		},
	}
	resolved := Resolve(spec, []*types.RoleOverlay{overlay}, nil, types.ActivationContext{Now: time.Now()})
	assert.Equal(t, types.ApprovalLevelElevated, resolved.EffectiveRiskTolerance[types.RiskMedium])
}

func TestResolve_ExtendOverlayTakesLessRestrictive(t *testing.T) {
	spec := &types.IdentitySpec{
		PrincipalID: "p1",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
			types.RiskMedium: types.ApprovalLevelElevated,
		},
		GovernanceProfile: types.ProfileGuarded,
	}
	overlay := &types.RoleOverlay{
		Active:   true,
		Priority: 1,
		Mode:     types.OverlayExtend,
		Patch: types.OverridePatch{
			RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
				types.RiskMedium: types.ApprovalLevelStandard,
			},
		},
	}
	resolved := Resolve(spec, []*types.RoleOverlay{overlay}, nil, types.ActivationContext{Now: time.Now()})
	assert.Equal(t, types.ApprovalLevelStandard, resolved.EffectiveRiskTolerance[types.RiskMedium])
}

func TestResolve_InactiveOverlayIsIgnored(t *testing.T) {
	spec := &types.IdentitySpec{
		PrincipalID:   "p1",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{types.RiskLow: types.ApprovalLevelStandard},
	}
	overlay := &types.RoleOverlay{Active: false, Mode: types.OverlayRestrict}
	resolved := Resolve(spec, []*types.RoleOverlay{overlay}, nil, types.ActivationContext{Now: time.Now()})
	assert.Empty(t, resolved.ActiveOverlays)
}

func TestResolve_CompetenceShouldDenyPromotesToForbidden(t *testing.T) {
	spec := &types.IdentitySpec{PrincipalID: "p1", TrustBehaviors: []string{"ads.campaign.pause"}}
	adjustments := []types.CompetenceAdjustment{
		{PrincipalID: "p1", ActionType: "ads.campaign.pause", ShouldDeny: true},
	}
	resolved := Resolve(spec, nil, adjustments, types.ActivationContext{Now: time.Now()})
	assert.Contains(t, resolved.EffectiveForbiddenBehaviors, "ads.campaign.pause")
	assert.NotContains(t, resolved.EffectiveTrustBehaviors, "ads.campaign.pause")
}
