package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func TestComputeBindingHash_Deterministic(t *testing.T) {
	tuple := BindingTuple{
		EnvelopeID:      "e1",
		EnvelopeVersion: 1,
		ActionID:        "a1",
		Parameters:      map[string]interface{}{"campaignId": "c1"},
	}
	h1, err := ComputeBindingHash(tuple)
	require.NoError(t, err)
	h2, err := ComputeBindingHash(tuple)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	tuple.Parameters["campaignId"] = "c2"
	h3, err := ComputeBindingHash(tuple)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestVerifyBindingHash_RejectsMismatch(t *testing.T) {
	assert.True(t, VerifyBindingHash("abc", "abc"))
	assert.False(t, VerifyBindingHash("abc", "WRONG"))
	assert.False(t, VerifyBindingHash("abc", "ab"))
}

func TestApplyPatch_ShallowOverride(t *testing.T) {
	original := map[string]interface{}{"amount": 100, "campaignId": "c1"}
	patched := ApplyPatch(original, map[string]interface{}{"amount": 50})
	assert.Equal(t, 50, patched["amount"])
	assert.Equal(t, "c1", patched["campaignId"])
	assert.Equal(t, 100, original["amount"], "original must not be mutated")
}

func TestStateMachine_ApproveThenApproveAgainFails(t *testing.T) {
	now := time.Now()
	req := &types.ApprovalRequest{Status: types.ApprovalPending}
	require.NoError(t, Approve(req, "admin", now))
	assert.Equal(t, types.ApprovalApproved, req.Status)

	err := Approve(req, "admin", now)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestStateMachine_IsExpired(t *testing.T) {
	now := time.Now()
	req := &types.ApprovalRequest{Status: types.ApprovalPending, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, IsExpired(req, now))

	req2 := &types.ApprovalRequest{Status: types.ApprovalPending, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, IsExpired(req2, now))
}

func TestRoute_DeniesWhenNoApprovers(t *testing.T) {
	cfg := DefaultRoutingConfig()
	_, _, err := Route(cfg, types.ApprovalLevelStandard, time.Now())
	assert.ErrorIs(t, err, ErrNoEligibleApprovers)
}

func TestRoute_ExpiryByLevel(t *testing.T) {
	cfg := DefaultRoutingConfig()
	cfg.DefaultApprovers = []string{"admin"}
	now := time.Now()

	_, expires, err := Route(cfg, types.ApprovalLevelMandatory, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(4*time.Hour), expires, time.Second)

	_, expires, err = Route(cfg, types.ApprovalLevelElevated, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(12*time.Hour), expires, time.Second)
}

func TestCanApproveWithChain_DirectMatch(t *testing.T) {
	principal := types.Principal{ID: "admin", Roles: []string{"approver"}}
	result := CanApproveWithChain(principal, []string{"admin"}, nil, "ads.campaign.pause", time.Now())
	assert.True(t, result.Authorized)
	assert.Equal(t, 0, result.Depth)
}

func TestCanApproveWithChain_DepthTwoDelegation(t *testing.T) {
	// approvers = [admin]; delegations: admin -> middle, middle -> delegate
	delegations := []types.DelegationRule{
		{GrantorPrincipalID: "admin", GranteePrincipalID: "middle"},
		{GrantorPrincipalID: "middle", GranteePrincipalID: "delegate"},
	}
	principal := types.Principal{ID: "delegate", Roles: []string{"approver"}}
	result := CanApproveWithChain(principal, []string{"admin"}, delegations, "ads.campaign.pause", time.Now())
	require.True(t, result.Authorized)
	assert.Equal(t, 2, result.Depth)
	assert.Equal(t, []string{"delegate", "middle", "admin"}, result.Chain)
}

func TestCanApproveWithChain_ExpiredEdgeNotFollowed(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	delegations := []types.DelegationRule{
		{GrantorPrincipalID: "admin", GranteePrincipalID: "delegate", ExpiresAt: &past},
	}
	principal := types.Principal{ID: "delegate"}
	result := CanApproveWithChain(principal, []string{"admin"}, delegations, "ads.campaign.pause", time.Now())
	assert.False(t, result.Authorized)
}

func TestCanApproveWithChain_ScopeMismatchNotFollowed(t *testing.T) {
	delegations := []types.DelegationRule{
		{GrantorPrincipalID: "admin", GranteePrincipalID: "delegate", Scope: []string{"billing.*"}},
	}
	principal := types.Principal{ID: "delegate"}
	result := CanApproveWithChain(principal, []string{"admin"}, delegations, "ads.campaign.pause", time.Now())
	assert.False(t, result.Authorized)
}
