package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/approval"
	"github.com/Mindburn-Labs/actiongov/pkg/cartridge"
	"github.com/Mindburn-Labs/actiongov/pkg/competence"
	"github.com/Mindburn-Labs/actiongov/pkg/storage"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// stubCartridge is a small in-memory cartridge used only by these tests:
// "stub.echo" scores as low risk and reversible, "stub.refund" scores as
// medium risk and partially reversible (so it crosses into approval
// territory under the default risk weights).
type stubCartridge struct{}

func (stubCartridge) Descriptor() types.CartridgeDescriptor {
	return types.CartridgeDescriptor{ID: "stub", ActionTypes: []string{"stub.*"}}
}

func (stubCartridge) Initialize(ctx context.Context) error { return nil }

func (stubCartridge) EnrichContext(ctx context.Context, p types.ActionProposal) (map[string]interface{}, error) {
	return nil, nil
}

func (stubCartridge) HealthCheck(ctx context.Context) (types.HealthStatus, error) {
	return types.HealthStatus{Status: "healthy"}, nil
}

func (stubCartridge) GetGuardrails(ctx context.Context) (types.GuardrailSpec, error) {
	return types.GuardrailSpec{}, nil
}

func (stubCartridge) Score(ctx context.Context, p types.ActionProposal) (types.RiskInput, error) {
	if p.ActionType == "stub.refund" {
		return types.RiskInput{BaseRisk: types.RiskMedium, Reversibility: types.ReversibilityPartial}, nil
	}
	return types.RiskInput{BaseRisk: types.RiskLow, Reversibility: types.ReversibilityFull}, nil
}

func (stubCartridge) Execute(ctx context.Context, p types.ActionProposal) (types.ExecuteResult, error) {
	reverseType := "stub.reverse"
	if p.ActionType == "stub.refund" {
		// reversing a refund re-issues the charge, which scores the same
		// medium risk as the original refund under Score above.
		reverseType = "stub.refund"
	}
	return types.ExecuteResult{
		Success: true,
		Summary: "executed " + p.ActionType,
		UndoRecipe: &types.UndoRecipe{
			OriginalActionID:  p.ID,
			ReverseActionType: reverseType,
			UndoExpiresAt:     time.Now().Add(time.Hour),
		},
	}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *storage.MemoryIdentityStore) {
	t.Helper()
	identities := storage.NewMemoryIdentityStore()
	registry := cartridge.NewRegistry()
	registry.Register("stub", stubCartridge{})

	o := New(Deps{
		Cartridges: registry,
		Identities: identities,
		Competence: competence.NewMemoryStore(),
		Routing: approval.RoutingConfig{
			DefaultApprovers: []string{"approver1"},
			DefaultExpiry:    time.Hour,
		},
		ProposalRateLimit: 1000,
	})
	return o, identities
}

func seedPrincipal(t *testing.T, identities *storage.MemoryIdentityStore, id string, tolerance map[types.RiskCategory]types.ApprovalLevel, forbidden []string, roles []string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, identities.SavePrincipal(ctx, &types.Principal{ID: id, Type: types.PrincipalUser, Roles: roles, CreatedAt: now}))
	require.NoError(t, identities.SaveSpec(ctx, &types.IdentitySpec{
		ID:                 "spec-" + id,
		PrincipalID:        id,
		RiskTolerance:      tolerance,
		ForbiddenBehaviors: forbidden,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func TestPropose_LowRiskAllowedWithoutApproval(t *testing.T) {
	o, identities := newTestOrchestrator(t)
	seedPrincipal(t, identities, "p1", map[types.RiskCategory]types.ApprovalLevel{
		types.RiskNone: types.ApprovalLevelNone,
		types.RiskLow:  types.ApprovalLevelNone,
	}, nil, nil)

	result, err := o.Propose(context.Background(), ProposeRequest{
		PrincipalID: "p1",
		Proposals:   []types.ActionProposal{{ActionType: "stub.echo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, result.Envelope.Status)
	assert.Nil(t, result.Approval)
}

func TestPropose_ForbiddenBehaviorIsDenied(t *testing.T) {
	o, identities := newTestOrchestrator(t)
	seedPrincipal(t, identities, "p1", nil, []string{"stub.echo"}, nil)

	result, err := o.Propose(context.Background(), ProposeRequest{
		PrincipalID: "p1",
		Proposals:   []types.ActionProposal{{ActionType: "stub.echo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDenied, result.Envelope.Status)
	assert.Nil(t, result.Approval)
}

func TestLifecycle_ProposeApproveExecuteUndo(t *testing.T) {
	o, identities := newTestOrchestrator(t)
	seedPrincipal(t, identities, "p1", map[types.RiskCategory]types.ApprovalLevel{
		types.RiskMedium: types.ApprovalLevelStandard,
	}, nil, nil)
	seedPrincipal(t, identities, "approver1", nil, nil, []string{"approver"})

	ctx := context.Background()
	result, err := o.Propose(ctx, ProposeRequest{
		PrincipalID: "p1",
		Proposals:   []types.ActionProposal{{ActionType: "stub.refund"}},
	})
	require.NoError(t, err)
	require.Equal(t, types.StatusPendingApproval, result.Envelope.Status)
	require.NotNil(t, result.Approval)
	assert.Contains(t, result.Approval.EligibleApproverIDs, "approver1")

	env, err := o.RespondToApproval(ctx, RespondRequest{
		ApprovalID:          result.Approval.ID,
		ResponderID:         "approver1",
		Decision:            DecisionApprove,
		SuppliedBindingHash: result.Approval.BindingHash,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, env.Status)

	env, err = o.ExecuteApproved(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, env.Status)
	require.Len(t, env.ExecutionResults, 1)
	assert.True(t, env.ExecutionResults[0].Success)

	actionID := env.Proposals[0].ID
	undoResult, err := o.RequestUndo(ctx, env.ID, actionID, "approver1")
	require.NoError(t, err)
	require.NotNil(t, undoResult.Envelope)
	assert.Equal(t, env.ID, undoResult.Envelope.ParentEnvelopeID)
	// stub.refund's reverse re-issues a charge of the same risk category,
	// so it lands pending its own approval rather than sailing through:
	// requestUndo re-entered governance instead of executing directly.
	require.Equal(t, types.StatusPendingApproval, undoResult.Envelope.Status)
	require.NotNil(t, undoResult.Approval)

	undoEnv, err := o.RespondToApproval(ctx, RespondRequest{
		ApprovalID:          undoResult.Approval.ID,
		ResponderID:         "approver1",
		Decision:            DecisionApprove,
		SuppliedBindingHash: undoResult.Approval.BindingHash,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, undoEnv.Status)
}

func TestLifecycle_DelegatedApproverCanRespond(t *testing.T) {
	o, identities := newTestOrchestrator(t)
	seedPrincipal(t, identities, "p1", map[types.RiskCategory]types.ApprovalLevel{
		types.RiskMedium: types.ApprovalLevelStandard,
	}, nil, nil)
	// delegate1 holds no "approver" role and never appears in the routing
	// config's DefaultApprovers; it can only respond by walking the
	// delegation edge below back to approver1, who is eligible.
	seedPrincipal(t, identities, "delegate1", nil, nil, nil)

	ctx := context.Background()
	require.NoError(t, identities.SaveDelegationRule(ctx, &types.DelegationRule{
		GrantorPrincipalID: "approver1",
		GranteePrincipalID: "delegate1",
		Scope:              []string{"stub.*"},
	}))

	result, err := o.Propose(ctx, ProposeRequest{
		PrincipalID: "p1",
		Proposals:   []types.ActionProposal{{ActionType: "stub.refund"}},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Approval)
	assert.NotContains(t, result.Approval.EligibleApproverIDs, "delegate1")

	env, err := o.RespondToApproval(ctx, RespondRequest{
		ApprovalID:          result.Approval.ID,
		ResponderID:         "delegate1",
		Decision:            DecisionApprove,
		SuppliedBindingHash: result.Approval.BindingHash,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, env.Status)
}

func TestPropose_RateLimitExceeded(t *testing.T) {
	o, identities := newTestOrchestrator(t)
	seedPrincipal(t, identities, "p1", map[types.RiskCategory]types.ApprovalLevel{
		types.RiskLow: types.ApprovalLevelNone,
	}, nil, nil)
	o.proposalRPM = 1

	ctx := context.Background()
	req := ProposeRequest{PrincipalID: "p1", Proposals: []types.ActionProposal{{ActionType: "stub.echo"}}}

	_, err := o.Propose(ctx, req)
	require.NoError(t, err)

	_, err = o.Propose(ctx, req)
	assert.ErrorIs(t, err, ErrRateLimited)
}
