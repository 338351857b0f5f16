package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func TestMemoryEnvelopeStore_SaveGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEnvelopeStore()

	env := &types.ActionEnvelope{ID: "env-1", Status: types.StatusProposed, CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, env))

	got, err := store.GetByID(ctx, "env-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProposed, got.Status)

	got.Status = types.StatusApproved
	require.NoError(t, store.Update(ctx, got))

	reread, err := store.GetByID(ctx, "env-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, reread.Status)
}

func TestMemoryEnvelopeStore_GetByIDMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemoryEnvelopeStore()
	_, err := store.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEnvelopeStore_UpdateMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemoryEnvelopeStore()
	err := store.Update(context.Background(), &types.ActionEnvelope{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEnvelopeStore_ListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEnvelopeStore()
	require.NoError(t, store.Save(ctx, &types.ActionEnvelope{ID: "e1", Status: types.StatusProposed}))
	require.NoError(t, store.Save(ctx, &types.ActionEnvelope{ID: "e2", Status: types.StatusApproved}))

	proposed, err := store.List(ctx, EnvelopeFilter{Status: types.StatusProposed})
	require.NoError(t, err)
	require.Len(t, proposed, 1)
	assert.Equal(t, "e1", proposed[0].ID)
}

func TestMemoryApprovalStore_SaveGetUpdateState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryApprovalStore()
	req := &types.ApprovalRequest{ID: "a1", EnvelopeID: "env-1", Status: types.ApprovalPending}
	require.NoError(t, store.Save(ctx, req))

	require.NoError(t, store.UpdateState(ctx, "a1", types.ApprovalApproved))
	got, err := store.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.ApprovalApproved, got.Status)
}

func TestMemoryApprovalStore_ListFiltersByApprover(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryApprovalStore()
	require.NoError(t, store.Save(ctx, &types.ApprovalRequest{
		ID: "a1", EligibleApproverIDs: []string{"mgr-1"},
	}))
	require.NoError(t, store.Save(ctx, &types.ApprovalRequest{
		ID: "a2", EligibleApproverIDs: []string{"mgr-2"},
	}))

	results, err := store.List(ctx, ApprovalFilter{ApproverID: "mgr-1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].ID)
}

func TestMemoryIdentityStore_SpecAndCompetenceRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdentityStore()

	spec := &types.IdentitySpec{ID: "spec-1", PrincipalID: "p1"}
	require.NoError(t, store.SaveSpec(ctx, spec))

	got, err := store.GetSpecByPrincipalID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "spec-1", got.ID)

	rec := &types.CompetenceAdjustment{PrincipalID: "p1", ActionType: "ads.campaign.pause", Score: 70}
	require.NoError(t, store.SaveCompetenceRecord(ctx, rec))

	gotRec, err := store.GetCompetenceRecord(ctx, "p1", "ads.campaign.pause")
	require.NoError(t, err)
	assert.Equal(t, 70.0, gotRec.Score)

	_, err = store.GetCompetenceRecord(ctx, "p1", "unknown.action")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryIdentityStore_OverlaysAndDelegations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdentityStore()

	overlay := &types.RoleOverlay{ID: "ov1", TargetSpecID: "spec-1", Active: true}
	require.NoError(t, store.SaveOverlay(ctx, overlay))

	overlays, err := store.ListOverlaysBySpecID(ctx, "spec-1")
	require.NoError(t, err)
	require.Len(t, overlays, 1)
	assert.Equal(t, "ov1", overlays[0].ID)

	rule := &types.DelegationRule{GrantorPrincipalID: "p1", GranteePrincipalID: "p2"}
	require.NoError(t, store.SaveDelegationRule(ctx, rule))

	rules, err := store.ListDelegationRules(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "p2", rules[0].GranteePrincipalID)
}
