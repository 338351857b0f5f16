package orchestrator

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/competence"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ExecuteApproved runs every proposal in envelopeID's approved envelope
// through its owning cartridge's Execute, updates competence records on
// success/failure, and records one audit entry per action plus the
// envelope's terminal status.
func (o *Orchestrator) ExecuteApproved(ctx context.Context, envelopeID string) (result *types.ActionEnvelope, err error) {
	if o.obs != nil {
		var done func(error)
		ctx, done = o.obs.TrackOperation(ctx, "executeApproved")
		defer func() { done(err) }()
	}
	result, err = o.executeApproved(ctx, envelopeID)
	return result, err
}

func (o *Orchestrator) executeApproved(ctx context.Context, envelopeID string) (*types.ActionEnvelope, error) {
	env, err := o.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load envelope: %w", err)
	}
	if env.Status != types.StatusApproved {
		return nil, ErrEnvelopeNotPending
	}

	now := o.clock()
	env.Status = types.StatusExecuting
	env.UpdatedAt = now
	if err := o.envelopes.Update(ctx, env); err != nil {
		return nil, fmt.Errorf("orchestrator: mark executing: %w", err)
	}
	var principalID string
	if len(env.Proposals) > 0 {
		principalID = env.Proposals[0].PrincipalID()
	}
	if _, err := o.recordAudit(ctx, types.EventExecuting, envelopeID, "", principalID, map[string]interface{}{
		"action_count": len(env.Proposals),
	}); err != nil {
		return nil, err
	}

	anyFailed := false
	for _, p := range env.Proposals {
		cart, err := o.cartridges.ResolveForActionType(p.CartridgeID(), p.ActionType)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: resolve cartridge for execution: %w", err)
		}

		var snapshot map[string]interface{}
		if capturer, ok := cart.(types.SnapshotCapturer); ok {
			snapshot, err = capturer.CaptureSnapshot(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: capture pre-execution snapshot: %w", err)
			}
		}

		execResult, execErr := cart.Execute(ctx, p)
		execResult.Raw = mergeRaw(execResult.Raw, snapshot)
		env.ExecutionResults = append(env.ExecutionResults, execResult)

		if err := o.updateCompetence(ctx, p.PrincipalID(), p.ActionType, execErr == nil && execResult.Success); err != nil {
			return nil, err
		}

		eventType := types.EventExecuted
		payload := map[string]interface{}{
			"success": execResult.Success,
			"summary": execResult.Summary,
		}
		if execErr != nil || !execResult.Success {
			anyFailed = true
			eventType = types.EventFailed
			if execErr != nil {
				payload["error"] = execErr.Error()
			}
		}
		if _, err := o.recordAudit(ctx, eventType, envelopeID, p.ID, p.PrincipalID(), payload); err != nil {
			return nil, err
		}
	}

	if anyFailed {
		env.Status = types.StatusFailed
	} else {
		env.Status = types.StatusExecuted
	}
	env.UpdatedAt = o.clock()
	env.Version++
	if err := o.envelopes.Update(ctx, env); err != nil {
		return nil, fmt.Errorf("orchestrator: finalize execution: %w", err)
	}

	return env, nil
}

// updateCompetence folds an execution outcome into the principal's
// (principalID, actionType) competence record, creating one on first use.
func (o *Orchestrator) updateCompetence(ctx context.Context, principalID, actionType string, success bool) error {
	if principalID == "" || o.competence == nil {
		return nil
	}
	adj, err := o.competence.Get(ctx, principalID, actionType)
	if err != nil {
		return fmt.Errorf("orchestrator: load competence record: %w", err)
	}
	if adj == nil {
		adj = &types.CompetenceAdjustment{PrincipalID: principalID, ActionType: actionType}
	}
	if success {
		competence.RecordSuccess(adj, o.competenceCfg)
	} else {
		competence.RecordFailure(adj, o.competenceCfg)
	}
	if err := o.competence.Save(ctx, adj); err != nil {
		return fmt.Errorf("orchestrator: save competence record: %w", err)
	}
	return nil
}

// penalizeRollback applies competence.RecordRollback to the original
// action's (principalID, actionType) record, creating one on first use.
func (o *Orchestrator) penalizeRollback(ctx context.Context, principalID, actionType string) error {
	if principalID == "" || o.competence == nil {
		return nil
	}
	adj, err := o.competence.Get(ctx, principalID, actionType)
	if err != nil {
		return fmt.Errorf("orchestrator: load competence record: %w", err)
	}
	if adj == nil {
		adj = &types.CompetenceAdjustment{PrincipalID: principalID, ActionType: actionType}
	}
	competence.RecordRollback(adj, o.competenceCfg)
	if err := o.competence.Save(ctx, adj); err != nil {
		return fmt.Errorf("orchestrator: save competence record: %w", err)
	}
	return nil
}

// RequestUndo reverses a previously executed action via its UndoRecipe. The
// reverse action is not executed directly: it is submitted as a brand-new
// envelope through Propose, with ParentEnvelopeID set to envelopeID, so it
// runs the full policy/risk/approval pipeline and may itself require
// approval or be denied.
func (o *Orchestrator) RequestUndo(ctx context.Context, envelopeID, actionID, requestedBy string) (result *ProposeResult, err error) {
	if o.obs != nil {
		var done func(error)
		ctx, done = o.obs.TrackOperation(ctx, "requestUndo")
		defer func() { done(err) }()
	}
	result, err = o.requestUndo(ctx, envelopeID, actionID, requestedBy)
	return result, err
}

func (o *Orchestrator) requestUndo(ctx context.Context, envelopeID, actionID, requestedBy string) (*ProposeResult, error) {
	env, err := o.envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load envelope: %w", err)
	}

	var proposal *types.ActionProposal
	for i := range env.Proposals {
		if env.Proposals[i].ID == actionID {
			proposal = &env.Proposals[i]
			break
		}
	}
	if proposal == nil {
		return nil, fmt.Errorf("orchestrator: action %s not found in envelope %s", actionID, envelopeID)
	}

	var recipe *types.UndoRecipe
	for _, res := range env.ExecutionResults {
		if res.UndoRecipe != nil && res.UndoRecipe.OriginalActionID == actionID {
			recipe = res.UndoRecipe
			break
		}
	}
	if recipe == nil {
		return nil, ErrNoUndoRecipe
	}

	now := o.clock()
	if now.After(recipe.UndoExpiresAt) {
		return nil, ErrUndoExpired
	}

	if _, err := o.recordAudit(ctx, types.EventUndoRequested, envelopeID, actionID, requestedBy, map[string]interface{}{
		"reverse_action_type": recipe.ReverseActionType,
	}); err != nil {
		return nil, err
	}

	if err := o.penalizeRollback(ctx, proposal.PrincipalID(), proposal.ActionType); err != nil {
		return nil, err
	}

	reverseParams := map[string]interface{}{}
	for k, v := range recipe.ReverseParameters {
		reverseParams[k] = v
	}

	return o.propose(ctx, ProposeRequest{
		PrincipalID:      proposal.PrincipalID(),
		CartridgeID:      proposal.CartridgeID(),
		Proposals:        []types.ActionProposal{{ActionType: recipe.ReverseActionType, Parameters: reverseParams}},
		ParentEnvelopeID: envelopeID,
	})
}

// mergeRaw folds a pre-execution snapshot into an ExecuteResult's Raw bag
// under "preExecutionSnapshot", leaving the cartridge's own raw fields
// untouched.
func mergeRaw(raw map[string]interface{}, snapshot map[string]interface{}) map[string]interface{} {
	if snapshot == nil {
		return raw
	}
	out := map[string]interface{}{}
	for k, v := range raw {
		out[k] = v
	}
	out["preExecutionSnapshot"] = snapshot
	return out
}
