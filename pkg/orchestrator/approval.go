package orchestrator

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/approval"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Decision is the closed set of responses a respondToApproval call accepts.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionPatch   Decision = "patch"
)

// RespondRequest is the input to RespondToApproval.
type RespondRequest struct {
	ApprovalID     string
	ResponderID    string
	Decision       Decision
	SuppliedBindingHash string
	RejectionReason string
	PatchFields     map[string]interface{} // new values; only used when Decision == DecisionPatch
}

// RespondToApproval applies a responder's decision to a pending approval
// request: verifies the request hasn't expired, checks the supplied binding
// hash matches the one computed at creation, authorizes the responder
// (directly or via a delegation chain), then transitions the request and,
// on approve/patch, advances the envelope toward execution.
func (o *Orchestrator) RespondToApproval(ctx context.Context, req RespondRequest) (result *types.ActionEnvelope, err error) {
	if o.obs != nil {
		var done func(error)
		ctx, done = o.obs.TrackOperation(ctx, "respondToApproval")
		defer func() { done(err) }()
	}
	result, err = o.respondToApproval(ctx, req)
	return result, err
}

func (o *Orchestrator) respondToApproval(ctx context.Context, req RespondRequest) (*types.ActionEnvelope, error) {
	now := o.clock()

	apprReq, err := o.approvals.GetByID(ctx, req.ApprovalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrApprovalNotFound, err)
	}

	if approval.IsExpired(apprReq, now) {
		_ = approval.Expire(apprReq, now)
		_ = o.approvals.UpdateState(ctx, apprReq.ID, types.ApprovalExpired)
		return nil, fmt.Errorf("%w: request %s has expired", approval.ErrStaleApproval, apprReq.ID)
	}

	if !approval.VerifyBindingHash(apprReq.BindingHash, req.SuppliedBindingHash) {
		return nil, fmt.Errorf("%w: %w", approval.ErrStaleApproval, ErrBindingMismatch)
	}

	responder, err := o.identities.GetPrincipal(ctx, req.ResponderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrUnknownResponder, err)
	}

	env, err := o.envelopes.GetByID(ctx, apprReq.EnvelopeID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load envelope: %w", err)
	}

	delegations, err := o.collectDelegationRules(ctx, apprReq.EligibleApproverIDs)
	if err != nil {
		return nil, err
	}

	chainResult := approval.CanApproveWithChain(*responder, apprReq.EligibleApproverIDs, delegations, actionTypeForID(env, apprReq.ActionID), now)
	if !chainResult.Authorized {
		return nil, approval.ErrUnauthorizedResponder
	}
	apprReq.DelegationChain = chainResult.Chain

	if chainResult.Depth > 1 {
		if _, err := o.recordAudit(ctx, types.EventDelegationChainResolved, apprReq.EnvelopeID, apprReq.ActionID, req.ResponderID, map[string]interface{}{
			"chain": chainResult.Chain,
			"depth": chainResult.Depth,
		}); err != nil {
			return nil, err
		}
	}

	var newStatus types.ApprovalStatus
	auditEvent := types.EventApproved
	auditPayload := map[string]interface{}{"decision": string(req.Decision)}

	switch req.Decision {
	case DecisionApprove:
		if err := approval.Approve(apprReq, req.ResponderID, now); err != nil {
			return nil, err
		}
		newStatus = types.ApprovalApproved
		if types.CanTransition(env.Status, types.StatusApproved) {
			env.Status = types.StatusApproved
		}
	case DecisionReject:
		if err := approval.Reject(apprReq, req.ResponderID, req.RejectionReason, now); err != nil {
			return nil, err
		}
		newStatus = types.ApprovalRejected
		auditEvent = types.EventRejected
		auditPayload["reason"] = req.RejectionReason
		if types.CanTransition(env.Status, types.StatusDenied) {
			env.Status = types.StatusDenied
		}
	case DecisionPatch:
		fields := approval.DiffPatchedFields(apprReq.BoundParameters, req.PatchFields)
		if err := approval.Patch(apprReq, req.ResponderID, fields, now); err != nil {
			return nil, err
		}
		patched := approval.ApplyPatch(apprReq.BoundParameters, req.PatchFields)
		apprReq.BoundParameters = patched

		proposalIdx := -1
		for i, p := range env.Proposals {
			if p.ID == apprReq.ActionID {
				proposalIdx = i
				break
			}
		}
		if proposalIdx < 0 {
			return nil, fmt.Errorf("orchestrator: action %s not found in envelope %s", apprReq.ActionID, env.ID)
		}
		env.Proposals[proposalIdx].Parameters = patched

		// A patch can never bypass policy or risk evaluation: re-run the
		// full pipeline against the patched parameters before deciding
		// whether the envelope may proceed toward execution.
		out, err := o.evaluateParameters(ctx, evaluationInput{
			CartridgeID:    env.Proposals[proposalIdx].CartridgeID(),
			ActionType:     env.Proposals[proposalIdx].ActionType,
			Parameters:     patched,
			PrincipalID:    env.Proposals[proposalIdx].PrincipalID(),
			OrganizationID: env.OrganizationID,
			Metadata:       env.Metadata,
		})
		if err != nil {
			return nil, err
		}
		env.DecisionTraces = append(env.DecisionTraces, out.Trace)

		if out.Trace.FinalDecision == types.DecisionDeny {
			newStatus = types.ApprovalPatched
			auditEvent = types.EventDenied
			auditPayload["patch_reevaluation"] = "denied"
			if types.CanTransition(env.Status, types.StatusDenied) {
				env.Status = types.StatusDenied
			}
		} else {
			newStatus = types.ApprovalPatched
			auditEvent = types.EventPatched
			if types.CanTransition(env.Status, types.StatusApproved) {
				env.Status = types.StatusApproved
			}
		}
	default:
		return nil, fmt.Errorf("orchestrator: unknown decision %q", req.Decision)
	}

	if err := o.approvals.Save(ctx, apprReq); err != nil {
		return nil, fmt.Errorf("orchestrator: save approval response: %w", err)
	}
	env.Version++
	env.UpdatedAt = now
	if err := o.envelopes.Update(ctx, env); err != nil {
		return nil, fmt.Errorf("orchestrator: update envelope: %w", err)
	}

	if o.obs != nil {
		o.obs.RecordApproval(ctx, string(newStatus))
	}

	auditPayload["status"] = string(newStatus)
	auditPayload["delegation_chain"] = chainResult.Chain
	if _, err := o.recordAudit(ctx, auditEvent, apprReq.EnvelopeID, apprReq.ActionID, req.ResponderID, auditPayload); err != nil {
		return nil, err
	}

	return env, nil
}

// collectDelegationRules gathers every delegation rule reachable from
// approverIDs acting as grantors, breadth-first up to
// approval.DefaultMaxChainDepth hops, so CanApproveWithChain has the full
// edge set it needs regardless of how deep the chain runs.
func (o *Orchestrator) collectDelegationRules(ctx context.Context, approverIDs []string) ([]types.DelegationRule, error) {
	var all []types.DelegationRule
	seen := map[string]bool{}
	frontier := append([]string{}, approverIDs...)

	for depth := 0; depth < approval.DefaultMaxChainDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, grantorID := range frontier {
			if seen[grantorID] {
				continue
			}
			seen[grantorID] = true
			rules, err := o.identities.ListDelegationRules(ctx, grantorID)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: list delegation rules: %w", err)
			}
			for _, r := range rules {
				all = append(all, *r)
				next = append(next, r.GranteePrincipalID)
			}
		}
		frontier = next
	}
	return all, nil
}

func actionTypeForID(env *types.ActionEnvelope, actionID string) string {
	for _, p := range env.Proposals {
		if p.ID == actionID {
			return p.ActionType
		}
	}
	return ""
}
