package orchestrator

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/approval"
	"github.com/Mindburn-Labs/actiongov/pkg/entity"
	"github.com/Mindburn-Labs/actiongov/pkg/policy"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ProposeRequest is the input to Propose: one or more atomic proposals
// originating from the same conversation turn, acted on by one principal
// through one cartridge.
type ProposeRequest struct {
	ConversationID  string
	OriginalMessage *string
	PrincipalID     string
	CartridgeID     string // explicit cartridge ID; empty lets the registry match by action-type prefix
	Proposals       []types.ActionProposal
	OrganizationID  string
	Metadata        map[string]interface{}
	SpendLookup     *policy.SpendLookup
	Composite       *types.CompositeContext

	// ParentEnvelopeID links a reverse-action envelope back to the one it
	// undoes. requestUndo sets this when it re-enters Propose; ordinary
	// proposals leave it empty.
	ParentEnvelopeID string

	// EntityRefs/Resolver optionally drive pre-evaluation entity
	// resolution; both empty skips resolution entirely.
	EntityRefs []entity.Reference
	Resolver   entity.Resolver
}

// ProposeResult is what Propose returns: the persisted envelope and,
// whenever a pending approval was created for it, the request itself.
type ProposeResult struct {
	Envelope *types.ActionEnvelope
	Approval *types.ApprovalRequest
}

// ResolveAndPropose runs entity resolution over req.EntityRefs (if any)
// before evaluating, substituting resolved IDs into every proposal's
// parameters. A clarification or not-found outcome short-circuits before
// any guardrail, policy, or audit side effect occurs.
func (o *Orchestrator) ResolveAndPropose(ctx context.Context, req ProposeRequest) (*ProposeResult, error) {
	if len(req.EntityRefs) > 0 && req.Resolver != nil {
		outcome := entity.ResolveAll(ctx, req.EntityRefs, req.Resolver)
		if outcome.NeedsClarification {
			return nil, fmt.Errorf("%w: %s", ErrNeedsClarification, outcome.Question)
		}
		if outcome.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, outcome.Explanation)
		}
		for i := range req.Proposals {
			req.Proposals[i].Parameters = entity.ApplyResolutions(req.Proposals[i].Parameters, req.EntityRefs, outcome.Resolved)
		}
	}
	return o.Propose(ctx, req)
}

// Propose evaluates every proposal in req against the full pipeline
// (identity, guardrails, policy, risk), persists the resulting envelope,
// and creates an approval request if the decision requires one.
func (o *Orchestrator) Propose(ctx context.Context, req ProposeRequest) (result *ProposeResult, err error) {
	if o.obs != nil {
		var done func(error)
		ctx, done = o.obs.TrackOperation(ctx, "propose")
		defer func() { done(err) }()
	}
	result, err = o.propose(ctx, req)
	return result, err
}

func (o *Orchestrator) propose(ctx context.Context, req ProposeRequest) (*ProposeResult, error) {
	if err := o.checkBackpressure(req.PrincipalID); err != nil {
		return nil, err
	}

	now := o.clock()
	envelopeID := newID("env")

	stampedProposals := make([]types.ActionProposal, len(req.Proposals))
	copy(stampedProposals, req.Proposals)

	var traces []types.DecisionTrace
	var createdApproval *types.ApprovalRequest

	for i, p := range stampedProposals {
		cart, err := o.cartridges.ResolveForActionType(req.CartridgeID, p.ActionType)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: resolve cartridge for %q: %w", p.ActionType, err)
		}

		actionID := p.ID
		if actionID == "" {
			actionID = newID("act")
		}
		params := map[string]interface{}{}
		for k, v := range p.Parameters {
			params[k] = v
		}
		params[types.ParamPrincipalID] = req.PrincipalID
		params[types.ParamCartridgeID] = cart.Descriptor().ID
		params[types.ParamEnvelopeID] = envelopeID
		params[types.ParamActionID] = actionID
		p.ID = actionID
		p.Parameters = params
		stampedProposals[i] = p

		out, err := o.evaluateParameters(ctx, evaluationInput{
			CartridgeID:    req.CartridgeID,
			ActionType:     p.ActionType,
			Parameters:     params,
			PrincipalID:    req.PrincipalID,
			OrganizationID: req.OrganizationID,
			Metadata:       req.Metadata,
			SpendLookup:    req.SpendLookup,
			Composite:      req.Composite,
		})
		if err != nil {
			return nil, err
		}
		trace := out.Trace
		resolvedIdentity := out.ResolvedIdentity
		guardrailSpec := out.GuardrailSpec
		traces = append(traces, trace)

		if trace.FinalDecision == types.DecisionDeny {
			if o.obs != nil {
				o.obs.RecordDenial(ctx, string(firstDenyCode(trace)))
			}
			continue
		}

		if trace.RequiredApprovalLevel != types.ApprovalLevelNone {
			snapshotHash, err := contextSnapshotHash(resolvedIdentity, guardrailSpec)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: compute context snapshot hash: %w", err)
			}
			traceHash, err := decisionTraceHash(trace)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: compute decision trace hash: %w", err)
			}
			bindingHash, err := approval.ComputeBindingHash(approval.BindingTuple{
				EnvelopeID:          envelopeID,
				EnvelopeVersion:     1,
				ActionID:            actionID,
				Parameters:          params,
				DecisionTraceHash:   traceHash,
				ContextSnapshotHash: snapshotHash,
			})
			if err != nil {
				return nil, fmt.Errorf("orchestrator: compute binding hash: %w", err)
			}

			approvers, expiresAt, err := approval.Route(o.routing, trace.RequiredApprovalLevel, now)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: route approval: %w", err)
			}

			contextRef, err := o.recordEvidence(ctx, fmt.Sprintf("envelope/%s/action/%s/context.json", envelopeID, actionID), struct {
				ResolvedIdentity types.ResolvedIdentity `json:"resolved_identity"`
				Guardrails       types.GuardrailSpec    `json:"guardrails"`
			}{resolvedIdentity, guardrailSpec})
			if err != nil {
				return nil, err
			}
			decisionRef, err := o.recordEvidence(ctx, fmt.Sprintf("envelope/%s/action/%s/decision.json", envelopeID, actionID), trace)
			if err != nil {
				return nil, err
			}

			apprReq := &types.ApprovalRequest{
				ID:                  newID("appr"),
				EnvelopeID:          envelopeID,
				ActionID:            actionID,
				RequiredLevel:       trace.RequiredApprovalLevel,
				EligibleApproverIDs: approvers,
				BindingHash:         bindingHash,
				BoundParameters:     params,
				Status:              types.ApprovalPending,
				ExpiresAt:           expiresAt,
				OnExpiry:            o.routing.DefaultExpiredBehavior,
				CreatedAt:           now,
				ContextEvidenceRef:  contextRef,
				DecisionEvidenceRef: decisionRef,
			}
			if err := o.approvals.Save(ctx, apprReq); err != nil {
				return nil, fmt.Errorf("orchestrator: save approval request: %w", err)
			}
			createdApproval = apprReq
		}
	}

	status := types.StatusProposed
	switch {
	case allDenied(traces):
		status = types.StatusDenied
	case createdApproval != nil:
		status = types.StatusPendingApproval
	case allAllowed(traces):
		status = types.StatusApproved
	}

	env := &types.ActionEnvelope{
		ID:              envelopeID,
		Version:         1,
		OriginalMessage: req.OriginalMessage,
		ConversationID:  req.ConversationID,
		Proposals:       stampedProposals,
		DecisionTraces:  traces,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
		ParentEnvelopeID: req.ParentEnvelopeID,
		OrganizationID:  req.OrganizationID,
		Metadata:        req.Metadata,
	}
	if createdApproval != nil {
		env.ApprovalRequestIDs = []string{createdApproval.ID}
	}

	if err := o.envelopes.Save(ctx, env); err != nil {
		return nil, fmt.Errorf("orchestrator: save envelope: %w", err)
	}

	proposeEvent := types.EventProposed
	if status == types.StatusDenied {
		proposeEvent = types.EventDenied
	}
	payload := map[string]interface{}{"action_count": len(stampedProposals)}
	if createdApproval != nil {
		payload["required_level"] = string(createdApproval.RequiredLevel)
		payload["binding_hash"] = createdApproval.BindingHash
	}
	if req.ParentEnvelopeID != "" {
		payload["parent_envelope_id"] = req.ParentEnvelopeID
	}
	if _, err := o.recordAudit(ctx, proposeEvent, envelopeID, "", req.PrincipalID, payload); err != nil {
		return nil, err
	}

	return &ProposeResult{Envelope: env, Approval: createdApproval}, nil
}

func allDenied(traces []types.DecisionTrace) bool {
	if len(traces) == 0 {
		return false
	}
	for _, t := range traces {
		if t.FinalDecision != types.DecisionDeny {
			return false
		}
	}
	return true
}

func allAllowed(traces []types.DecisionTrace) bool {
	for _, t := range traces {
		if t.FinalDecision != types.DecisionAllow {
			return false
		}
	}
	return true
}

func firstDenyCode(trace types.DecisionTrace) types.CheckCode {
	for _, c := range trace.Checks {
		if c.Matched && c.Effect == types.EffectDeny {
			return c.Code
		}
	}
	return ""
}

func stringParam(params map[string]interface{}, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
