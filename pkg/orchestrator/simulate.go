package orchestrator

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/policy"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// SimulateRequest is the input to Simulate: the same shape Propose takes
// for a single proposal, minus anything that would cause a side effect.
type SimulateRequest struct {
	PrincipalID    string
	CartridgeID    string
	Proposal       types.ActionProposal
	OrganizationID string
	Metadata       map[string]interface{}
	SpendLookup    *policy.SpendLookup
	Composite      *types.CompositeContext
}

// Simulate runs the full evaluation pipeline for one proposal and returns
// what would happen, without touching the envelope store, approval store,
// guardrail state, or audit ledger.
func (o *Orchestrator) Simulate(ctx context.Context, req SimulateRequest) (*policy.SimulationResult, error) {
	cart, err := o.cartridges.ResolveForActionType(req.CartridgeID, req.Proposal.ActionType)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolve cartridge for %q: %w", req.Proposal.ActionType, err)
	}

	resolvedIdentity, adj, err := o.resolveIdentity(ctx, req.PrincipalID, cart.Descriptor().ID, req.Proposal.ActionType)
	if err != nil {
		return nil, err
	}

	guardrailSpec, err := cart.GetGuardrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: get guardrails: %w", err)
	}

	entityID := stringParam(req.Proposal.Parameters, "entityId")
	rateStates, cooldownStates, err := o.hydrateGuardrailState(ctx, guardrailSpec, req.PrincipalID, entityID)
	if err != nil {
		return nil, err
	}

	riskInput, err := cart.Score(ctx, req.Proposal)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: score risk: %w", err)
	}

	enrichment, err := cart.EnrichContext(ctx, req.Proposal)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: enrich context: %w", err)
	}

	policies, err := o.loadPolicies(ctx, cart.Descriptor().ID)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	for k, v := range enrichment {
		metadata[k] = v
	}

	evalCtx := policy.EvaluationContext{
		ActionType:     req.Proposal.ActionType,
		Parameters:     req.Proposal.Parameters,
		CartridgeID:    cart.Descriptor().ID,
		PrincipalID:    req.PrincipalID,
		OrganizationID: req.OrganizationID,
		Metadata:       metadata,
	}
	engineCtx := policy.EngineContext{
		Policies:             policies,
		Guardrails:           guardrailSpec,
		RateLimitState:       rateStates,
		CooldownState:        cooldownStates,
		ResolvedIdentity:     resolvedIdentity,
		RiskInput:            riskInput,
		SpendLookup:          req.SpendLookup,
		CompositeContext:     req.Composite,
		CompetenceAdjustment: adj,
	}

	result := o.engine.Simulate(evalCtx, engineCtx)
	return &result, nil
}
