package orchestrator

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/policy"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// evaluationInput bundles everything evaluateParameters needs beyond the
// parameters map itself, so propose() and the patch re-evaluation path in
// respondToApproval() run the identical pipeline against a fresh proposal
// or a patched one.
type evaluationInput struct {
	CartridgeID    string
	ActionType     string
	Parameters     map[string]interface{}
	PrincipalID    string
	OrganizationID string
	Metadata       map[string]interface{}
	SpendLookup    *policy.SpendLookup
	Composite      *types.CompositeContext
}

// evaluationOutput is what evaluateParameters produces.
type evaluationOutput struct {
	Trace            types.DecisionTrace
	GuardrailSpec    types.GuardrailSpec
	ResolvedIdentity types.ResolvedIdentity
	Cartridge        types.Cartridge
	EntityID         string
	RateStates       map[string]types.RateLimitCounterState
}

// evaluateParameters runs one action's parameters through the full
// identity/guardrail/policy/risk pipeline and flushes guardrail state when
// the result isn't a deny. propose() uses it for every fresh proposal;
// respondToApproval's patch branch calls it again on the patched
// parameters so a patch can never bypass policy or risk evaluation.
func (o *Orchestrator) evaluateParameters(ctx context.Context, in evaluationInput) (evaluationOutput, error) {
	cart, err := o.cartridges.ResolveForActionType(in.CartridgeID, in.ActionType)
	if err != nil {
		return evaluationOutput{}, fmt.Errorf("orchestrator: resolve cartridge for %q: %w", in.ActionType, err)
	}

	resolvedIdentity, adj, err := o.resolveIdentity(ctx, in.PrincipalID, cart.Descriptor().ID, in.ActionType)
	if err != nil {
		return evaluationOutput{}, err
	}

	guardrailSpec, err := cart.GetGuardrails(ctx)
	if err != nil {
		return evaluationOutput{}, fmt.Errorf("orchestrator: get guardrails: %w", err)
	}

	entityID := stringParam(in.Parameters, "entityId")
	rateStates, cooldownStates, err := o.hydrateGuardrailState(ctx, guardrailSpec, in.PrincipalID, entityID)
	if err != nil {
		return evaluationOutput{}, err
	}

	riskInput, err := cart.Score(ctx, types.ActionProposal{ActionType: in.ActionType, Parameters: in.Parameters})
	if err != nil {
		return evaluationOutput{}, fmt.Errorf("orchestrator: score risk: %w", err)
	}

	// enrichContext is a required capability and fail-closed: a cartridge
	// that cannot enrich is obligated to return worst-case defaults rather
	// than error, so any error here aborts evaluation instead of silently
	// continuing with an under-informed context.
	enrichment, err := cart.EnrichContext(ctx, types.ActionProposal{ActionType: in.ActionType, Parameters: in.Parameters})
	if err != nil {
		return evaluationOutput{}, fmt.Errorf("orchestrator: enrich context: %w", err)
	}

	policies, err := o.loadPolicies(ctx, cart.Descriptor().ID)
	if err != nil {
		return evaluationOutput{}, err
	}

	metadata := map[string]interface{}{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	for k, v := range enrichment {
		metadata[k] = v
	}

	evalCtx := policy.EvaluationContext{
		ActionType:     in.ActionType,
		Parameters:     in.Parameters,
		CartridgeID:    cart.Descriptor().ID,
		PrincipalID:    in.PrincipalID,
		OrganizationID: in.OrganizationID,
		Metadata:       metadata,
	}
	engineCtx := policy.EngineContext{
		Policies:             policies,
		Guardrails:           guardrailSpec,
		RateLimitState:       rateStates,
		CooldownState:        cooldownStates,
		ResolvedIdentity:     resolvedIdentity,
		RiskInput:            riskInput,
		SpendLookup:          in.SpendLookup,
		CompositeContext:     in.Composite,
		CompetenceAdjustment: adj,
	}

	trace := o.engine.Evaluate(evalCtx, engineCtx)

	if trace.FinalDecision != types.DecisionDeny {
		if err := o.flushGuardrailState(ctx, guardrailSpec, in.PrincipalID, entityID, rateStates); err != nil {
			return evaluationOutput{}, err
		}
	}

	return evaluationOutput{
		Trace:            trace,
		GuardrailSpec:    guardrailSpec,
		ResolvedIdentity: resolvedIdentity,
		Cartridge:        cart,
		EntityID:         entityID,
		RateStates:       rateStates,
	}, nil
}
