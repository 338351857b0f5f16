// Package policy is the decision engine: it combines the rule evaluator,
// risk scorer, resolved identity, and guardrail state into one
// DecisionTrace per proposal, in the fixed evaluation order the rest of the
// system depends on for audit reproducibility.
package policy

import (
	"github.com/Mindburn-Labs/actiongov/pkg/ruleeval"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// EvaluationContext is the flattened view of one proposal used both to
// resolve ruleeval field paths and to drive the built-in checks.
type EvaluationContext struct {
	ActionType     string
	Parameters     map[string]interface{}
	CartridgeID    string
	PrincipalID    string
	OrganizationID string
	RiskCategory   types.RiskCategory
	Metadata       map[string]interface{}
}

// AsRuleContext flattens the evaluation context into the dotted-path map
// ruleeval.Evaluate expects.
func (c EvaluationContext) AsRuleContext() map[string]interface{} {
	params := c.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}
	return map[string]interface{}{
		"action": map[string]interface{}{
			"type": c.ActionType,
		},
		"parameters":     params,
		"cartridgeId":    c.CartridgeID,
		"principalId":    c.PrincipalID,
		"organizationId": c.OrganizationID,
		"riskCategory":   string(c.RiskCategory),
		"metadata":       c.Metadata,
	}
}

// Policy is one configured, prioritized rule with its effect. Most policies
// express their condition as a ruleeval.PolicyRule tree; a policy whose
// condition needs expression power beyond that closed operator set
// (arithmetic across fields, ad hoc boolean combinators) can instead set
// CELExpression, which takes precedence over Rule when non-empty.
type Policy struct {
	ID            string
	Priority      int
	Rule          ruleeval.PolicyRule
	CELExpression string
	Effect        Effect
	ApprovalLevel types.ApprovalLevel    // set when Effect == EffectRequireApproval
	Patch         map[string]interface{} // set when Effect == EffectModify
}

// Effect is what a matched Policy does.
type Effect string

const (
	EffectAllow           Effect = "allow"
	EffectDeny            Effect = "deny"
	EffectRequireApproval Effect = "require_approval"
	EffectModify          Effect = "modify"
)

// SpendLookup supplies a principal's rolling spend totals, when available.
type SpendLookup struct {
	DailySpend   *float64
	WeeklySpend  *float64
	MonthlySpend *float64
}

// EngineContext bundles every collaborator the evaluation pipeline consults.
type EngineContext struct {
	Policies             []Policy
	Guardrails           types.GuardrailSpec
	RateLimitState       map[string]types.RateLimitCounterState // keyed by guardrail.RateLimitKey
	CooldownState        map[string]types.CooldownState         // keyed by guardrail.CooldownKey
	ResolvedIdentity     types.ResolvedIdentity
	RiskInput            types.RiskInput
	SpendLookup          *SpendLookup
	CompositeContext     *types.CompositeContext
	CompetenceAdjustment *types.CompetenceAdjustment
}
