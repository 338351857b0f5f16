package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/guardrail"
	policycel "github.com/Mindburn-Labs/actiongov/pkg/policy/cel"
	"github.com/Mindburn-Labs/actiongov/pkg/risk"
	"github.com/Mindburn-Labs/actiongov/pkg/ruleeval"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Engine runs the fixed evaluation pipeline: forbidden/trust/competence
// checks, rate limits, cooldowns, protected entities, spend limits, policy
// rules, risk scoring, and composite-risk recategorization, in that order,
// accumulating every check into the trace regardless of whether an earlier
// one already decided the outcome. The full pipeline always runs so the
// trace stays complete for observability even on an early deny.
type Engine struct {
	riskConfig risk.ScoringConfig
	now        func() time.Time
	celEval    *policycel.Evaluator
}

// NewEngine constructs an Engine with the given risk-scoring configuration.
// It also builds the optional CEL evaluator used by policies that set
// CELExpression instead of Rule; the evaluator's declarations are static, so
// construction failure here would indicate a programming error rather than
// a runtime condition, and a nil celEval simply makes every CELExpression
// policy report unmatched (see the policy-rules step below).
func NewEngine(riskConfig risk.ScoringConfig) *Engine {
	celEval, _ := policycel.NewEvaluator()
	return &Engine{riskConfig: riskConfig, now: time.Now, celEval: celEval}
}

// WithClock overrides the engine's clock, for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate runs the full pipeline and returns the resulting DecisionTrace.
func (e *Engine) Evaluate(evalCtx EvaluationContext, engineCtx EngineContext) types.DecisionTrace {
	var checks []types.DecisionCheck
	denied := false
	requiredLevel := types.ApprovalLevelNone
	bypassToleranceApproval := false

	ruleCtx := evalCtx.AsRuleContext()

	// 1. Forbidden-behavior check.
	if matchesAnyPattern(engineCtx.ResolvedIdentity.EffectiveForbiddenBehaviors, evalCtx.ActionType) {
		checks = append(checks, types.DecisionCheck{
			Code: types.CheckForbiddenBehavior, Matched: true, Effect: types.EffectDeny,
			Detail: fmt.Sprintf("action type %q matches a forbidden behavior pattern", evalCtx.ActionType),
		})
		denied = true
	} else {
		checks = append(checks, types.DecisionCheck{Code: types.CheckForbiddenBehavior, Matched: false, Effect: types.EffectSkip})
	}

	// 2. Trust-behavior check.
	trustMatched := matchesAnyPattern(engineCtx.ResolvedIdentity.EffectiveTrustBehaviors, evalCtx.ActionType)
	if trustMatched {
		checks = append(checks, types.DecisionCheck{
			Code: types.CheckTrustBehavior, Matched: true, Effect: types.EffectAllow,
			Detail: fmt.Sprintf("action type %q matches a trust behavior pattern", evalCtx.ActionType),
		})
		if !denied {
			bypassToleranceApproval = true
		}
	} else {
		checks = append(checks, types.DecisionCheck{Code: types.CheckTrustBehavior, Matched: false, Effect: types.EffectSkip})
	}

	// 3. Competence-trust check.
	if adj := engineCtx.CompetenceAdjustment; adj != nil {
		switch {
		case adj.ShouldTrust:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckCompetenceTrust, Matched: true, Effect: types.EffectAllow,
				Detail: "principal has an established competence record for this action type",
			})
			if !denied {
				bypassToleranceApproval = true
			}
		case adj.ShouldDeny:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckCompetenceTrust, Matched: true, Effect: types.EffectDeny,
				Detail: "principal's competence record requires denial for this action type",
			})
			denied = true
		default:
			checks = append(checks, types.DecisionCheck{Code: types.CheckCompetenceTrust, Matched: false, Effect: types.EffectSkip})
		}
	} else {
		checks = append(checks, types.DecisionCheck{Code: types.CheckCompetenceTrust, Matched: false, Effect: types.EffectSkip})
	}

	now := e.now()

	// 4. Rate-limit checks.
	for _, rl := range engineCtx.Guardrails.RateLimits {
		if !matchesActionPattern(rl.ActionType, evalCtx.ActionType) {
			continue
		}
		key := guardrail.RateLimitKey(evalCtx.PrincipalID, rl.ActionType)
		var statePtr *types.RateLimitCounterState
		if s, ok := engineCtx.RateLimitState[key]; ok {
			statePtr = &s
		}
		violated, detail := guardrail.CheckRateLimit(rl, evalCtx.PrincipalID, statePtr, now)
		if violated {
			checks = append(checks, types.DecisionCheck{Code: types.CheckRateLimit, Matched: true, Effect: types.EffectDeny, Detail: detail})
			denied = true
		} else {
			checks = append(checks, types.DecisionCheck{Code: types.CheckRateLimit, Matched: false, Effect: types.EffectSkip})
		}
	}

	// 5. Cooldown checks.
	entityID := stringParam(evalCtx.Parameters, "entityId")
	for _, cd := range engineCtx.Guardrails.Cooldowns {
		if !matchesActionPattern(cd.ActionType, evalCtx.ActionType) {
			continue
		}
		key := guardrail.CooldownKey(evalCtx.PrincipalID, entityID)
		var statePtr *types.CooldownState
		if s, ok := engineCtx.CooldownState[key]; ok {
			statePtr = &s
		}
		violated, detail := guardrail.CheckCooldown(cd, statePtr, now)
		if violated {
			checks = append(checks, types.DecisionCheck{Code: types.CheckCooldown, Matched: true, Effect: types.EffectDeny, Detail: detail})
			denied = true
		} else {
			checks = append(checks, types.DecisionCheck{Code: types.CheckCooldown, Matched: false, Effect: types.EffectSkip})
		}
	}

	// 6. Protected-entity checks.
	if entityID != "" {
		entityType := stringParam(evalCtx.Parameters, "entityType")
		matched, detail := guardrail.CheckProtectedEntity(entityType, entityID, engineCtx.Guardrails.ProtectedEntities)
		if matched {
			checks = append(checks, types.DecisionCheck{Code: types.CheckProtectedEntity, Matched: true, Effect: types.EffectDeny, Detail: detail})
			denied = true
		} else {
			checks = append(checks, types.DecisionCheck{Code: types.CheckProtectedEntity, Matched: false, Effect: types.EffectSkip})
		}
	}

	// 7. Per-action spend limit.
	amount := floatParam(evalCtx.Parameters, "amount")
	if limit := engineCtx.ResolvedIdentity.EffectiveSpendLimits.PerAction; limit != nil && amount > *limit {
		checks = append(checks, types.DecisionCheck{
			Code: types.CheckSpendLimit, Matched: true, Effect: types.EffectDeny,
			Detail: fmt.Sprintf("amount %.2f exceeds per-action limit %.2f", amount, *limit),
			Data:   map[string]interface{}{"field": "per_action"},
		})
		denied = true
	} else {
		checks = append(checks, types.DecisionCheck{Code: types.CheckSpendLimit, Matched: false, Effect: types.EffectSkip})
	}

	// 8. Time-windowed spend limits.
	if lookup := engineCtx.SpendLookup; lookup != nil {
		windows := []struct {
			field string
			limit *float64
			spend *float64
		}{
			{"daily", engineCtx.ResolvedIdentity.EffectiveSpendLimits.Daily, lookup.DailySpend},
			{"weekly", engineCtx.ResolvedIdentity.EffectiveSpendLimits.Weekly, lookup.WeeklySpend},
			{"monthly", engineCtx.ResolvedIdentity.EffectiveSpendLimits.Monthly, lookup.MonthlySpend},
		}
		for _, w := range windows {
			if w.limit == nil || w.spend == nil {
				continue
			}
			if *w.spend+amount > *w.limit {
				checks = append(checks, types.DecisionCheck{
					Code: types.CheckSpendLimit, Matched: true, Effect: types.EffectDeny,
					Detail: fmt.Sprintf("%s spend would exceed limit %.2f", w.field, *w.limit),
					Data:   map[string]interface{}{"field": w.field},
				})
				denied = true
			}
		}
	}

	// 9. Policy rules, sorted by ascending priority; ties keep list order.
	sortedPolicies := append([]Policy{}, engineCtx.Policies...)
	sort.SliceStable(sortedPolicies, func(i, j int) bool {
		return sortedPolicies[i].Priority < sortedPolicies[j].Priority
	})
	for _, p := range sortedPolicies {
		var result ruleeval.Result
		if p.CELExpression != "" {
			matched := false
			if e.celEval != nil {
				if m, err := e.celEval.Matches(p.CELExpression, ruleCtx); err == nil {
					matched = m
				}
			}
			result = ruleeval.Result{Matched: matched}
		} else {
			result = ruleeval.Evaluate(p.Rule, ruleCtx)
		}
		if !result.Matched {
			checks = append(checks, types.DecisionCheck{Code: types.CheckPolicyRule, Matched: false, Effect: types.EffectSkip, Detail: p.ID})
			continue
		}
		switch p.Effect {
		case EffectDeny:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckPolicyRule, Matched: true, Effect: types.EffectDeny,
				Detail: fmt.Sprintf("policy %s denied the action", p.ID),
			})
			denied = true
		case EffectAllow:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckPolicyRule, Matched: true, Effect: types.EffectAllow,
				Detail: fmt.Sprintf("policy %s explicitly allowed the action", p.ID),
			})
		case EffectRequireApproval:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckPolicyRule, Matched: true, Effect: types.EffectModify,
				Detail: fmt.Sprintf("policy %s requires %s approval", p.ID, p.ApprovalLevel),
				Data:   map[string]interface{}{"approval_level": string(p.ApprovalLevel)},
			})
			requiredLevel = types.MaxApprovalLevel(requiredLevel, p.ApprovalLevel)
		case EffectModify:
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckPolicyRule, Matched: true, Effect: types.EffectModify,
				Detail: fmt.Sprintf("policy %s modifies parameters", p.ID),
				Data:   map[string]interface{}{"patch": p.Patch},
			})
		}
	}

	// 10. Risk scoring.
	score := risk.Score(engineCtx.RiskInput, e.riskConfig)
	checks = append(checks, types.DecisionCheck{
		Code: types.CheckRiskScoring, Matched: true, Effect: types.EffectSkip,
		Detail: fmt.Sprintf("risk score %.1f (%s)", score.Raw, score.Category),
		Data:   map[string]interface{}{"factors": score.Factors},
	})

	if engineCtx.CompositeContext != nil {
		bump := risk.CompositeBump(*engineCtx.CompositeContext, e.riskConfig)
		recategorized, increased := risk.Recategorize(score, bump, e.riskConfig)
		if increased {
			checks = append(checks, types.DecisionCheck{
				Code: types.CheckCompositeRisk, Matched: true, Effect: types.EffectModify,
				Detail: fmt.Sprintf("composite recent-activity risk raised category from %s to %s", score.Category, recategorized.Category),
			})
			score = recategorized
		} else {
			checks = append(checks, types.DecisionCheck{Code: types.CheckCompositeRisk, Matched: false, Effect: types.EffectSkip})
		}
	}

	// 11. Approval level selection. A trust-behavior or competence-trust match
	// exempts the action from the risk-tolerance table, but never from an
	// approval level a matched policy rule explicitly demanded.
	if !bypassToleranceApproval {
		toleranceLevel := engineCtx.ResolvedIdentity.EffectiveRiskTolerance[score.Category]
		requiredLevel = types.MaxApprovalLevel(requiredLevel, toleranceLevel)
	}

	trace := types.DecisionTrace{
		Checks:                checks,
		RiskScore:             score,
		RequiredApprovalLevel: requiredLevel,
		EvaluatedAt:           now,
	}

	// 12. Build trace / explanation.
	switch {
	case denied:
		trace.FinalDecision = types.DecisionDeny
		trace.Explanation = "Denied: " + trace.MatchedDenyDetail()
	case requiredLevel != types.ApprovalLevelNone:
		trace.FinalDecision = types.DecisionModify
		trace.Explanation = fmt.Sprintf("Action allowed pending %s approval.", requiredLevel)
	default:
		trace.FinalDecision = types.DecisionAllow
		trace.Explanation = "Action allowed."
	}

	return trace
}

// SimulationResult is simulate()'s return value: the same pipeline as
// Evaluate, with no side effects performed by the caller.
type SimulationResult struct {
	WouldExecute     bool
	ApprovalRequired bool
	Trace            types.DecisionTrace
	Explanation      string
}

// Simulate runs Evaluate and packages the result without causing the caller
// to persist anything; it is the orchestrator's responsibility to ensure no
// storage, audit, or guardrail mutation happens around this call.
func (e *Engine) Simulate(evalCtx EvaluationContext, engineCtx EngineContext) SimulationResult {
	trace := e.Evaluate(evalCtx, engineCtx)
	return SimulationResult{
		WouldExecute:     trace.FinalDecision == types.DecisionAllow,
		ApprovalRequired: trace.RequiredApprovalLevel != types.ApprovalLevelNone && trace.FinalDecision != types.DecisionDeny,
		Trace:            trace,
		Explanation:      trace.Explanation,
	}
}

func matchesAnyPattern(patterns []string, actionType string) bool {
	for _, p := range patterns {
		if matchesActionPattern(p, actionType) {
			return true
		}
	}
	return false
}

func matchesActionPattern(pattern, actionType string) bool {
	if pattern == actionType || pattern == "*" {
		return true
	}
	if len(pattern) > 2 && pattern[len(pattern)-2:] == ".*" {
		prefix := pattern[:len(pattern)-1]
		return len(actionType) >= len(prefix) && actionType[:len(prefix)] == prefix
	}
	return false
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

func floatParam(params map[string]interface{}, key string) float64 {
	if params == nil {
		return 0
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
